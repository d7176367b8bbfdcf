package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/bhilidoc/internal/config"
)

func TestBuildService(t *testing.T) {
	v := config.NewViper()
	v.Set("lang", "en")
	cfg := config.Load(v)

	svc, err := buildService(cfg)
	require.NoError(t, err)
	assert.Equal(t, "adivani", svc.Name())

	cfg.Service = "google"
	svc, err = buildService(cfg)
	require.NoError(t, err)
	assert.Equal(t, "google", svc.Name())

	cfg.Service = "deepl"
	_, err = buildService(cfg)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json", ""} {
		l, err := newLogger("debug", format)
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}

	_, err := newLogger("loud", "console")
	assert.Error(t, err)

	_, err = newLogger("info", "xml")
	assert.Error(t, err)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short"))

	long := "नमस्ते नमस्ते नमस्ते नमस्ते नमस्ते नमस्ते नमस्ते"
	got := snippet(long)
	assert.Equal(t, 40, len([]rune(got)))
	assert.Contains(t, got, "...")
}
