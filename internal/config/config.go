// Package config builds the immutable run configuration from flags,
// environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/bhilidoc/internal/segmenter"
	"github.com/valpere/bhilidoc/internal/translator"
)

// EnvPrefix prefixes every environment variable read by Load, e.g.
// BHILIDOC_ADIVANI_URL.
const EnvPrefix = "BHILIDOC"

var (
	ErrUnsupportedLanguage = errors.New("unsupported source language")
	ErrInvalidConfig       = errors.New("invalid configuration")
)

// Services lists the translation backends that can be selected.
var Services = []string{"adivani", "google"}

type Config struct {
	Lang    string
	Target  string
	Service string

	Adivani AdivaniConfig
	Google  GoogleConfig

	Timeout     time.Duration
	Concurrency int
	RPS         float64

	Output  string
	DumpDir string
	Journal string

	Log LogConfig
}

type AdivaniConfig struct {
	URL    string
	UserID string
}

type GoogleConfig struct {
	// Credentials is a service account key file. Empty uses application
	// default credentials.
	Credentials string
}

type LogConfig struct {
	Level  string
	Format string
}

// Defaults are applied before any other source.
var Defaults = map[string]interface{}{
	"target":             translator.DefaultAdivaniTarget,
	"service":            "adivani",
	"adivani.url":        translator.DefaultAdivaniURL,
	"adivani.user_id":    translator.DefaultAdivaniUserID,
	"timeout":            translator.DefaultTimeout,
	"concurrency":        1,
	"rps":                0.0,
	"output":             "bhili.docx",
	"dump_dir":           ".",
	"journal":            "",
	"google.credentials": "",
	"log.level":          "info",
	"log.format":         "console",
}

// NewViper returns a viper instance with defaults and environment binding
// in place. Flags are bound by the caller.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges a YAML, TOML or JSON config file into v.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load snapshots v into a Config. The result is not validated.
func Load(v *viper.Viper) Config {
	return Config{
		Lang:    strings.ToLower(strings.TrimSpace(v.GetString("lang"))),
		Target:  v.GetString("target"),
		Service: strings.ToLower(v.GetString("service")),
		Adivani: AdivaniConfig{
			URL:    v.GetString("adivani.url"),
			UserID: v.GetString("adivani.user_id"),
		},
		Google: GoogleConfig{
			Credentials: v.GetString("google.credentials"),
		},
		Timeout:     v.GetDuration("timeout"),
		Concurrency: v.GetInt("concurrency"),
		RPS:         v.GetFloat64("rps"),
		Output:      v.GetString("output"),
		DumpDir:     v.GetString("dump_dir"),
		Journal:     v.GetString("journal"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
}

// Validate checks the settings a translation run depends on.
func (c Config) Validate() error {
	if !segmenter.Supported(c.Lang) {
		return fmt.Errorf("%w: %q (use hi or en)", ErrUnsupportedLanguage, c.Lang)
	}
	if c.Target == "" {
		return fmt.Errorf("%w: target language is required", ErrInvalidConfig)
	}
	if !validService(c.Service) {
		return fmt.Errorf("%w: unknown service %q (use %s)", ErrInvalidConfig, c.Service, strings.Join(Services, " or "))
	}
	if c.Service == "google" {
		if _, err := translator.GoogleLanguage(c.Target); err != nil {
			return fmt.Errorf("%w: target %q is not a language code the google service accepts: %v", ErrInvalidConfig, c.Target, err)
		}
	}
	if c.Service == "adivani" && c.Adivani.URL == "" {
		return fmt.Errorf("%w: adivani.url is required", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative", ErrInvalidConfig)
	}
	if c.RPS < 0 {
		return fmt.Errorf("%w: rps must not be negative", ErrInvalidConfig)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalidConfig)
	}
	return nil
}

func validService(name string) bool {
	for _, s := range Services {
		if s == name {
			return true
		}
	}
	return false
}
