package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/bhilidoc/internal/document"
	"github.com/valpere/bhilidoc/internal/translator"
)

type upperTranslator struct {
	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	jitter   bool
}

func (u *upperTranslator) Translate(ctx context.Context, text string) translator.Outcome {
	u.calls.Add(1)
	n := u.inFlight.Add(1)
	defer u.inFlight.Add(-1)
	for {
		m := u.maxSeen.Load()
		if n <= m || u.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if u.jitter {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	}
	return translator.Outcome{Kind: translator.Translated, Source: text, Text: strings.ToUpper(text)}
}

type failingTranslator struct{}

func (failingTranslator) Translate(ctx context.Context, text string) translator.Outcome {
	return translator.Outcome{Kind: translator.FallbackOriginal, Source: text, Text: text, Reason: "unreachable"}
}

func sequence(texts ...string) document.Sequence {
	seq := make(document.Sequence, len(texts))
	for i, t := range texts {
		seq[i] = document.Block{Index: i + 1, Unit: "p" + string(rune('0'+i)), Text: t}
	}
	return seq
}

func TestTranslator_Run_SegmentsAndJoins(t *testing.T) {
	tr := &upperTranslator{}
	p := New(tr, Config{Lang: "en"}, nil)

	got, err := p.Run(context.Background(), sequence("Hello there. How are you?", "World!"))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "HELLO THERE. HOW ARE YOU?", got[0].Text)
	assert.Len(t, got[0].Sentences, 2)
	assert.Equal(t, "Hello there. How are you?", got[0].Source)
	assert.Equal(t, "WORLD!", got[1].Text)
	assert.Equal(t, 2, got[1].Index)
	assert.Equal(t, int64(3), tr.calls.Load())
}

func TestTranslator_Run_EmptyBlockMakesNoCall(t *testing.T) {
	tr := &upperTranslator{}
	p := New(tr, Config{Lang: "hi"}, nil)

	got, err := p.Run(context.Background(), sequence("", "   \t"))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Empty(t, got[0].Text)
	assert.Empty(t, got[1].Text)
	assert.Zero(t, tr.calls.Load())
}

func TestTranslator_Run_FallbackIsIdentity(t *testing.T) {
	p := New(failingTranslator{}, Config{Lang: "hi"}, nil)
	texts := []string{"नमस्ते। आप कैसे हैं?", "धन्यवाद!"}

	got, err := p.Run(context.Background(), sequence(texts...))
	require.NoError(t, err)

	assert.Equal(t, texts, Texts(got))
	stats := Summarize(got)
	assert.Equal(t, Stats{Blocks: 2, Sentences: 3, Fallbacks: 3}, stats)
}

func TestTranslator_Run_ParallelMatchesSequential(t *testing.T) {
	texts := make([]string, 40)
	for i := range texts {
		texts[i] = strings.Repeat("word ", i%4+1) + "end. next " + string(rune('a'+i%26)) + "."
	}
	texts[7] = ""
	seq := sequence(texts...)

	sequential, err := New(&upperTranslator{}, Config{Lang: "en"}, nil).Run(context.Background(), seq)
	require.NoError(t, err)

	tr := &upperTranslator{jitter: true}
	parallel, err := New(tr, Config{Lang: "en", Concurrency: 4}, nil).Run(context.Background(), seq)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
	assert.LessOrEqual(t, tr.maxSeen.Load(), int64(4))
}

func TestTranslator_Run_Progress(t *testing.T) {
	var mu sync.Mutex
	var done []int
	p := New(&upperTranslator{jitter: true}, Config{
		Lang:        "en",
		Concurrency: 3,
		Progress: func(d, total int, b TranslatedBlock) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 5, total)
			done = append(done, d)
		},
	}, nil)

	_, err := p.Run(context.Background(), sequence("a.", "b.", "c.", "d.", "e."))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, done)
}

func TestTranslator_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, n := range []int{1, 4} {
		got, err := New(&upperTranslator{}, Config{Lang: "en", Concurrency: n}, nil).Run(ctx, sequence("a.", "b."))
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Nil(t, got)
	}
}

func TestTranslator_Run_ServerErrorKeepsOriginal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := translator.NewClient(
		translator.NewAdivaniService(server.URL, "", time.Second),
		translator.ClientConfig{SourceLang: "en", TargetLang: "bhili"},
		nil,
	)

	got, err := New(client, Config{Lang: "en"}, nil).Run(context.Background(), sequence("Hello.", "World!"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello.", "World!"}, Texts(got))
	assert.Equal(t, 2, Summarize(got).Fallbacks)
}
