// Package pipeline turns an ordered sequence of source blocks into an
// ordered sequence of translated blocks.
package pipeline

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/bhilidoc/internal/document"
	"github.com/valpere/bhilidoc/internal/segmenter"
	"github.com/valpere/bhilidoc/internal/translator"
)

// SentenceTranslator translates one sentence without failing. It is
// satisfied by *translator.Client.
type SentenceTranslator interface {
	Translate(ctx context.Context, text string) translator.Outcome
}

// ProgressFunc is called once per finished block. done counts finished
// blocks and only ever grows; in parallel mode b may not be the done-th
// block of the sequence.
type ProgressFunc func(done, total int, b TranslatedBlock)

type Config struct {
	// Lang is the source language tag used for sentence segmentation.
	Lang string
	// Concurrency bounds how many blocks are translated at once. Values
	// below 2 translate strictly one block after another.
	Concurrency int
	Progress    ProgressFunc
}

// TranslatedBlock is the translation of the source block with the same
// Index. Text holds the sentence translations joined by single spaces.
type TranslatedBlock struct {
	Index     int                  `json:"index"`
	Unit      string               `json:"unit"`
	Source    string               `json:"source"`
	Text      string               `json:"text"`
	Sentences []translator.Outcome `json:"sentences,omitempty"`
}

// Fallbacks counts the sentences that kept their source text.
func (b TranslatedBlock) Fallbacks() int {
	n := 0
	for _, s := range b.Sentences {
		if s.Degraded() {
			n++
		}
	}
	return n
}

type Translator struct {
	client SentenceTranslator
	config Config
	log    *zap.Logger

	mu   sync.Mutex
	done int
}

func New(client SentenceTranslator, config Config, log *zap.Logger) *Translator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Translator{client: client, config: config, log: log}
}

// Run translates every block of seq. The result has one entry per block,
// in the order of seq, whatever the completion order. Translation failures
// never surface here; Run only fails when ctx is done.
func (t *Translator) Run(ctx context.Context, seq document.Sequence) ([]TranslatedBlock, error) {
	out := make([]TranslatedBlock, len(seq))
	t.mu.Lock()
	t.done = 0
	t.mu.Unlock()

	if t.config.Concurrency < 2 {
		for i, b := range seq {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = t.translateBlock(ctx, b)
			t.report(len(seq), out[i])
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(t.config.Concurrency)
		for i, b := range seq {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				// Each goroutine owns exactly one slot of out.
				out[i] = t.translateBlock(gctx, b)
				t.report(len(seq), out[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	// Sentences that hit a cancelled context fell back to their source
	// text; such a run must not reach the reconstructor.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Translator) translateBlock(ctx context.Context, b document.Block) TranslatedBlock {
	tb := TranslatedBlock{Index: b.Index, Unit: b.Unit, Source: b.Text}

	text := strings.TrimSpace(b.Text)
	if text == "" {
		return tb
	}

	sentences := segmenter.Sentences(text, t.config.Lang)
	parts := make([]string, 0, len(sentences))
	tb.Sentences = make([]translator.Outcome, 0, len(sentences))
	for _, s := range sentences {
		outcome := t.client.Translate(ctx, s)
		tb.Sentences = append(tb.Sentences, outcome)
		parts = append(parts, outcome.Text)
	}
	tb.Text = strings.Join(parts, " ")
	return tb
}

func (t *Translator) report(total int, b TranslatedBlock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	t.log.Debug("block translated",
		zap.Int("index", b.Index),
		zap.String("unit", b.Unit),
		zap.Int("sentences", len(b.Sentences)),
		zap.Int("fallbacks", b.Fallbacks()),
	)
	if t.config.Progress != nil {
		t.config.Progress(t.done, total, b)
	}
}

// Texts returns the translated text of each block, in order.
func Texts(blocks []TranslatedBlock) []string {
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	return texts
}

type Stats struct {
	Blocks    int `json:"blocks"`
	Empty     int `json:"empty"`
	Sentences int `json:"sentences"`
	Fallbacks int `json:"fallbacks"`
}

func Summarize(blocks []TranslatedBlock) Stats {
	s := Stats{Blocks: len(blocks)}
	for _, b := range blocks {
		if len(b.Sentences) == 0 {
			s.Empty++
		}
		s.Sentences += len(b.Sentences)
		s.Fallbacks += b.Fallbacks()
	}
	return s
}
