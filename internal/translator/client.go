package translator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/valpere/bhilidoc/internal/postprocess"
)

type ClientConfig struct {
	SourceLang string
	TargetLang string
	// RPS caps outgoing requests per second. Zero disables the limit.
	RPS   float64
	Burst int
}

// Client wraps a TranslationService with the identity fallback: Translate
// never fails, it returns the source text when the service cannot help.
type Client struct {
	svc     TranslationService
	cfg     ClientConfig
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewClient(svc TranslationService, cfg ClientConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{svc: svc, cfg: cfg, log: log}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return c
}

func (c *Client) Service() string {
	return c.svc.Name()
}

// Translate sends one sentence to the service. Transport errors, non-2xx
// statuses, malformed bodies and empty translations all yield a
// FallbackOriginal outcome carrying text unchanged.
func (c *Client) Translate(ctx context.Context, text string) Outcome {
	out := Outcome{Source: text, Service: c.svc.Name()}

	if strings.TrimSpace(text) == "" {
		out.Kind = Translated
		out.Text = text
		return out
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.fallback(out, "rate limiter: "+err.Error())
		}
	}

	start := time.Now()
	res, err := c.svc.Translate(ctx, TranslateRequest{
		Text:       text,
		SourceLang: c.cfg.SourceLang,
		TargetLang: c.cfg.TargetLang,
	})
	out.Latency = time.Since(start)
	if err != nil {
		reason := err.Error()
		if res != nil && res.Error != "" {
			reason = res.Error
		}
		return c.fallback(out, reason)
	}
	if res == nil {
		return c.fallback(out, "service returned no result")
	}

	cleaned := postprocess.Clean(text, res.TranslatedText)
	if cleaned == "" {
		return c.fallback(out, "empty translation")
	}

	out.Kind = Translated
	out.Text = cleaned
	return out
}

func (c *Client) fallback(out Outcome, reason string) Outcome {
	out.Kind = FallbackOriginal
	out.Text = out.Source
	out.Reason = reason
	c.log.Warn("translation failed, keeping original",
		zap.String("service", out.Service),
		zap.String("reason", reason),
		zap.Int("chars", len([]rune(out.Source))),
	)
	return out
}
