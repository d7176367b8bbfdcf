package translator

import (
	"context"
	"time"
)

// TranslateRequest is one unit of text sent to a service. SourceLang is the
// CLI language tag ("en", "hi"); each service maps it to its own code.
type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

type TranslationService interface {
	Name() string
	Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// OutcomeKind tells a real translation apart from an identity fallback.
type OutcomeKind int

const (
	Translated OutcomeKind = iota
	FallbackOriginal
)

func (k OutcomeKind) String() string {
	switch k {
	case Translated:
		return "translated"
	case FallbackOriginal:
		return "fallback"
	default:
		return "unknown"
	}
}

// Outcome is the result of translating one sentence. A FallbackOriginal
// outcome carries the untranslated source text and the reason the service
// call was abandoned.
type Outcome struct {
	Kind    OutcomeKind   `json:"kind"`
	Source  string        `json:"source"`
	Text    string        `json:"text"`
	Reason  string        `json:"reason,omitempty"`
	Service string        `json:"service"`
	Latency time.Duration `json:"latency"`
}

// Degraded reports whether the outcome fell back to the source text.
func (o Outcome) Degraded() bool {
	return o.Kind == FallbackOriginal
}
