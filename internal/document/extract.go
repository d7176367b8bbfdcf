package document

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Extract reads the ordered, non-empty text blocks of the document at path.
// A nil logger discards page-level diagnostics.
func Extract(ctx context.Context, path string, format Format, log *zap.Logger) (Sequence, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch format {
	case FormatStructured:
		return extractDOCX(ctx, path)
	case FormatPaginated:
		return extractPDF(ctx, path, log)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
