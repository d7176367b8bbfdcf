// Package document reads text units out of .docx and .pdf files and writes
// translated units back into .docx output.
//
// Structured documents are traversed in a fixed order: body paragraphs,
// then body tables row by row and cell by cell. Extraction and
// reconstruction share that traversal, which is what keeps the n-th
// extracted block and the n-th rewritten unit pointing at the same place.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	ErrUnreadableDocument = errors.New("unreadable document")
	ErrAlignment          = errors.New("block alignment mismatch")
)

type Format int

const (
	FormatUnknown Format = iota
	// FormatStructured is a .docx word-processing document.
	FormatStructured
	// FormatPaginated is a .pdf text document.
	FormatPaginated
)

func (f Format) String() string {
	switch f {
	case FormatStructured:
		return "docx"
	case FormatPaginated:
		return "pdf"
	default:
		return "unknown"
	}
}

// DetectFormat picks the extraction mode from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return FormatStructured, nil
	case ".pdf":
		return FormatPaginated, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Block is one non-empty text unit in source order. Index is 1-based.
type Block struct {
	Index int    `json:"index"`
	Unit  string `json:"unit"`
	Text  string `json:"text"`
}

type Sequence []Block

func (s Sequence) Texts() []string {
	texts := make([]string, len(s))
	for i, b := range s {
		texts[i] = b.Text
	}
	return texts
}

// AlignmentError reports a reconstruction that was refused because the
// translated blocks do not line up with the units of the source document.
type AlignmentError struct {
	SourceUnits      int
	TranslatedBlocks int
	// Unit is the first unit whose source text did not match, when the
	// counts agree but an expected text check failed.
	Unit string
}

func (e *AlignmentError) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("block alignment mismatch at unit %s: source text differs from the text that was translated", e.Unit)
	}
	return fmt.Sprintf("block alignment mismatch: document has %d text units, got %d translated blocks", e.SourceUnits, e.TranslatedBlocks)
}

func (e *AlignmentError) Unwrap() error {
	return ErrAlignment
}
