package document

import (
	"context"
	"fmt"
	"io"

	"github.com/fumiama/go-docx"

	"github.com/valpere/bhilidoc/internal/postprocess"
)

// RewriteOptions tunes Rewrite.
type RewriteOptions struct {
	// Expect, when set, holds the source texts the translations were made
	// from. Each must equal the flattened text of the unit it replaces.
	Expect []string
}

func extractDOCX(ctx context.Context, path string) (Sequence, error) {
	doc, err := OpenWord(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var seq Sequence
	for u := range doc.Units() {
		text := postprocess.Flatten(u.Text())
		if text == "" {
			continue
		}
		seq = append(seq, Block{Index: len(seq) + 1, Unit: u.Key(), Text: text})
	}
	return seq, nil
}

// CountUnits returns the number of non-empty units of a structured
// document.
func CountUnits(path string) (int, error) {
	doc, err := OpenWord(path)
	if err != nil {
		return 0, err
	}
	return countUnits(doc), nil
}

func countUnits(doc *WordDocument) int {
	n := 0
	for u := range doc.Units() {
		if postprocess.Flatten(u.Text()) != "" {
			n++
		}
	}
	return n
}

// Rewrite writes a copy of the structured document at src to w with the
// text of every non-empty unit replaced, in order, by texts. Only the text
// of those units changes; everything else in the package is written back
// byte for byte. Alignment is verified before anything is modified; on
// mismatch an *AlignmentError is returned and nothing is written.
func Rewrite(src string, w io.Writer, texts []string, opts RewriteOptions) error {
	doc, err := OpenWord(src)
	if err != nil {
		return err
	}

	if n := countUnits(doc); n != len(texts) {
		return &AlignmentError{SourceUnits: n, TranslatedBlocks: len(texts)}
	}
	if opts.Expect != nil {
		if err := checkExpected(doc, opts.Expect); err != nil {
			return err
		}
	}

	var edits []edit
	i := 0
	for u := range doc.Units() {
		if postprocess.Flatten(u.Text()) == "" {
			continue
		}
		edits = append(edits, u.replace(texts[i])...)
		i++
	}

	if err := doc.writeTo(w, applyEdits(doc.xml, edits)); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

func checkExpected(doc *WordDocument, expect []string) error {
	i := 0
	for u := range doc.Units() {
		text := postprocess.Flatten(u.Text())
		if text == "" {
			continue
		}
		if i >= len(expect) || expect[i] != text {
			return &AlignmentError{SourceUnits: countUnits(doc), TranslatedBlocks: len(expect), Unit: u.Key()}
		}
		i++
	}
	if i != len(expect) {
		return &AlignmentError{SourceUnits: i, TranslatedBlocks: len(expect)}
	}
	return nil
}

// Build writes a new structured document with one paragraph per text, in
// order. Empty texts become empty paragraphs.
func Build(w io.Writer, texts []string) error {
	doc := docx.New()
	for _, text := range texts {
		p := doc.AddParagraph()
		if text != "" {
			p.AddText(text)
		}
	}
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
