package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Paginated(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, [][]string{
		{"First line.", "", "Second line."},
	})

	seq, err := Extract(context.Background(), path, FormatPaginated, nil)
	require.NoError(t, err)

	require.Len(t, seq, 2)
	assert.Equal(t, Block{Index: 1, Unit: "page1:line1", Text: "First line."}, seq[0])
	assert.Equal(t, Block{Index: 2, Unit: "page1:line2", Text: "Second line."}, seq[1])
}

func TestExtract_PaginatedMultiplePages(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, [][]string{
		{"Page one."},
		{},
		{"Page three.", "  indented  "},
	})

	seq, err := Extract(context.Background(), path, FormatPaginated, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Page one.", "Page three.", "indented"}, seq.Texts())
	assert.Equal(t, "page3:line1", seq[1].Unit)
}

func TestExtract_PaginatedUnreadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a pdf"), 0o644))

	_, err := Extract(context.Background(), path, FormatPaginated, nil)
	require.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestExtract_PaginatedCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, [][]string{{"text"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Extract(ctx, path, FormatPaginated, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtract_PaginatedLayouts(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   []string
	}{
		{
			name:   "Td moves inside one text object",
			stream: "BT /F1 12 Tf 72 700 Td (First line here.) Tj 0 -20 Td (Second line here.) Tj ET\n",
			want:   []string{"First line here.", "Second line here."},
		},
		{
			name: "one line drawn as several text objects",
			stream: "BT /F1 12 Tf 72 700 Td (This is ) Tj ET\n" +
				"BT /F2 12 Tf 110 700 Td (bold) Tj ET\n" +
				"BT /F1 12 Tf 140 700 Td ( text.) Tj ET\n",
			want: []string{"This is bold text."},
		},
		{
			name:   "TD and T* line moves",
			stream: "BT /F1 12 Tf 72 700 Td (One.) Tj 0 -14 TD (Two.) Tj T* (Three.) Tj ET\n",
			want:   []string{"One.", "Two.", "Three."},
		},
		{
			name:   "Tm positioning",
			stream: "BT /F1 12 Tf 1 0 0 1 72 700 Tm (Top) Tj 1 0 0 1 72 600 Tm (Bottom) Tj ET\n",
			want:   []string{"Top", "Bottom"},
		},
		{
			name: "rows ordered top to bottom regardless of drawing order",
			stream: "BT /F1 12 Tf 72 500 Td (Lower) Tj ET\n" +
				"BT /F1 12 Tf 72 700 Td (Upper) Tj ET\n",
			want: []string{"Upper", "Lower"},
		},
		{
			name: "fragments on one baseline ordered left to right",
			stream: "BT /F1 12 Tf 300 700 Td (right) Tj ET\n" +
				"BT /F1 12 Tf 72 650 Td (middle) Tj ET\n" +
				"BT /F1 12 Tf 72 700 Td (left) Tj ET\n",
			want: []string{"left right", "middle"},
		},
		{
			name:   "TJ arrays",
			stream: "BT /F1 12 Tf 72 700 Td [(Kern) -120 (ed)] TJ 0 -20 Td [(Next)] TJ ET\n",
			want:   []string{"Kerned", "Next"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePDFBytes(t, t.TempDir(), buildPDFStreams([]string{tt.stream}))

			seq, err := Extract(context.Background(), path, FormatPaginated, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, seq.Texts())
			for i, b := range seq {
				assert.Equal(t, fmt.Sprintf("page1:line%d", i+1), b.Unit)
			}
		})
	}
}

func TestPageLines(t *testing.T) {
	glyphs := func(x, y float64, s string) []pdf.Text {
		var out []pdf.Text
		for _, r := range s {
			out = append(out, pdf.Text{FontSize: 12, X: x, Y: y, S: string(r)})
		}
		return out
	}
	concat := func(parts ...[]pdf.Text) []pdf.Text {
		var out []pdf.Text
		for _, p := range parts {
			out = append(out, p...)
		}
		return out
	}

	tests := []struct {
		name   string
		glyphs []pdf.Text
		want   []string
	}{
		{"empty", nil, nil},
		{"blank rows dropped", concat(glyphs(72, 700, "   "), glyphs(72, 680, "word")), []string{"word"}},
		{"trimmed and collapsed", glyphs(72, 700, "  a \t b  "), []string{"a b"}},
		{"superscript stays on its row", concat(glyphs(72, 700, "note"), glyphs(100, 704, "1")), []string{"note1"}},
		{"undecodable glyphs dropped", glyphs(72, 700, "a\ufffdb"), []string{"ab"}},
		{"TJ line feed separates words", concat(glyphs(72, 700, "one"), glyphs(72, 700, "\n"), glyphs(72, 700, "two")), []string{"one two"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pageLines(tt.glyphs))
		})
	}
}
