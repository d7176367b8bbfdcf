package document

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

func extractPDF(ctx context.Context, path string, log *zap.Logger) (seq Sequence, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			seq = nil
			err = fmt.Errorf("%w: %v", ErrUnreadableDocument, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	defer f.Close()

	pageCount := r.NumPage()
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			log.Debug("skipping page without content", zap.Int("page", i))
			continue
		}

		lines, err := pageText(page)
		if err != nil {
			log.Debug("skipping unreadable page", zap.Int("page", i), zap.Error(err))
			continue
		}

		for j, line := range lines {
			seq = append(seq, Block{
				Index: len(seq) + 1,
				Unit:  fmt.Sprintf("page%d:line%d", i, j+1),
				Text:  line,
			})
		}
	}
	return seq, nil
}

// pageText returns the visual lines of one page, top to bottom.
func pageText(page pdf.Page) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			lines = nil
			err = fmt.Errorf("%v", r)
		}
	}()
	return pageLines(page.Content().Text), nil
}

type fragment struct {
	x, y, size float64
	text       strings.Builder
}

type row struct {
	y, size float64
	frags   []*fragment
}

// pageLines groups positioned glyphs into rows by baseline. Glyphs drawn
// one after another on the same baseline form a fragment, whatever text
// objects or fonts they came from. Fragments that share a baseline are
// ordered left to right and joined by a space. Each row is trimmed,
// inner whitespace collapsed, and blank rows dropped.
func pageLines(glyphs []pdf.Text) []string {
	var frags []*fragment
	var cur *fragment
	for _, g := range glyphs {
		s := g.S
		switch s {
		case "\n":
			s = " "
		case string(unicode.ReplacementChar):
			continue
		}
		if cur == nil || !sameBaseline(cur.y, g.Y, cur.size) {
			cur = &fragment{x: g.X, y: g.Y, size: g.FontSize}
			frags = append(frags, cur)
		}
		cur.text.WriteString(s)
	}

	var rows []*row
	for _, f := range frags {
		if strings.TrimSpace(f.text.String()) == "" {
			continue
		}
		var target *row
		for _, r := range rows {
			if sameBaseline(r.y, f.y, r.size) {
				target = r
				break
			}
		}
		if target == nil {
			target = &row{y: f.y, size: f.size}
			rows = append(rows, target)
		}
		target.frags = append(target.frags, f)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	var lines []string
	for _, r := range rows {
		sort.SliceStable(r.frags, func(i, j int) bool { return r.frags[i].x < r.frags[j].x })
		parts := make([]string, len(r.frags))
		for i, f := range r.frags {
			parts[i] = f.text.String()
		}
		line := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// sameBaseline reports whether two glyph baselines belong to one row.
// Half the font size absorbs superscripts and rounding.
func sameBaseline(a, b, size float64) bool {
	return math.Abs(a-b) <= math.Max(size/2, 1)
}
