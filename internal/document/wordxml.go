package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"sort"
	"strings"
)

const (
	rootRelsPart    = "_rels/.rels"
	defaultMainPart = "word/document.xml"
	officeDocRel    = "/officeDocument"
)

// WordDocument is an opened .docx package. Only the main document part is
// parsed; every other entry is carried through untouched on write.
type WordDocument struct {
	files    []*zip.File
	mainPart string
	xml      []byte
	units    []Unit
}

// OpenWord reads and scans the .docx at path.
func OpenWord(path string) (*WordDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	return ParseWord(data)
}

// ParseWord scans a .docx held in memory.
func ParseWord(data []byte) (*WordDocument, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	doc := &WordDocument{files: zr.File, mainPart: mainPartName(zr)}
	var main *zip.File
	for _, f := range zr.File {
		if f.Name == doc.mainPart {
			main = f
			break
		}
	}
	if main == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrUnreadableDocument, doc.mainPart)
	}

	if doc.xml, err = readZipFile(main); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	if doc.units, err = scanUnits(doc.xml); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableDocument, doc.mainPart, err)
	}
	return doc, nil
}

// mainPartName resolves the officeDocument relationship of the package,
// falling back to the conventional location.
func mainPartName(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != rootRelsPart {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			break
		}
		var rels struct {
			Relationships []struct {
				Type   string `xml:"Type,attr"`
				Target string `xml:"Target,attr"`
			} `xml:"Relationship"`
		}
		if err := xml.Unmarshal(data, &rels); err != nil {
			break
		}
		for _, r := range rels.Relationships {
			if strings.HasSuffix(r.Type, officeDocRel) {
				return path.Clean(strings.TrimPrefix(r.Target, "/"))
			}
		}
	}
	return defaultMainPart
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Units yields the units of the document in traversal order: body
// paragraphs, then every cell of every body table. Content inside other
// body elements (content controls, nested tables) is not visited.
func (d *WordDocument) Units() iter.Seq[Unit] {
	return func(yield func(Unit) bool) {
		for _, u := range d.units {
			if !yield(u) {
				return
			}
		}
	}
}

// writeTo writes the package with the main part replaced by part. Other
// entries are copied without recompression.
func (d *WordDocument) writeTo(w io.Writer, part []byte) error {
	zw := zip.NewWriter(w)
	for _, f := range d.files {
		if f.Name != d.mainPart {
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", f.Name, err)
		}
		if _, err := fw.Write(part); err != nil {
			return fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	return zw.Close()
}

type span struct {
	start, end int
}

// textElement is a w:t, w:tab or text break inside a run.
type textElement struct {
	span   span
	prefix string
}

type paragraph struct {
	span  span
	texts []textElement
	text  strings.Builder
	// bare is false when the paragraph holds anything besides properties
	// and text.
	bare bool
}

// Unit is a text-bearing element of a structured document: a body
// paragraph or a table cell.
type Unit struct {
	key   string
	paras []*paragraph
}

// Key identifies the unit by position, e.g. "p3" or "t0r1c2".
func (u Unit) Key() string {
	return u.key
}

// Text returns the raw unit text. Tabs and breaks are kept as \t and \n;
// a cell's paragraphs are joined with \n.
func (u Unit) Text() string {
	parts := make([]string, len(u.paras))
	for i, p := range u.paras {
		parts[i] = p.text.String()
	}
	return strings.Join(parts, "\n")
}

type edit struct {
	span span
	repl []byte
}

// replace returns the edits that put text in place of the unit's content.
// The first text element takes the whole text inside its own run, so the
// run keeps its formatting. Other text elements are removed; cell
// paragraphs left with nothing in them are removed too.
func (u Unit) replace(text string) []edit {
	target := -1
	for i, p := range u.paras {
		if len(p.texts) > 0 {
			target = i
			break
		}
	}

	var edits []edit
	for i, p := range u.paras {
		switch {
		case i == target:
			first := p.texts[0]
			edits = append(edits, edit{span: first.span, repl: textXML(first.prefix, text)})
			for _, t := range p.texts[1:] {
				edits = append(edits, edit{span: t.span})
			}
		case p.bare && len(u.paras) > 1:
			edits = append(edits, edit{span: p.span})
		default:
			for _, t := range p.texts {
				edits = append(edits, edit{span: t.span})
			}
		}
	}
	return edits
}

func textXML(prefix, text string) []byte {
	name := "t"
	if prefix != "" {
		name = prefix + ":t"
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<%s xml:space="preserve">`, name)
	xml.EscapeText(&buf, []byte(text))
	fmt.Fprintf(&buf, "</%s>", name)
	return buf.Bytes()
}

// applyEdits splices non-overlapping edits into data.
func applyEdits(data []byte, edits []edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].span.start < edits[j].span.start })

	out := make([]byte, 0, len(data))
	pos := 0
	for _, e := range edits {
		out = append(out, data[pos:e.span.start]...)
		out = append(out, e.repl...)
		pos = e.span.end
	}
	return append(out, data[pos:]...)
}

// xmlScanner walks raw tokens and reports the byte span of each, so
// elements can be replaced in the original bytes.
type xmlScanner struct {
	d *xml.Decoder
}

var errNoBody = errors.New("document has no body")

func scanUnits(data []byte) ([]Unit, error) {
	s := &xmlScanner{d: xml.NewDecoder(bytes.NewReader(data))}

	depth := 0
	for {
		tok, _, err := s.next()
		if err == io.EOF {
			return nil, errNoBody
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && t.Name.Local == "body" {
				return s.body()
			}
		case xml.EndElement:
			depth--
		}
	}
}

func (s *xmlScanner) next() (xml.Token, span, error) {
	start := int(s.d.InputOffset())
	tok, err := s.d.RawToken()
	if err != nil {
		return nil, span{}, err
	}
	return tok, span{start, int(s.d.InputOffset())}, nil
}

// skip consumes the element whose start tag was just read and returns the
// offset just past its end tag.
func (s *xmlScanner) skip() (int, error) {
	depth := 1
	for {
		tok, sp, err := s.next()
		if err != nil {
			return 0, err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				return sp.end, nil
			}
		}
	}
}

func (s *xmlScanner) body() ([]Unit, error) {
	var units []Unit
	var tables [][][][]*paragraph
	for {
		tok, sp, err := s.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				p, err := s.paragraph(sp.start)
				if err != nil {
					return nil, err
				}
				units = append(units, Unit{key: fmt.Sprintf("p%d", len(units)), paras: []*paragraph{p}})
			case "tbl":
				rows, err := s.table()
				if err != nil {
					return nil, err
				}
				tables = append(tables, rows)
			default:
				if _, err := s.skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			for ti, rows := range tables {
				for ri, cells := range rows {
					for ci, paras := range cells {
						units = append(units, Unit{key: fmt.Sprintf("t%dr%dc%d", ti, ri, ci), paras: paras})
					}
				}
			}
			return units, nil
		}
	}
}

func (s *xmlScanner) table() ([][][]*paragraph, error) {
	var rows [][][]*paragraph
	for {
		tok, _, err := s.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tr" {
				if _, err := s.skip(); err != nil {
					return nil, err
				}
				continue
			}
			cells, err := s.row()
			if err != nil {
				return nil, err
			}
			rows = append(rows, cells)
		case xml.EndElement:
			return rows, nil
		}
	}
}

func (s *xmlScanner) row() ([][]*paragraph, error) {
	var cells [][]*paragraph
	for {
		tok, _, err := s.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tc" {
				if _, err := s.skip(); err != nil {
					return nil, err
				}
				continue
			}
			paras, err := s.cell()
			if err != nil {
				return nil, err
			}
			cells = append(cells, paras)
		case xml.EndElement:
			return cells, nil
		}
	}
}

func (s *xmlScanner) cell() ([]*paragraph, error) {
	var paras []*paragraph
	for {
		tok, sp, err := s.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "p" {
				if _, err := s.skip(); err != nil {
					return nil, err
				}
				continue
			}
			p, err := s.paragraph(sp.start)
			if err != nil {
				return nil, err
			}
			paras = append(paras, p)
		case xml.EndElement:
			return paras, nil
		}
	}
}

func (s *xmlScanner) paragraph(start int) (*paragraph, error) {
	p := &paragraph{span: span{start: start}, bare: true}
	for {
		tok, sp, err := s.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				err = s.run(p)
			case "hyperlink":
				err = s.hyperlink(p)
			default:
				if t.Name.Local != "pPr" && t.Name.Local != "proofErr" {
					p.bare = false
				}
				_, err = s.skip()
			}
			if err != nil {
				return nil, err
			}
		case xml.EndElement:
			p.span.end = sp.end
			return p, nil
		}
	}
}

func (s *xmlScanner) hyperlink(p *paragraph) error {
	for {
		tok, _, err := s.next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "r" {
				err = s.run(p)
			} else {
				p.bare = false
				_, err = s.skip()
			}
			if err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (s *xmlScanner) run(p *paragraph) error {
	for {
		tok, sp, err := s.next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var text string
			isText := true
			switch t.Name.Local {
			case "t":
				text, sp.end, err = s.charData()
			case "tab":
				text = "\t"
				sp.end, err = s.skip()
			case "br", "cr":
				if typ := attr(t, "type"); typ != "" && typ != "textWrapping" {
					isText = false
					p.bare = false
				}
				text = "\n"
				sp.end, err = s.skip()
			default:
				isText = false
				if t.Name.Local != "rPr" && t.Name.Local != "lastRenderedPageBreak" {
					p.bare = false
				}
				_, err = s.skip()
			}
			if err != nil {
				return err
			}
			if isText {
				p.texts = append(p.texts, textElement{span: sp, prefix: t.Name.Space})
				p.text.WriteString(text)
			}
		case xml.EndElement:
			return nil
		}
	}
}

// charData reads the text content of the element whose start tag was just
// read and returns it with the offset just past the end tag.
func (s *xmlScanner) charData() (string, int, error) {
	var sb strings.Builder
	depth := 1
	for {
		tok, sp, err := s.next()
		if err != nil {
			return "", 0, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if depth == 1 {
				sb.Write(t)
			}
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				return sb.String(), sp.end, nil
			}
		}
	}
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
