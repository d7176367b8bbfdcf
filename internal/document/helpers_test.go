package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/require"
)

// writeDOCX creates a .docx with the given body paragraphs followed by one
// table whose cells hold the given texts.
func writeDOCX(t *testing.T, dir string, paragraphs []string, cells [][]string) string {
	t.Helper()

	doc := docx.New()
	for _, text := range paragraphs {
		p := doc.AddParagraph()
		if text != "" {
			p.AddText(text).Bold()
		}
	}
	if len(cells) > 0 {
		tbl := doc.AddTable(len(cells), len(cells[0]), 0, nil)
		for r, row := range cells {
			for c, text := range row {
				p := tbl.TableRows[r].TableCells[c].AddParagraph()
				if text != "" {
					p.AddText(text)
				}
			}
		}
	}

	path := filepath.Join(dir, "source.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = doc.WriteTo(f)
	require.NoError(t, err)
	return path
}

func readUnits(t *testing.T, data []byte) []string {
	t.Helper()

	doc, err := ParseWord(data)
	require.NoError(t, err)
	var texts []string
	for u := range doc.Units() {
		texts = append(texts, u.Text())
	}
	return texts
}

// zipEntries returns the contents of every entry of a zip archive.
func zipEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[f.Name] = string(b)
	}
	return entries
}

// writeRawDOCX packages a hand-written document.xml body with the minimum
// parts a .docx needs, plus any extra entries.
func writeRawDOCX(t *testing.T, dir, body string, extra map[string]string) string {
	t.Helper()

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
			`</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
			`</Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
			`<w:body>` + body + `</w:body></w:document>`,
	}
	for name, content := range extra {
		parts[name] = content
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, "source.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// buildPDF assembles a minimal uncompressed PDF. Each page draws its lines
// inside one text object, moving down with Td between lines.
func buildPDF(pages [][]string) []byte {
	streams := make([]string, len(pages))
	for i, lines := range pages {
		var content strings.Builder
		content.WriteString("BT /F1 12 Tf 72 720 Td\n")
		for j, line := range lines {
			if j > 0 {
				content.WriteString("0 -20 Td\n")
			}
			fmt.Fprintf(&content, "(%s) Tj\n", line)
		}
		content.WriteString("ET\n")
		streams[i] = content.String()
	}
	return buildPDFStreams(streams)
}

// buildPDFStreams assembles a PDF with one page per content stream. The
// page resources define /F1 as Helvetica and /F2 as Helvetica-Bold.
func buildPDFStreams(streams []string) []byte {
	n := len(streams)
	regular := 3 + 2*n
	bold := regular + 1

	objs := make([]string, bold)
	kids := make([]string, n)
	for i := range streams {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	objs[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n)

	for i, content := range streams {
		pageID := 3 + 2*i
		objs[pageID-1] = fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 %d 0 R /F2 %d 0 R >> >> /Contents %d 0 R >>", regular, bold, pageID+1)
		objs[pageID] = fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content)
	}
	objs[regular-1] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"
	objs[bold-1] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>"

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func writePDF(t *testing.T, dir string, pages [][]string) string {
	t.Helper()
	return writePDFBytes(t, dir, buildPDF(pages))
}

func writePDFBytes(t *testing.T, dir string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, "source.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
