package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func sampleDocument() *Document {
	doc := &Document{Info: DocInfo{
		Title:    "Quarterly Report",
		Creator:  "Ada Lovelace",
		Subject:  "Finance",
		Keywords: "report, finance",
		Created:  time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}}
	doc.AddHeading(1, "Summary")
	doc.AddParagraph("Revenue grew by 12% & costs fell.")
	doc.AddTable([][]string{{"Region", "Total"}, {"North", "42"}})
	doc.AddHeading(2, "Outlook")
	doc.AddParagraph("Stable.")
	return doc
}

func renderToBytes(t *testing.T, w Writer, doc *Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	stats, err := w.Render(context.Background(), doc, &buf)
	if err != nil {
		t.Fatalf("render %T: %v", w, err)
	}
	if stats.Bytes != int64(buf.Len()) {
		t.Fatalf("expected stats bytes %d, got %d", buf.Len(), stats.Bytes)
	}
	return buf.Bytes()
}

func TestWriterSignatures(t *testing.T) {
	cases := []struct {
		name   string
		writer Writer
		prefix string
	}{
		{"word2007", Word2007Writer{}, "PK"},
		{"odtext", ODTextWriter{}, "PK"},
		{"rtf", RTFWriter{}, `{\rtf1`},
		{"html", HTMLWriter{}, "<!DOCTYPE html>"},
		{"fpdf", NewFPDFWriter(RendererConfig{Backend: BackendFPDF, TempDir: t.TempDir()}), "%PDF-"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := renderToBytes(t, tc.writer, sampleDocument())
			if !bytes.HasPrefix(out, []byte(tc.prefix)) {
				t.Fatalf("expected prefix %q, got %q", tc.prefix, out[:min(len(out), 16)])
			}
		})
	}
}

func TestWord2007WriterParts(t *testing.T) {
	out := renderToBytes(t, Word2007Writer{}, sampleDocument())
	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml", "docProps/core.xml"} {
		if findZipFile(zr, name) == nil {
			t.Fatalf("missing part %s", name)
		}
	}
	body := readZipString(t, findZipFile(zr, "word/document.xml"))
	if !strings.Contains(body, "12% &amp; costs") {
		t.Fatalf("expected escaped paragraph text, got %s", body)
	}
	if !strings.Contains(body, `<w:pStyle w:val="Heading1"/>`) {
		t.Fatalf("expected heading style in body")
	}
}

func TestODTextWriterStoresMimetypeFirst(t *testing.T) {
	out := renderToBytes(t, ODTextWriter{}, sampleDocument())
	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	first := zr.File[0]
	if first.Name != "mimetype" {
		t.Fatalf("expected mimetype first, got %s", first.Name)
	}
	if first.Method != zip.Store {
		t.Fatalf("expected mimetype stored uncompressed")
	}
	if got := readZipString(t, first); got != "application/vnd.oasis.opendocument.text" {
		t.Fatalf("unexpected mimetype %q", got)
	}
	if !bytes.Contains(out[:80], []byte("mimetypeapplication/vnd.oasis.opendocument.text")) {
		t.Fatalf("expected mimetype at the start of the archive")
	}
}

func TestWord2007RoundTripPreservesProperties(t *testing.T) {
	out := renderToBytes(t, Word2007Writer{}, sampleDocument())
	doc, err := Word2007Reader{}.Read(context.Background(), bytes.NewReader(out))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if doc.Info.Title != "Quarterly Report" {
		t.Fatalf("expected title, got %q", doc.Info.Title)
	}
	if doc.Info.Creator != "Ada Lovelace" {
		t.Fatalf("expected creator, got %q", doc.Info.Creator)
	}
	if doc.Info.Keywords != "report, finance" {
		t.Fatalf("expected keywords, got %q", doc.Info.Keywords)
	}
	if !doc.Info.Created.Equal(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected created time, got %v", doc.Info.Created)
	}
}

func TestWord2007RoundTripPreservesBlocks(t *testing.T) {
	out := renderToBytes(t, Word2007Writer{}, sampleDocument())
	doc, err := Word2007Reader{}.Read(context.Background(), bytes.NewReader(out))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(doc.Blocks) == 0 {
		t.Fatalf("expected blocks")
	}
	first := doc.Blocks[0]
	if first.Kind != BlockHeading || first.Level != 1 || first.Text != "Summary" {
		t.Fatalf("unexpected first block %+v", first)
	}
	var paragraphs []string
	for _, b := range doc.Blocks {
		if b.Kind == BlockParagraph {
			paragraphs = append(paragraphs, b.Text)
		}
	}
	if len(paragraphs) != 2 || paragraphs[0] != "Revenue grew by 12% & costs fell." {
		t.Fatalf("unexpected paragraphs %q", paragraphs)
	}
}

func TestODTextRoundTrip(t *testing.T) {
	out := renderToBytes(t, ODTextWriter{}, sampleDocument())
	doc, err := ODTextReader{}.Read(context.Background(), bytes.NewReader(out))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	assertSampleBlocks(t, doc)
	if doc.Info.Title != "Quarterly Report" || doc.Info.Creator != "Ada Lovelace" {
		t.Fatalf("unexpected info %+v", doc.Info)
	}
	if doc.Info.Keywords != "report, finance" {
		t.Fatalf("unexpected keywords %q", doc.Info.Keywords)
	}
}

func TestRTFRoundTrip(t *testing.T) {
	out := renderToBytes(t, RTFWriter{}, sampleDocument())
	doc, err := RTFReader{}.Read(context.Background(), bytes.NewReader(out))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	assertSampleBlocks(t, doc)
	if doc.Info.Title != "Quarterly Report" || doc.Info.Creator != "Ada Lovelace" {
		t.Fatalf("unexpected info %+v", doc.Info)
	}
	if !doc.Info.Created.Equal(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created %v", doc.Info.Created)
	}
}

func TestHTMLRoundTrip(t *testing.T) {
	out := renderToBytes(t, HTMLWriter{}, sampleDocument())
	if !bytes.Contains(out, []byte(`<meta name="author" content="Ada Lovelace">`)) {
		t.Fatalf("expected author meta tag, got %s", out)
	}
	doc, err := HTMLReader{}.Read(context.Background(), bytes.NewReader(out))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	assertSampleBlocks(t, doc)
	if doc.Info.Title != "Quarterly Report" || doc.Info.Creator != "Ada Lovelace" {
		t.Fatalf("unexpected info %+v", doc.Info)
	}
}

func TestHTMLWriterEscapesText(t *testing.T) {
	doc := &Document{Info: DocInfo{Title: "<script>"}}
	doc.AddParagraph("a < b")
	out := string(renderToBytes(t, HTMLWriter{}, doc))
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected title to be escaped: %s", out)
	}
	if !strings.Contains(out, "<p>a &lt; b</p>") {
		t.Fatalf("expected escaped paragraph: %s", out)
	}
}

func TestBasicMarkup(t *testing.T) {
	doc := &Document{}
	doc.AddHeading(1, "Title")
	doc.AddParagraph("x < y")
	got := HTMLWriter{}.BasicMarkup(doc)
	want := "<b>Title</b><br><br>x ‹ y<br><br>"
	if got != want {
		t.Fatalf("BasicMarkup = %q, want %q", got, want)
	}
}

func TestRTFEscapesUnicodeAndControlChars(t *testing.T) {
	doc := &Document{}
	doc.AddParagraph(`café {x} \ y`)
	out := string(renderToBytes(t, RTFWriter{}, doc))
	if !strings.Contains(out, `caf\u233?`) {
		t.Fatalf("expected unicode escape, got %s", out)
	}
	if !strings.Contains(out, `\{x\} \\ y`) {
		t.Fatalf("expected escaped braces, got %s", out)
	}
	parsed, err := RTFReader{}.Read(context.Background(), strings.NewReader(out))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(parsed.Blocks) != 1 || parsed.Blocks[0].Text != `café {x} \ y` {
		t.Fatalf("unexpected blocks %+v", parsed.Blocks)
	}
}

func TestWritersRejectNilDocument(t *testing.T) {
	for _, w := range []Writer{Word2007Writer{}, ODTextWriter{}, RTFWriter{}, HTMLWriter{}} {
		if _, err := w.Render(context.Background(), nil, io.Discard); !IsKind(err, KindValidation) {
			t.Fatalf("%T: expected validation error, got %v", w, err)
		}
	}
}

func assertSampleBlocks(t *testing.T, doc *Document) {
	t.Helper()
	want := []Block{
		{Kind: BlockHeading, Level: 1, Text: "Summary"},
		{Kind: BlockParagraph, Text: "Revenue grew by 12% & costs fell."},
		{Kind: BlockTable, Rows: [][]string{{"Region", "Total"}, {"North", "42"}}},
		{Kind: BlockHeading, Level: 2, Text: "Outlook"},
		{Kind: BlockParagraph, Text: "Stable."},
	}
	if len(doc.Blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(want), len(doc.Blocks), doc.Blocks)
	}
	for i, b := range doc.Blocks {
		w := want[i]
		if b.Kind != w.Kind || b.Level != w.Level || b.Text != w.Text {
			t.Fatalf("block %d: got %+v, want %+v", i, b, w)
		}
		if w.Kind == BlockTable {
			if len(b.Rows) != len(w.Rows) {
				t.Fatalf("block %d: rows %v, want %v", i, b.Rows, w.Rows)
			}
			for r := range w.Rows {
				if strings.Join(b.Rows[r], "|") != strings.Join(w.Rows[r], "|") {
					t.Fatalf("block %d row %d: got %v, want %v", i, r, b.Rows[r], w.Rows[r])
				}
			}
		}
	}
}

func readZipString(t *testing.T, f *zip.File) string {
	t.Helper()
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("open %s: %v", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", f.Name, err)
	}
	return string(data)
}
