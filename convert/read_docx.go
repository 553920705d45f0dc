package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fumiama/go-docx"
)

// Word2007Reader parses .docx packages.
type Word2007Reader struct{}

// Read parses the body with go-docx and the core properties from
// docProps/core.xml.
func (Word2007Reader) Read(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := readAllContext(ctx, r)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewError(KindLoadFailed, "docx is not a zip package", err)
	}
	if findZipFile(zr, "word/document.xml") == nil {
		return nil, NewError(KindLoadFailed, "docx is missing word/document.xml", nil)
	}

	parsed, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewError(KindLoadFailed, "docx body parse failed", err)
	}

	doc := &Document{}
	for _, item := range parsed.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			appendDocxParagraph(doc, it)
		case *docx.Table:
			if rows := docxTableRows(it); len(rows) > 0 {
				doc.AddTable(rows)
			}
		}
	}

	if f := findZipFile(zr, "docProps/core.xml"); f != nil {
		var core docxCore
		if err := decodeZipXML(f, &core); err != nil {
			return nil, NewError(KindLoadFailed, "docx core properties parse failed", err)
		}
		core.apply(&doc.Info)
	}
	if f := findZipFile(zr, "docProps/app.xml"); f != nil {
		var app docxApp
		if err := decodeZipXML(f, &app); err == nil {
			doc.Info.Company = strings.TrimSpace(app.Company)
		}
	}
	return doc, nil
}

func appendDocxParagraph(doc *Document, p *docx.Paragraph) {
	text := p.String()
	style := ""
	if p.Properties != nil && p.Properties.Style != nil {
		style = p.Properties.Style.Val
	}
	if level, ok := docxHeadingLevel(style); ok {
		if strings.TrimSpace(text) != "" {
			doc.AddHeading(level, text)
		}
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	doc.AddParagraph(text)
}

// docxHeadingLevel maps paragraph style ids such as Heading2 or Title.
func docxHeadingLevel(style string) (int, bool) {
	lower := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if lower == "title" {
		return 1, true
	}
	if rest, ok := strings.CutPrefix(lower, "heading"); ok {
		level, err := strconv.Atoi(rest)
		if err == nil && level > 0 {
			return level, true
		}
	}
	return 0, false
}

func docxTableRows(t *docx.Table) [][]string {
	var rows [][]string
	for _, row := range t.TableRows {
		if row == nil {
			continue
		}
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			if cell == nil {
				cells = append(cells, "")
				continue
			}
			parts := make([]string, 0, len(cell.Paragraphs))
			for _, p := range cell.Paragraphs {
				if s := p.String(); s != "" {
					parts = append(parts, s)
				}
			}
			cells = append(cells, strings.Join(parts, "\n"))
		}
		rows = append(rows, cells)
	}
	return rows
}

type docxCore struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	Keywords       string `xml:"keywords"`
	Description    string `xml:"description"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Category       string `xml:"category"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

func (c docxCore) apply(info *DocInfo) {
	info.Title = strings.TrimSpace(c.Title)
	info.Subject = strings.TrimSpace(c.Subject)
	info.Creator = strings.TrimSpace(c.Creator)
	info.Keywords = strings.TrimSpace(c.Keywords)
	info.Description = strings.TrimSpace(c.Description)
	info.LastModifiedBy = strings.TrimSpace(c.LastModifiedBy)
	info.Category = strings.TrimSpace(c.Category)
	info.Created = parseW3CDate(c.Created)
	info.Modified = parseW3CDate(c.Modified)
}

type docxApp struct {
	Company string `xml:"Company"`
}

func parseW3CDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func decodeZipXML(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

func readAllContext(ctx context.Context, r io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewError(KindLoadFailed, "read source failed", err)
	}
	return data, nil
}
