package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

// ODTextReader parses OpenDocument text packages.
type ODTextReader struct{}

// Read walks content.xml for blocks and meta.xml for properties.
func (ODTextReader) Read(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := readAllContext(ctx, r)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewError(KindLoadFailed, "odt is not a zip package", err)
	}

	content := findZipFile(zr, "content.xml")
	if content == nil {
		return nil, NewError(KindLoadFailed, "odt is missing content.xml", nil)
	}

	doc := &Document{}
	if err := readODTContent(content, doc); err != nil {
		return nil, NewError(KindLoadFailed, "odt content parse failed", err)
	}
	if meta := findZipFile(zr, "meta.xml"); meta != nil {
		if err := readODTMeta(meta, &doc.Info); err != nil {
			return nil, NewError(KindLoadFailed, "odt meta parse failed", err)
		}
	}
	return doc, nil
}

func readODTContent(f *zip.File, doc *Document) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	var (
		text       strings.Builder
		collecting bool
		nested     int
		heading    int
		tableDepth int
		rows       [][]string
		row        []string
		cell       []string
		inCell     bool
	)

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "note", "annotation":
				// Footnote and comment bodies carry their own paragraphs.
				if err := dec.Skip(); err != nil {
					return err
				}
			case "h", "p":
				if collecting {
					nested++
					continue
				}
				collecting = true
				text.Reset()
				heading = 0
				if t.Name.Local == "h" {
					heading = 1
					if lvl, err := strconv.Atoi(attrValue(t, "outline-level")); err == nil && lvl > 0 {
						heading = lvl
					}
				}
			case "s":
				if collecting {
					n := 1
					if c, err := strconv.Atoi(attrValue(t, "c")); err == nil && c > 0 {
						n = c
					}
					text.WriteString(strings.Repeat(" ", n))
				}
			case "tab":
				if collecting {
					text.WriteString("\t")
				}
			case "line-break":
				if collecting {
					text.WriteString("\n")
				}
			case "table":
				tableDepth++
				if tableDepth == 1 {
					rows = nil
				}
			case "table-row":
				if tableDepth == 1 {
					row = nil
				}
			case "table-cell":
				if tableDepth == 1 {
					inCell = true
					cell = nil
				}
			}
		case xml.CharData:
			if collecting {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "h", "p":
				if !collecting {
					continue
				}
				if nested > 0 {
					nested--
					continue
				}
				collecting = false
				value := text.String()
				switch {
				case inCell:
					cell = append(cell, value)
				case tableDepth > 0:
				case heading > 0:
					doc.AddHeading(heading, value)
				case strings.TrimSpace(value) != "":
					doc.AddParagraph(value)
				}
			case "table-cell":
				if tableDepth == 1 {
					row = append(row, strings.Join(cell, "\n"))
					inCell = false
				}
			case "table-row":
				if tableDepth == 1 {
					rows = append(rows, row)
				}
			case "table":
				if tableDepth == 1 && len(rows) > 0 {
					doc.AddTable(rows)
				}
				tableDepth--
			}
		}
	}
}

func readODTMeta(f *zip.File, info *DocInfo) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	var (
		current  string
		userName string
		value    strings.Builder
		keywords []string
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
			value.Reset()
			if current == "user-defined" {
				userName = attrValue(t, "name")
			}
		case xml.CharData:
			if current != "" {
				value.Write(t)
			}
		case xml.EndElement:
			v := strings.TrimSpace(value.String())
			switch t.Name.Local {
			case "title":
				info.Title = v
			case "subject":
				info.Subject = v
			case "description":
				info.Description = v
			case "initial-creator":
				info.Creator = v
			case "creator":
				info.LastModifiedBy = v
			case "keyword":
				if v != "" {
					keywords = append(keywords, v)
				}
			case "creation-date":
				info.Created = parseW3CDate(v)
			case "date":
				info.Modified = parseW3CDate(v)
			case "user-defined":
				switch userName {
				case "Category":
					info.Category = v
				case "Company":
					info.Company = v
				}
			}
			current = ""
		}
	}
	if info.Creator == "" {
		info.Creator = info.LastModifiedBy
	}
	info.Keywords = strings.Join(keywords, ", ")
	return nil
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
