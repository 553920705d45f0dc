package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// Word2007Writer writes a minimal OOXML word processing package.
type Word2007Writer struct {
	Now func() time.Time
}

// Render writes doc as a .docx archive.
func (wr Word2007Writer) Render(ctx context.Context, doc *Document, w io.Writer) (RenderStats, error) {
	if err := ctx.Err(); err != nil {
		return RenderStats{}, err
	}
	if doc == nil {
		return RenderStats{}, NewError(KindValidation, "document is required", nil)
	}

	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRootRels},
		{"word/_rels/document.xml.rels", docxDocumentRels},
		{"word/document.xml", docxBody(doc)},
		{"word/styles.xml", docxStyles},
		{"docProps/core.xml", docxCoreProps(doc.Info, nowFunc(wr.Now))},
		{"docProps/app.xml", docxAppProps(doc.Info)},
	}
	for _, part := range parts {
		if err := writeZipPart(zw, part.name, part.content, zip.Deflate); err != nil {
			return RenderStats{Bytes: cw.count}, err
		}
	}
	if err := zw.Close(); err != nil {
		return RenderStats{Bytes: cw.count}, err
	}
	return RenderStats{Bytes: cw.count}, nil
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>
</Types>`

const docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties" Target="docProps/app.xml"/>
</Relationships>`

const docxDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

var docxStyles = buildDocxStyles()

func buildDocxStyles() string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="48"/></w:rPr></w:style>
`)
	sizes := []int{32, 28, 26, 24, 22, 22}
	for i, size := range sizes {
		fmt.Fprintf(&sb, `<w:style w:type="paragraph" w:styleId="Heading%d"><w:name w:val="heading %d"/><w:basedOn w:val="Normal"/><w:pPr><w:outlineLvl w:val="%d"/></w:pPr><w:rPr><w:b/><w:sz w:val="%d"/></w:rPr></w:style>
`, i+1, i+1, i, size)
	}
	sb.WriteString(`<w:style w:type="table" w:styleId="TableGrid"><w:name w:val="Table Grid"/></w:style>
</w:styles>`)
	return sb.String()
}

func docxBody(doc *Document) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, b := range doc.Blocks {
		switch b.Kind {
		case BlockHeading:
			sb.WriteString(docxParagraph(b.Text, fmt.Sprintf("Heading%d", headingLevel(b.Level))))
		case BlockTable:
			sb.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/></w:tblPr>`)
			for _, row := range b.Rows {
				sb.WriteString("<w:tr>")
				for _, cell := range row {
					sb.WriteString("<w:tc>")
					sb.WriteString(docxParagraph(cell, ""))
					sb.WriteString("</w:tc>")
				}
				sb.WriteString("</w:tr>")
			}
			sb.WriteString("</w:tbl>")
		default:
			sb.WriteString(docxParagraph(b.Text, ""))
		}
	}
	sb.WriteString(`<w:sectPr/></w:body></w:document>`)
	return sb.String()
}

func docxParagraph(text, style string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	if style != "" {
		fmt.Fprintf(&sb, `<w:pPr><w:pStyle w:val="%s"/></w:pPr>`, style)
	}
	if text != "" {
		sb.WriteString(`<w:r><w:t xml:space="preserve">`)
		sb.WriteString(xmlEscape(text))
		sb.WriteString("</w:t></w:r>")
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

func docxCoreProps(info DocInfo, now time.Time) string {
	created := info.Created
	if created.IsZero() {
		created = now
	}
	modified := info.Modified
	if modified.IsZero() {
		modified = created
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	writeXMLElement(&sb, "dc:title", info.Title)
	writeXMLElement(&sb, "dc:subject", info.Subject)
	writeXMLElement(&sb, "dc:creator", info.Creator)
	writeXMLElement(&sb, "cp:keywords", info.Keywords)
	writeXMLElement(&sb, "dc:description", info.Description)
	writeXMLElement(&sb, "cp:lastModifiedBy", info.LastModifiedBy)
	writeXMLElement(&sb, "cp:category", info.Category)
	fmt.Fprintf(&sb, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, created.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, `<dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>`, modified.UTC().Format(time.RFC3339))
	sb.WriteString("</cp:coreProperties>")
	return sb.String()
}

func docxAppProps(info DocInfo) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">`)
	writeXMLElement(&sb, "Application", "go-docexport")
	writeXMLElement(&sb, "Company", info.Company)
	sb.WriteString("</Properties>")
	return sb.String()
}

func writeXMLElement(sb *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	sb.WriteString("<" + name + ">")
	sb.WriteString(xmlEscape(value))
	sb.WriteString("</" + name + ">")
}

func writeZipPart(zw *zip.Writer, name, content string, method uint16) error {
	f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return err
	}
	_, err = io.WriteString(f, content)
	return err
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func nowFunc(fn func() time.Time) time.Time {
	if fn != nil {
		return fn()
	}
	return time.Now()
}
