package convert

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

const odtMimeType = "application/vnd.oasis.opendocument.text"

// ODTextWriter writes an OpenDocument text package.
type ODTextWriter struct {
	Now func() time.Time
}

// Render writes doc as an .odt archive. The mimetype entry is stored first
// and uncompressed, as OpenDocument consumers sniff it at a fixed offset.
func (wr ODTextWriter) Render(ctx context.Context, doc *Document, w io.Writer) (RenderStats, error) {
	if err := ctx.Err(); err != nil {
		return RenderStats{}, err
	}
	if doc == nil {
		return RenderStats{}, NewError(KindValidation, "document is required", nil)
	}

	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	if err := writeZipPart(zw, "mimetype", odtMimeType, zip.Store); err != nil {
		return RenderStats{Bytes: cw.count}, err
	}
	parts := []struct {
		name    string
		content string
	}{
		{"META-INF/manifest.xml", odtManifest},
		{"content.xml", odtContent(doc)},
		{"styles.xml", odtStyles},
		{"meta.xml", odtMeta(doc.Info, nowFunc(wr.Now))},
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

const odtManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.2">
<manifest:file-entry manifest:full-path="/" manifest:version="1.2" manifest:media-type="application/vnd.oasis.opendocument.text"/>
<manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>
<manifest:file-entry manifest:full-path="styles.xml" manifest:media-type="text/xml"/>
<manifest:file-entry manifest:full-path="meta.xml" manifest:media-type="text/xml"/>
</manifest:manifest>`

const odtStyles = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-styles xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:style="urn:oasis:names:tc:opendocument:xmlns:style:1.0" office:version="1.2">
<office:styles><style:style style:name="Standard" style:family="paragraph"/></office:styles>
</office:document-styles>`

func odtContent(doc *Document) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0" xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0" office:version="1.2"><office:body><office:text>`)
	tables := 0
	for _, b := range doc.Blocks {
		switch b.Kind {
		case BlockHeading:
			fmt.Fprintf(&sb, `<text:h text:outline-level="%d">%s</text:h>`, headingLevel(b.Level), xmlEscape(b.Text))
		case BlockTable:
			tables++
			cols := 0
			for _, row := range b.Rows {
				if len(row) > cols {
					cols = len(row)
				}
			}
			fmt.Fprintf(&sb, `<table:table table:name="Table%d">`, tables)
			if cols > 0 {
				fmt.Fprintf(&sb, `<table:table-column table:number-columns-repeated="%d"/>`, cols)
			}
			for _, row := range b.Rows {
				sb.WriteString("<table:table-row>")
				for _, cell := range row {
					fmt.Fprintf(&sb, `<table:table-cell office:value-type="string"><text:p>%s</text:p></table:table-cell>`, xmlEscape(cell))
				}
				sb.WriteString("</table:table-row>")
			}
			sb.WriteString("</table:table>")
		default:
			fmt.Fprintf(&sb, "<text:p>%s</text:p>", xmlEscape(b.Text))
		}
	}
	sb.WriteString("</office:text></office:body></office:document-content>")
	return sb.String()
}

func odtMeta(info DocInfo, now time.Time) string {
	created := info.Created
	if created.IsZero() {
		created = now
	}
	modified := info.Modified
	if modified.IsZero() {
		modified = created
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<office:document-meta xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:meta="urn:oasis:names:tc:opendocument:xmlns:meta:1.0" xmlns:dc="http://purl.org/dc/elements/1.1/" office:version="1.2"><office:meta>`)
	writeXMLElement(&sb, "meta:generator", "go-docexport")
	writeXMLElement(&sb, "dc:title", info.Title)
	writeXMLElement(&sb, "dc:subject", info.Subject)
	writeXMLElement(&sb, "dc:description", info.Description)
	writeXMLElement(&sb, "meta:initial-creator", info.Creator)
	writeXMLElement(&sb, "dc:creator", firstNonEmpty(info.LastModifiedBy, info.Creator))
	for _, kw := range splitKeywords(info.Keywords) {
		writeXMLElement(&sb, "meta:keyword", kw)
	}
	if info.Category != "" {
		fmt.Fprintf(&sb, `<meta:user-defined meta:name="Category">%s</meta:user-defined>`, xmlEscape(info.Category))
	}
	if info.Company != "" {
		fmt.Fprintf(&sb, `<meta:user-defined meta:name="Company">%s</meta:user-defined>`, xmlEscape(info.Company))
	}
	writeXMLElement(&sb, "meta:creation-date", created.UTC().Format(time.RFC3339))
	writeXMLElement(&sb, "dc:date", modified.UTC().Format(time.RFC3339))
	sb.WriteString("</office:meta></office:document-meta>")
	return sb.String()
}

func splitKeywords(keywords string) []string {
	var out []string
	for _, kw := range strings.Split(keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
