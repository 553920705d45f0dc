package convert

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
)

const htmlTemplateSource = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ info.Title }}</title>
{% for m in meta %}<meta name="{{ m.Name }}" content="{{ m.Content }}">
{% endfor %}</head>
<body>
{% for b in blocks %}{% if b.Heading %}<h{{ b.Level }}>{{ b.Text }}</h{{ b.Level }}>
{% elif b.Table %}<table>
{% for row in b.Rows %}<tr>{% for cell in row %}<td>{{ cell }}</td>{% endfor %}</tr>
{% endfor %}</table>
{% else %}<p>{{ b.Text }}</p>
{% endif %}{% endfor %}</body>
</html>
`

var htmlTemplate = pongo2.Must(pongo2.FromString(htmlTemplateSource))

type htmlMeta struct {
	Name    string
	Content string
}

type htmlBlock struct {
	Heading bool
	Table   bool
	Level   int
	Text    string
	Rows    [][]string
}

// HTMLWriter renders documents as a standalone HTML page.
type HTMLWriter struct{}

// Render executes the page template for doc.
func (HTMLWriter) Render(ctx context.Context, doc *Document, w io.Writer) (RenderStats, error) {
	if err := ctx.Err(); err != nil {
		return RenderStats{}, err
	}
	if doc == nil {
		return RenderStats{}, NewError(KindValidation, "document is required", nil)
	}

	blocks := make([]htmlBlock, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		blocks = append(blocks, htmlBlock{
			Heading: b.Kind == BlockHeading,
			Table:   b.Kind == BlockTable,
			Level:   headingLevel(b.Level),
			Text:    b.Text,
			Rows:    b.Rows,
		})
	}

	cw := &countingWriter{w: w}
	err := htmlTemplate.ExecuteWriter(pongo2.Context{
		"info":   doc.Info,
		"meta":   htmlMetaTags(doc.Info),
		"blocks": blocks,
	}, cw)
	if err != nil {
		return RenderStats{Bytes: cw.count}, NewError(KindExportFailed, "html template failed", err)
	}
	return RenderStats{Bytes: cw.count}, nil
}

// BasicMarkup renders doc using only the tags understood by simple PDF
// HTML writers: bold and line breaks.
func (HTMLWriter) BasicMarkup(doc *Document) string {
	var sb strings.Builder
	for _, b := range doc.Blocks {
		switch b.Kind {
		case BlockHeading:
			sb.WriteString("<b>")
			sb.WriteString(basicText(b.Text))
			sb.WriteString("</b><br><br>")
		case BlockTable:
			for _, row := range b.Rows {
				cells := make([]string, len(row))
				for i, cell := range row {
					cells[i] = basicText(cell)
				}
				sb.WriteString(strings.Join(cells, " | "))
				sb.WriteString("<br>")
			}
			sb.WriteString("<br>")
		default:
			sb.WriteString(basicText(b.Text))
			sb.WriteString("<br><br>")
		}
	}
	return sb.String()
}

// Simple HTML writers do not decode entities, so angle brackets in text
// become single guillemets instead of being escaped.
var basicTextReplacer = strings.NewReplacer("<", "‹", ">", "›", "\r\n", "<br>", "\n", "<br>")

func basicText(s string) string {
	return basicTextReplacer.Replace(s)
}

func headingLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

func htmlMetaTags(info DocInfo) []htmlMeta {
	var out []htmlMeta
	add := func(name, content string) {
		if strings.TrimSpace(content) != "" {
			out = append(out, htmlMeta{Name: name, Content: content})
		}
	}
	add("author", info.Creator)
	add("subject", info.Subject)
	add("keywords", info.Keywords)
	add("description", info.Description)
	add("last-modified-by", info.LastModifiedBy)
	add("category", info.Category)
	add("company", info.Company)
	if !info.Created.IsZero() {
		add("created", info.Created.UTC().Format(time.RFC3339))
	}
	if !info.Modified.IsZero() {
		add("modified", info.Modified.UTC().Format(time.RFC3339))
	}
	return out
}
