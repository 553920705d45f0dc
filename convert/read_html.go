package convert

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLReader parses HTML pages into documents.
type HTMLReader struct{}

// Read parses the page and collects headings, paragraphs, list items and
// tables in document order.
func (HTMLReader) Read(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := readAllContext(ctx, r)
	if err != nil {
		return nil, err
	}
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, NewError(KindLoadFailed, "html parse failed", err)
	}

	doc := &Document{}
	walkHTML(root, doc)
	return doc, nil
}

func walkHTML(n *html.Node, doc *Document) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Title:
			if doc.Info.Title == "" {
				doc.Info.Title = htmlText(n)
			}
			return
		case atom.Meta:
			applyHTMLMeta(n, &doc.Info)
			return
		case atom.Script, atom.Style, atom.Template, atom.Noscript:
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			if text := htmlText(n); text != "" {
				doc.AddHeading(int(n.Data[1]-'0'), text)
			}
			return
		case atom.P, atom.Li, atom.Pre, atom.Blockquote:
			if text := htmlText(n); text != "" {
				doc.AddParagraph(text)
			}
			return
		case atom.Table:
			if rows := htmlTableRows(n); len(rows) > 0 {
				doc.AddTable(rows)
			}
			return
		}
	}
	// Loose text between block children becomes its own paragraph.
	var inline []*html.Node
	flush := func() {
		if text := htmlText(inline...); text != "" {
			doc.AddParagraph(text)
		}
		inline = inline[:0]
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode || (c.Type == html.ElementNode && !htmlBlockAtoms[c.DataAtom]) {
			inline = append(inline, c)
			continue
		}
		flush()
		walkHTML(c, doc)
	}
	flush()
}

var htmlBlockAtoms = map[atom.Atom]bool{
	atom.Html: true, atom.Head: true, atom.Body: true, atom.Title: true, atom.Meta: true,
	atom.Script: true, atom.Style: true, atom.Template: true, atom.Noscript: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.P: true, atom.Li: true, atom.Pre: true, atom.Blockquote: true, atom.Table: true,
	atom.Div: true, atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Main: true, atom.Nav: true, atom.Aside: true, atom.Ul: true, atom.Ol: true,
	atom.Dl: true, atom.Dt: true, atom.Dd: true, atom.Form: true, atom.Fieldset: true,
	atom.Figure: true, atom.Figcaption: true, atom.Address: true, atom.Details: true,
	atom.Summary: true, atom.Hr: true,
}

func applyHTMLMeta(n *html.Node, info *DocInfo) {
	name := strings.ToLower(htmlAttr(n, "name"))
	content := strings.TrimSpace(htmlAttr(n, "content"))
	if content == "" {
		return
	}
	switch name {
	case "author":
		info.Creator = content
	case "subject":
		info.Subject = content
	case "keywords":
		info.Keywords = content
	case "description":
		info.Description = content
	case "last-modified-by":
		info.LastModifiedBy = content
	case "category":
		info.Category = content
	case "company":
		info.Company = content
	case "created":
		info.Created, _ = time.Parse(time.RFC3339, content)
	case "modified":
		info.Modified, _ = time.Parse(time.RFC3339, content)
	}
}

func htmlTableRows(table *html.Node) [][]string {
	var rows [][]string
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				var cells []string
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.DataAtom == atom.Td || cell.DataAtom == atom.Th) {
						cells = append(cells, htmlText(cell))
					}
				}
				rows = append(rows, cells)
			default:
				visit(c)
			}
		}
	}
	visit(table)
	return rows
}

// htmlText returns the text content of nodes with whitespace collapsed per
// line; <br> produces a line break.
func htmlText(nodes ...*html.Node) string {
	var sb strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Br {
				sb.WriteString("\n")
				return
			}
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for _, n := range nodes {
		visit(n)
	}

	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func htmlAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
