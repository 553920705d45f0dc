package convert

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// RTFWriter writes documents as Rich Text Format.
type RTFWriter struct{}

var rtfHeadingSizes = [...]int{36, 32, 28, 26, 24, 24}

// Render writes doc as an RTF stream.
func (RTFWriter) Render(ctx context.Context, doc *Document, w io.Writer) (RenderStats, error) {
	if err := ctx.Err(); err != nil {
		return RenderStats{}, err
	}
	if doc == nil {
		return RenderStats{}, NewError(KindValidation, "document is required", nil)
	}

	var sb strings.Builder
	sb.WriteString(`{\rtf1\ansi\ansicpg1252\deff0{\fonttbl{\f0\fswiss Helvetica;}}`)
	sb.WriteString("\n")
	sb.WriteString(rtfInfo(doc.Info))
	sb.WriteString(`\pard\plain\f0\fs22`)
	sb.WriteString("\n")
	for _, b := range doc.Blocks {
		switch b.Kind {
		case BlockHeading:
			fmt.Fprintf(&sb, `{\pard\b\fs%d %s\par}`, rtfHeadingSizes[headingLevel(b.Level)-1], rtfEscape(b.Text))
		case BlockTable:
			for _, row := range b.Rows {
				sb.WriteString(`\trowd`)
				for i := range row {
					fmt.Fprintf(&sb, `\cellx%d`, (i+1)*2000)
				}
				sb.WriteString(" ")
				for _, cell := range row {
					sb.WriteString(`\pard\intbl `)
					sb.WriteString(rtfEscape(cell))
					sb.WriteString(`\cell `)
				}
				sb.WriteString(`\row`)
				sb.WriteString("\n")
			}
			sb.WriteString(`\pard`)
		default:
			fmt.Fprintf(&sb, `{\pard %s\par}`, rtfEscape(b.Text))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")

	cw := &countingWriter{w: w}
	if _, err := io.WriteString(cw, sb.String()); err != nil {
		return RenderStats{Bytes: cw.count}, err
	}
	return RenderStats{Bytes: cw.count}, nil
}

func rtfInfo(info DocInfo) string {
	var sb strings.Builder
	sb.WriteString(`{\info`)
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&sb, `{\%s %s}`, name, rtfEscape(value))
		}
	}
	field("title", info.Title)
	field("subject", info.Subject)
	field("author", info.Creator)
	field("keywords", info.Keywords)
	field("doccomm", info.Description)
	field("operator", info.LastModifiedBy)
	field("category", info.Category)
	field("company", info.Company)
	if !info.Created.IsZero() {
		sb.WriteString(`{\creatim` + rtfTime(info.Created) + `}`)
	}
	if !info.Modified.IsZero() {
		sb.WriteString(`{\revtim` + rtfTime(info.Modified) + `}`)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func rtfTime(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf(`\yr%d\mo%d\dy%d\hr%d\min%d`, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

func rtfEscape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == '\\' || r == '{' || r == '}':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\line `)
		case r == '\t':
			sb.WriteString(`\tab `)
		case r == '\r':
		case r < 0x80:
			sb.WriteRune(r)
		case r <= 0xFFFF:
			fmt.Fprintf(&sb, `\u%d?`, int16(r))
		default:
			// Characters outside the BMP are written as a UTF-16 surrogate pair.
			v := r - 0x10000
			fmt.Fprintf(&sb, `\u%d?\u%d?`, int16(0xD800+(v>>10)), int16(0xDC00+(v&0x3FF)))
		}
	}
	return sb.String()
}
