package convert

import "fmt"

// MIMETypes maps formats to the content type sent with downloads.
type MIMETypes map[Format]string

// DefaultMIMETypes returns the MIME table for every supported format.
func DefaultMIMETypes() MIMETypes {
	return MIMETypes{
		FormatWord2007: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		FormatODText:   "application/vnd.oasis.opendocument.text",
		FormatRTF:      "application/rtf",
		FormatHTML:     "text/html",
		FormatPDF:      "application/pdf",
	}
}

// Lookup returns the MIME type for format or an UnknownMimeType error.
func (m MIMETypes) Lookup(format Format) (string, error) {
	if mime, ok := m[format]; ok && mime != "" {
		return mime, nil
	}
	return "", NewError(KindUnknownMimeType, fmt.Sprintf("no mime type for format %q", string(format)), nil)
}
