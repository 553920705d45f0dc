package convert

import "strings"

var formats = []Format{FormatWord2007, FormatODText, FormatRTF, FormatHTML, FormatPDF}

// Formats returns the closed set of supported formats.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// IsSupported reports whether format is a member of the closed set.
func IsSupported(format Format) bool {
	for _, f := range formats {
		if f == format {
			return true
		}
	}
	return false
}

// NormalizeFormat maps aliases onto canonical format names. Unknown values
// are returned trimmed and otherwise untouched so validation can name them.
func NormalizeFormat(format Format) Format {
	trimmed := strings.TrimSpace(string(format))
	switch strings.ToLower(trimmed) {
	case "word2007", "docx", "word":
		return FormatWord2007
	case "odtext", "odt":
		return FormatODText
	case "rtf":
		return FormatRTF
	case "html", "htm":
		return FormatHTML
	case "pdf":
		return FormatPDF
	default:
		return Format(trimmed)
	}
}

// FormatFromExtension maps a file extension (with or without dot) to a format.
func FormatFromExtension(ext string) (Format, bool) {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		return "", false
	}
	format := NormalizeFormat(Format(ext))
	return format, IsSupported(format)
}

// Extension returns the conventional file extension for a format.
func Extension(format Format) string {
	switch format {
	case FormatWord2007:
		return "docx"
	case FormatODText:
		return "odt"
	case FormatRTF:
		return "rtf"
	case FormatHTML:
		return "html"
	case FormatPDF:
		return "pdf"
	default:
		return ""
	}
}

// ParseBackend maps backend names, including the legacy renderer names,
// onto a Backend.
func ParseBackend(name string) (Backend, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return BackendNone, true
	case "chromium", "chrome", "dompdf":
		return BackendChromium, true
	case "wkhtmltopdf", "tcpdf":
		return BackendWKHTMLTOPDF, true
	case "fpdf", "gofpdf", "mpdf":
		return BackendFPDF, true
	default:
		return BackendNone, false
	}
}
