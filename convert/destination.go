package convert

import (
	"fmt"
	"io"
	"strings"
)

// Destination is where Export writes. It is either a FilePath or an
// OutputStream.
type Destination interface {
	isDestination()
}

// FilePath writes the export to a file, replacing any existing file.
type FilePath string

func (FilePath) isDestination() {}

// Response is a download stream that accepts headers before the body.
type Response interface {
	io.Writer
	SetHeader(name, value string)
}

// HeaderDeleter is implemented by responses that can drop headers set
// before a failed write.
type HeaderDeleter interface {
	DelHeader(name string)
}

// OutputStream sends the export as a file download.
type OutputStream struct {
	Response Response
}

func (OutputStream) isDestination() {}

var downloadHeaderNames = []string{
	"Content-Description",
	"Content-Disposition",
	"Content-Type",
	"Content-Transfer-Encoding",
	"Cache-Control",
	"Expires",
}

// setDownloadHeaders writes the download header sequence in its fixed order.
func setDownloadHeaders(res Response, filename, contentType string) {
	res.SetHeader("Content-Description", "File Transfer")
	res.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	res.SetHeader("Content-Type", contentType)
	res.SetHeader("Content-Transfer-Encoding", "binary")
	res.SetHeader("Cache-Control", "must-revalidate, post-check=0, pre-check=0")
	res.SetHeader("Expires", "0")
}

func clearDownloadHeaders(res Response) {
	deleter, ok := res.(HeaderDeleter)
	if !ok {
		return
	}
	for _, name := range downloadHeaderNames {
		deleter.DelHeader(name)
	}
}

// SanitizeFilename strips quotes and path separators from a download name
// and falls back to document.<ext>.
func SanitizeFilename(filename string, format Format) string {
	name := strings.TrimSpace(filename)
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" {
		if ext := Extension(format); ext != "" {
			return "document." + ext
		}
		return "document"
	}
	return name
}

type trackingWriter struct {
	writer  io.Writer
	written bool
}

func (w *trackingWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.written = true
	}
	return w.writer.Write(p)
}

func (w *trackingWriter) Written() bool {
	return w.written
}
