package convert

import (
	"context"
	"io"
	"time"
)

// Format identifies a document format in the closed registry.
type Format string

const (
	FormatWord2007 Format = "Word2007"
	FormatODText   Format = "ODText"
	FormatRTF      Format = "RTF"
	FormatHTML     Format = "HTML"
	FormatPDF      Format = "PDF"
)

// Backend names the engine that turns documents into PDF.
type Backend string

const (
	BackendNone        Backend = ""
	BackendChromium    Backend = "chromium"
	BackendWKHTMLTOPDF Backend = "wkhtmltopdf"
	BackendFPDF        Backend = "fpdf"
)

// Orientation is the page orientation used by PDF writers.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

const (
	DefaultPageSize    = "A4"
	DefaultOrientation = OrientationPortrait
)

// RendererConfig selects the PDF backend and where its support files live.
type RendererConfig struct {
	Backend     Backend
	SupportPath string
	TempDir     string
	PageSize    string
	Orientation Orientation
}

// BlockKind tags a document block.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockHeading   BlockKind = "heading"
	BlockTable     BlockKind = "table"
)

// Block is one unit of document content.
type Block struct {
	Kind  BlockKind
	Level int
	Text  string
	Rows  [][]string
}

// DocInfo carries core document properties.
type DocInfo struct {
	Title          string
	Creator        string
	Subject        string
	Keywords       string
	Description    string
	LastModifiedBy string
	Category       string
	Company        string
	Created        time.Time
	Modified       time.Time
}

// Document is the in-memory model shared by readers and writers.
type Document struct {
	Info   DocInfo
	Blocks []Block
}

// AddParagraph appends a paragraph block.
func (d *Document) AddParagraph(text string) {
	d.Blocks = append(d.Blocks, Block{Kind: BlockParagraph, Text: text})
}

// AddHeading appends a heading block, clamping the level to 1..6.
func (d *Document) AddHeading(level int, text string) {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	d.Blocks = append(d.Blocks, Block{Kind: BlockHeading, Level: level, Text: text})
}

// AddTable appends a table block.
func (d *Document) AddTable(rows [][]string) {
	d.Blocks = append(d.Blocks, Block{Kind: BlockTable, Rows: rows})
}

// Reader parses a source stream into a document.
type Reader interface {
	Read(ctx context.Context, r io.Reader) (*Document, error)
}

// Writer serializes a document into a destination stream.
type Writer interface {
	Render(ctx context.Context, doc *Document, w io.Writer) (RenderStats, error)
}

// RenderStats capture writer output.
type RenderStats struct {
	Bytes int64
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
