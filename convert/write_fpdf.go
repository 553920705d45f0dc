package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/jung-kurt/gofpdf"
)

// LegacyCodepageFile marks a support path that ships the legacy engine's
// code page map. Its presence selects the legacy entry point.
const LegacyCodepageFile = "cp1252.map"

const (
	fpdfEntryLegacy  = "legacy"
	fpdfEntryCurrent = "current"
)

const (
	fpdfFontFamily = "Helvetica"
	fpdfFontSize   = 11
	fpdfLineHeight = 5.5
)

// fpdfDocument is the method set shared by both native PDF libraries.
type fpdfDocument interface {
	AddPage()
	SetAutoPageBreak(auto bool, margin float64)
	SetTitle(titleStr string, isUTF8 bool)
	SetAuthor(authorStr string, isUTF8 bool)
	SetSubject(subjectStr string, isUTF8 bool)
	SetKeywords(keywordsStr string, isUTF8 bool)
	SetCreator(creatorStr string, isUTF8 bool)
	SetFont(familyStr, styleStr string, size float64)
	SetFontLocation(fontDirStr string)
	Output(w io.Writer) error
	Error() error
}

type fpdfEntryPoint struct {
	open       func(orientation, size, fontDir string) fpdfDocument
	translator func(doc fpdfDocument, supportPath string) (func(string) string, error)
	writeHTML  func(doc fpdfDocument, lineHt float64, html string)
}

var fpdfEntryPoints = map[string]fpdfEntryPoint{
	fpdfEntryLegacy: {
		open: func(orientation, size, fontDir string) fpdfDocument {
			return gofpdf.New(orientation, "mm", size, fontDir)
		},
		translator: func(_ fpdfDocument, supportPath string) (func(string) string, error) {
			return gofpdf.UnicodeTranslatorFromFile(filepath.Join(supportPath, LegacyCodepageFile))
		},
		writeHTML: func(doc fpdfDocument, lineHt float64, html string) {
			h := doc.(*gofpdf.Fpdf).HTMLBasicNew()
			h.Write(lineHt, html)
		},
	},
	fpdfEntryCurrent: {
		open: func(orientation, size, fontDir string) fpdfDocument {
			return fpdf.New(orientation, "mm", size, fontDir)
		},
		translator: func(doc fpdfDocument, _ string) (func(string) string, error) {
			pdf := doc.(*fpdf.Fpdf)
			tr := pdf.UnicodeTranslatorFromDescriptor("")
			return tr, pdf.Error()
		},
		writeHTML: func(doc fpdfDocument, lineHt float64, html string) {
			h := doc.(*fpdf.Fpdf).HTMLBasicNew()
			h.Write(lineHt, html)
		},
	},
}

// FPDFWriter renders PDF with a native engine instead of an HTML engine.
type FPDFWriter struct {
	HTML   HTMLWriter
	Config RendererConfig
	Logger Logger
	entry  string
}

// NewFPDFWriter applies defaults and picks the engine entry point for the
// configured support path.
func NewFPDFWriter(cfg RendererConfig) FPDFWriter {
	cfg = cfg.WithDefaults()
	return FPDFWriter{Config: cfg, entry: fpdfEntryFor(cfg.SupportPath)}
}

func fpdfEntryFor(supportPath string) string {
	if strings.TrimSpace(supportPath) == "" {
		return fpdfEntryCurrent
	}
	if info, err := os.Stat(filepath.Join(supportPath, LegacyCodepageFile)); err == nil && !info.IsDir() {
		return fpdfEntryLegacy
	}
	return fpdfEntryCurrent
}

// EntryPoint reports which engine entry point the writer uses.
func (w FPDFWriter) EntryPoint() string {
	if w.entry == "" {
		return fpdfEntryFor(w.Config.SupportPath)
	}
	return w.entry
}

// Render prepares the temp directory, configures the page and document
// properties, writes the HTML body and copies the finished PDF to out.
func (w FPDFWriter) Render(ctx context.Context, doc *Document, out io.Writer) (RenderStats, error) {
	if err := ctx.Err(); err != nil {
		return RenderStats{}, err
	}
	if doc == nil {
		return RenderStats{}, NewError(KindValidation, "document is required", nil)
	}

	cfg := w.Config.WithDefaults()
	if err := prepareTempDir(cfg.TempDir); err != nil {
		return RenderStats{}, err
	}

	entryName := w.EntryPoint()
	entry, ok := fpdfEntryPoints[entryName]
	if !ok {
		return RenderStats{}, NewError(KindBackendNotFound, fmt.Sprintf("fpdf entry point %q not found", entryName), nil)
	}
	logger := w.Logger
	if logger == nil {
		logger = NopLogger{}
	}
	logger.Debugf("fpdf render entry=%s page=%s orientation=%s", entryName, cfg.PageSize, cfg.Orientation)

	pdf := entry.open(fpdfOrientation(cfg.Orientation), cfg.PageSize, cfg.TempDir)
	pdf.SetFontLocation(cfg.TempDir)
	if err := pdf.Error(); err != nil {
		return RenderStats{}, NewError(KindExportFailed, "fpdf init failed", err)
	}
	tr, err := entry.translator(pdf, cfg.SupportPath)
	if err != nil {
		return RenderStats{}, NewError(KindBackendNotFound, "fpdf code page unavailable", err)
	}
	if tr == nil {
		tr = func(s string) string { return s }
	}

	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetTitle(doc.Info.Title, true)
	pdf.SetAuthor(doc.Info.Creator, true)
	pdf.SetSubject(doc.Info.Subject, true)
	pdf.SetKeywords(doc.Info.Keywords, true)
	pdf.SetCreator(doc.Info.Creator, true)
	pdf.SetFont(fpdfFontFamily, "", fpdfFontSize)
	entry.writeHTML(pdf, fpdfLineHeight, tr(w.HTML.BasicMarkup(doc)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return RenderStats{}, NewError(KindExportFailed, "fpdf output failed", err)
	}

	cw := &countingWriter{w: out}
	if _, err := cw.Write(buf.Bytes()); err != nil {
		return RenderStats{Bytes: cw.count}, err
	}
	return RenderStats{Bytes: cw.count}, nil
}

func fpdfOrientation(o Orientation) string {
	if o == OrientationLandscape {
		return "L"
	}
	return "P"
}

func prepareTempDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewError(KindBackendNotFound, fmt.Sprintf("pdf temp dir %q unavailable", dir), err)
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return NewError(KindBackendNotFound, fmt.Sprintf("pdf temp dir %q not writable", dir), err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}
