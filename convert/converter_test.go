package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type headerCall struct {
	name  string
	value string
}

type stubResponse struct {
	calls   []headerCall
	deleted []string
	body    bytes.Buffer
	// headersAtFirstWrite records how many headers were set before the body.
	headersAtFirstWrite int
	wrote               bool
}

func (r *stubResponse) SetHeader(name, value string) {
	r.calls = append(r.calls, headerCall{name: name, value: value})
}

func (r *stubResponse) DelHeader(name string) {
	r.deleted = append(r.deleted, name)
}

func (r *stubResponse) Write(p []byte) (int, error) {
	if !r.wrote {
		r.wrote = true
		r.headersAtFirstWrite = len(r.calls)
	}
	return r.body.Write(p)
}

func newTestConverter(t *testing.T) (*Converter, *int) {
	t.Helper()
	calls := 0
	engines := NewEngineRegistry()
	if err := engines.Register(BackendWKHTMLTOPDF, stubEngine(&calls)); err != nil {
		t.Fatalf("register: %v", err)
	}
	return NewConverter(engines), &calls
}

func TestExportDownloadHeadersInOrder(t *testing.T) {
	conv, _ := newTestConverter(t)
	res := &stubResponse{}
	cfg := RendererConfig{Backend: BackendFPDF, TempDir: t.TempDir()}

	result, err := conv.Export(context.Background(), sampleDocument(), OutputStream{Response: res}, FormatPDF, "sample_TCPDF.pdf", WithConfig(cfg))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	want := []headerCall{
		{"Content-Description", "File Transfer"},
		{"Content-Disposition", `attachment; filename="sample_TCPDF.pdf"`},
		{"Content-Type", "application/pdf"},
		{"Content-Transfer-Encoding", "binary"},
		{"Cache-Control", "must-revalidate, post-check=0, pre-check=0"},
		{"Expires", "0"},
	}
	if len(res.calls) != len(want) {
		t.Fatalf("expected %d headers, got %v", len(want), res.calls)
	}
	for i, call := range res.calls {
		if call != want[i] {
			t.Fatalf("header %d: got %+v, want %+v", i, call, want[i])
		}
	}
	if res.headersAtFirstWrite != len(want) {
		t.Fatalf("expected all headers before body, got %d", res.headersAtFirstWrite)
	}

	body := res.body.Bytes()
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		t.Fatalf("expected pdf body")
	}
	if !bytes.HasSuffix(bytes.TrimSpace(body), []byte("%%EOF")) {
		t.Fatalf("expected body to contain only the pdf")
	}
	if result.Bytes != int64(len(body)) || result.Filename != "sample_TCPDF.pdf" || result.Backend != BackendFPDF {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestExportUnknownMimeTypeWritesNothing(t *testing.T) {
	conv, _ := newTestConverter(t)
	conv.MIMETypes = DefaultMIMETypes()
	delete(conv.MIMETypes, FormatRTF)
	res := &stubResponse{}

	_, err := conv.Export(context.Background(), sampleDocument(), OutputStream{Response: res}, FormatRTF, "doc.rtf")
	if !IsKind(err, KindUnknownMimeType) {
		t.Fatalf("expected unknown mime type, got %v", err)
	}
	if len(res.calls) != 0 || res.body.Len() != 0 {
		t.Fatalf("expected nothing written, got headers %v body %d", res.calls, res.body.Len())
	}
}

func TestExportSanitizesDownloadFilename(t *testing.T) {
	conv, _ := newTestConverter(t)
	res := &stubResponse{}
	result, err := conv.Export(context.Background(), sampleDocument(), OutputStream{Response: res}, FormatHTML, `../evil"name.html`)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Filename != ".._evilname.html" {
		t.Fatalf("unexpected filename %q", result.Filename)
	}
	if res.calls[1].value != `attachment; filename=".._evilname.html"` {
		t.Fatalf("unexpected disposition %q", res.calls[1].value)
	}

	if got := SanitizeFilename("", FormatODText); got != "document.odt" {
		t.Fatalf("expected default filename, got %q", got)
	}
}

func TestExportFailureBeforeWriteClearsHeaders(t *testing.T) {
	engines := NewEngineRegistry()
	_ = engines.Register(BackendChromium, func(cfg RendererConfig) (Engine, error) {
		return EngineFunc(func(ctx context.Context, req PDFRequest) ([]byte, error) {
			return nil, errors.New("engine crashed")
		}), nil
	})
	conv := NewConverter(engines)
	res := &stubResponse{}

	_, err := conv.Export(context.Background(), sampleDocument(), OutputStream{Response: res}, FormatPDF, "x.pdf", WithConfig(RendererConfig{Backend: BackendChromium}))
	if !IsKind(err, KindExportFailed) {
		t.Fatalf("expected export failed, got %v", err)
	}
	if len(res.deleted) != len(downloadHeaderNames) {
		t.Fatalf("expected download headers to be cleared, got %v", res.deleted)
	}
	if res.body.Len() != 0 {
		t.Fatalf("expected empty body")
	}
}

func TestExportToFilePath(t *testing.T) {
	conv, _ := newTestConverter(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "out.rtf")
	if err := os.WriteFile(target, []byte("old content that is longer than nothing"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := conv.Export(context.Background(), sampleDocument(), FilePath(target), FormatRTF, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte(`{\rtf1`)) {
		t.Fatalf("expected rtf content, got %q", data[:min(len(data), 16)])
	}
	if result.Path != target || result.Bytes != int64(len(data)) {
		t.Fatalf("unexpected result %+v", result)
	}
	assertNoTempFiles(t, dir)
}

func TestExportToFilePathFailureKeepsExistingFile(t *testing.T) {
	engines := NewEngineRegistry()
	_ = engines.Register(BackendChromium, func(cfg RendererConfig) (Engine, error) {
		return EngineFunc(func(ctx context.Context, req PDFRequest) ([]byte, error) {
			return nil, errors.New("engine crashed")
		}), nil
	})
	conv := NewConverter(engines)
	dir := t.TempDir()
	target := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(target, []byte("previous"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := conv.Export(context.Background(), sampleDocument(), FilePath(target), FormatPDF, "", WithConfig(RendererConfig{Backend: BackendChromium}))
	if !IsKind(err, KindExportFailed) {
		t.Fatalf("expected export failed, got %v", err)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "previous" {
		t.Fatalf("expected existing file untouched, got %q", data)
	}
	assertNoTempFiles(t, dir)
}

func TestExportToMissingDirectoryFails(t *testing.T) {
	conv, _ := newTestConverter(t)
	target := filepath.Join(t.TempDir(), "missing", "out.html")
	if _, err := conv.Export(context.Background(), sampleDocument(), FilePath(target), FormatHTML, ""); !IsKind(err, KindExportFailed) {
		t.Fatalf("expected export failed, got %v", err)
	}
}

func TestExportValidatesBeforeWriting(t *testing.T) {
	conv, _ := newTestConverter(t)
	res := &stubResponse{}
	if _, err := conv.Export(context.Background(), sampleDocument(), OutputStream{Response: res}, "Excel5", "x.xls"); !IsKind(err, KindInvalidFormat) {
		t.Fatalf("expected invalid format, got %v", err)
	}
	if _, err := conv.Export(context.Background(), sampleDocument(), OutputStream{Response: res}, FormatPDF, "x.pdf", WithConfig(RendererConfig{})); !IsKind(err, KindBackendNotFound) {
		t.Fatalf("expected backend not found, got %v", err)
	}
	if _, err := conv.Export(context.Background(), nil, OutputStream{Response: res}, FormatHTML, "x.html"); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(res.calls) != 0 {
		t.Fatalf("expected no headers, got %v", res.calls)
	}
}

func TestGlobalSettingsInterleaveWhileExplicitConfigDoesNot(t *testing.T) {
	t.Cleanup(ResetSettings)
	conv, calls := newTestConverter(t)
	tempDir := t.TempDir()

	// Caller A selects the native backend, then caller B switches the
	// process-wide backend before A exports.
	SetPDFRendererConfig(RendererConfig{Backend: BackendFPDF, TempDir: tempDir})
	SetPDFRenderer(BackendWKHTMLTOPDF, "/usr/bin/wkhtmltopdf")

	resA := &stubResponse{}
	resultA, err := conv.Export(context.Background(), sampleDocument(), OutputStream{Response: resA}, FormatPDF, "a.pdf")
	if err != nil {
		t.Fatalf("export A: %v", err)
	}
	if resultA.Backend != BackendWKHTMLTOPDF || *calls != 1 {
		t.Fatalf("expected A to observe B's backend, got %s", resultA.Backend)
	}

	resPinned := &stubResponse{}
	pinned, err := conv.Export(context.Background(), sampleDocument(), OutputStream{Response: resPinned}, FormatPDF, "a.pdf",
		WithConfig(RendererConfig{Backend: BackendFPDF, TempDir: tempDir}))
	if err != nil {
		t.Fatalf("export pinned: %v", err)
	}
	if pinned.Backend != BackendFPDF || *calls != 1 {
		t.Fatalf("expected pinned config to use fpdf, got %s", pinned.Backend)
	}
	if !bytes.Contains(resPinned.body.Bytes(), []byte("/MediaBox")) {
		t.Fatalf("expected native pdf output")
	}
}

func TestLoadWord2007(t *testing.T) {
	conv, _ := newTestConverter(t)
	path := filepath.Join(t.TempDir(), "in.docx")
	if _, err := conv.Export(context.Background(), sampleDocument(), FilePath(path), FormatWord2007, ""); err != nil {
		t.Fatalf("seed: %v", err)
	}

	doc, err := conv.Load(context.Background(), path, "docx")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Info.Title != "Quarterly Report" {
		t.Fatalf("unexpected title %q", doc.Info.Title)
	}
}

func TestLoadFailures(t *testing.T) {
	conv, _ := newTestConverter(t)
	dir := t.TempDir()

	if _, err := conv.Load(context.Background(), filepath.Join(dir, "missing.docx"), FormatWord2007); !IsKind(err, KindLoadFailed) {
		t.Fatalf("expected load failed for missing file, got %v", err)
	}

	bad := filepath.Join(dir, "bad.docx")
	if err := os.WriteFile(bad, []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := conv.Load(context.Background(), bad, FormatWord2007); !IsKind(err, KindLoadFailed) {
		t.Fatalf("expected load failed for bad zip, got %v", err)
	}

	odt := filepath.Join(dir, "doc.odt")
	if _, err := conv.Export(context.Background(), sampleDocument(), FilePath(odt), FormatODText, ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := conv.Load(context.Background(), odt, FormatWord2007)
	if !IsKind(err, KindLoadFailed) || !strings.Contains(err.Error(), "word/document.xml") {
		t.Fatalf("expected missing document part, got %v", err)
	}

	if _, err := conv.Load(context.Background(), bad, "Excel5"); !IsKind(err, KindInvalidFormat) {
		t.Fatalf("expected invalid format, got %v", err)
	}
	if _, err := conv.Load(context.Background(), bad, FormatPDF); !IsKind(err, KindNotConstructible) {
		t.Fatalf("expected not constructible, got %v", err)
	}
}

func TestConvertAcrossFormats(t *testing.T) {
	conv, _ := newTestConverter(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src.docx")
	if _, err := conv.Export(context.Background(), sampleDocument(), FilePath(src), FormatWord2007, ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	doc, err := conv.Load(context.Background(), src, FormatWord2007)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, format := range []Format{FormatODText, FormatRTF, FormatHTML} {
		target := filepath.Join(dir, "out."+Extension(format))
		if _, err := conv.Export(context.Background(), doc, FilePath(target), format, ""); err != nil {
			t.Fatalf("export %s: %v", format, err)
		}
		back, err := conv.Load(context.Background(), target, format)
		if err != nil {
			t.Fatalf("load %s: %v", format, err)
		}
		if back.Info.Title != "Quarterly Report" {
			t.Fatalf("%s: unexpected title %q", format, back.Info.Title)
		}
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("unexpected temp file %s", e.Name())
		}
	}
}
