package convertpdf

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/goliatone/go-docexport/convert"
)

func TestRegisterBindsBackends(t *testing.T) {
	registry := convert.NewEngineRegistry()
	engines, err := Register(registry, DefaultOptions())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	t.Cleanup(func() { _ = engines.Close() })

	chromium, err := registry.Resolve(convert.RendererConfig{Backend: convert.BackendChromium, SupportPath: "/opt/chrome"})
	if err != nil {
		t.Fatalf("resolve chromium: %v", err)
	}
	ce, ok := chromium.(*ChromiumEngine)
	if !ok || ce.BrowserPath != "/opt/chrome" {
		t.Fatalf("unexpected chromium engine %#v", chromium)
	}
	again, _ := registry.Resolve(convert.RendererConfig{Backend: convert.BackendChromium, SupportPath: "/opt/chrome"})
	if again != chromium {
		t.Fatalf("expected chromium engine to be shared per browser path")
	}

	wk, err := registry.Resolve(convert.RendererConfig{Backend: convert.BackendWKHTMLTOPDF, SupportPath: "/usr/local/bin/wkhtmltopdf"})
	if err != nil {
		t.Fatalf("resolve wkhtmltopdf: %v", err)
	}
	if we, ok := wk.(WKHTMLTOPDFEngine); !ok || we.Command != "/usr/local/bin/wkhtmltopdf" {
		t.Fatalf("unexpected wkhtmltopdf engine %#v", wk)
	}

	if _, err := Register(registry, DefaultOptions()); !convert.IsKind(err, convert.KindValidation) {
		t.Fatalf("expected duplicate registration to fail, got %v", err)
	}
}

func TestWKHTMLTOPDFPageArgs(t *testing.T) {
	args := wkhtmltopdfPageArgs(convert.PDFRequest{
		Info:   convert.DocInfo{Title: "Report"},
		Config: convert.RendererConfig{Orientation: convert.OrientationLandscape},
	})
	got := strings.Join(args, " ")
	if got != "--quiet --page-size A4 --orientation Landscape --title Report" {
		t.Fatalf("unexpected args %q", got)
	}
}

func TestWKHTMLTOPDFMissingCommand(t *testing.T) {
	engine := WKHTMLTOPDFEngine{Command: "/nonexistent/wkhtmltopdf"}
	_, err := engine.Render(context.Background(), convert.PDFRequest{HTML: []byte("<p>x</p>")})
	if !convert.IsKind(err, convert.KindBackendNotFound) {
		t.Fatalf("expected backend not found, got %v", err)
	}
}

func TestWKHTMLTOPDFRenderSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping wkhtmltopdf smoke test in short mode")
	}
	path, err := exec.LookPath("wkhtmltopdf")
	if err != nil {
		t.Skip("wkhtmltopdf not installed")
	}
	pdf, err := WKHTMLTOPDFEngine{Command: path}.Render(context.Background(), convert.PDFRequest{
		HTML: []byte("<html><body><p>Hello</p></body></html>"),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		t.Fatalf("expected pdf output")
	}
}
