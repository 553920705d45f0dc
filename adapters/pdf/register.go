package convertpdf

import (
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-docexport/convert"
)

// ChromiumOptions configures Chromium engines built by Register.
type ChromiumOptions struct {
	Headless bool
	Timeout  time.Duration
	Args     []string
	Page     PageOptions
}

// WKHTMLTOPDFOptions configures wkhtmltopdf engines built by Register.
type WKHTMLTOPDFOptions struct {
	Args    []string
	Env     []string
	Timeout time.Duration
}

// Options configures the engines registered by Register.
type Options struct {
	Chromium    ChromiumOptions
	WKHTMLTOPDF WKHTMLTOPDFOptions
}

// DefaultOptions returns the options used by the CLI and server.
func DefaultOptions() Options {
	return Options{
		Chromium: ChromiumOptions{
			Headless: true,
			Timeout:  30 * time.Second,
			Args:     []string{"--no-sandbox", "--disable-dev-shm-usage"},
			Page:     PageOptions{MarginTop: "10mm", MarginBottom: "10mm", MarginLeft: "10mm", MarginRight: "10mm"},
		},
		WKHTMLTOPDF: WKHTMLTOPDFOptions{Timeout: 30 * time.Second},
	}
}

// Engines owns the Chromium instances created for registered backends.
// The support path of a renderer configuration selects the browser or
// command binary.
type Engines struct {
	opts     Options
	mu       sync.Mutex
	chromium map[string]*ChromiumEngine
}

// Register adds the chromium and wkhtmltopdf backends to registry.
func Register(registry *convert.EngineRegistry, opts Options) (*Engines, error) {
	engines := &Engines{opts: opts, chromium: make(map[string]*ChromiumEngine)}
	if err := registry.Register(convert.BackendChromium, engines.chromiumFactory); err != nil {
		return nil, err
	}
	if err := registry.Register(convert.BackendWKHTMLTOPDF, engines.wkhtmltopdfFactory); err != nil {
		return nil, err
	}
	return engines, nil
}

func (e *Engines) chromiumFactory(cfg convert.RendererConfig) (convert.Engine, error) {
	path := strings.TrimSpace(cfg.SupportPath)
	e.mu.Lock()
	defer e.mu.Unlock()
	if engine, ok := e.chromium[path]; ok {
		return engine, nil
	}
	engine := &ChromiumEngine{
		BrowserPath: path,
		Headless:    e.opts.Chromium.Headless,
		Timeout:     e.opts.Chromium.Timeout,
		Args:        append([]string{}, e.opts.Chromium.Args...),
		Page:        e.opts.Chromium.Page,
	}
	e.chromium[path] = engine
	return engine, nil
}

func (e *Engines) wkhtmltopdfFactory(cfg convert.RendererConfig) (convert.Engine, error) {
	return WKHTMLTOPDFEngine{
		Command: strings.TrimSpace(cfg.SupportPath),
		Args:    append([]string{}, e.opts.WKHTMLTOPDF.Args...),
		Env:     append([]string{}, e.opts.WKHTMLTOPDF.Env...),
		Timeout: e.opts.WKHTMLTOPDF.Timeout,
	}, nil
}

// Close releases every Chromium instance started through the registry.
func (e *Engines) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for path, engine := range e.chromium {
		_ = engine.Close()
		delete(e.chromium, path)
	}
	return nil
}
