package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// DefaultMaxHTMLBytes guards in-memory HTML buffering before PDF conversion.
const DefaultMaxHTMLBytes int64 = 8 * 1024 * 1024

// PDFRequest contains HTML input and settings for PDF engines.
type PDFRequest struct {
	HTML   []byte
	Info   DocInfo
	Config RendererConfig
}

// Engine renders HTML content into PDF bytes.
type Engine interface {
	Render(ctx context.Context, req PDFRequest) ([]byte, error)
}

// EngineFunc adapts a function to an Engine.
type EngineFunc func(ctx context.Context, req PDFRequest) ([]byte, error)

func (f EngineFunc) Render(ctx context.Context, req PDFRequest) ([]byte, error) {
	if f == nil {
		return nil, errors.New("pdf engine func is nil")
	}
	return f(ctx, req)
}

// EngineFactory builds an engine for a renderer configuration.
type EngineFactory func(cfg RendererConfig) (Engine, error)

// EngineRegistry stores HTML-to-PDF engines by backend.
type EngineRegistry struct {
	mu        sync.RWMutex
	factories map[Backend]EngineFactory
}

// NewEngineRegistry creates an empty engine registry.
func NewEngineRegistry() *EngineRegistry {
	return &EngineRegistry{factories: make(map[Backend]EngineFactory)}
}

// Register adds an engine factory for a backend.
func (r *EngineRegistry) Register(backend Backend, factory EngineFactory) error {
	if backend == BackendNone {
		return NewError(KindValidation, "engine backend is required", nil)
	}
	if backend == BackendFPDF {
		return NewError(KindValidation, "fpdf backend is built in", nil)
	}
	if factory == nil {
		return NewError(KindValidation, "engine factory is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[backend]; exists {
		return NewError(KindValidation, fmt.Sprintf("engine %q already registered", backend), nil)
	}
	r.factories[backend] = factory
	return nil
}

// Resolve builds the engine registered for cfg.Backend.
func (r *EngineRegistry) Resolve(cfg RendererConfig) (Engine, error) {
	if cfg.Backend == BackendNone {
		return nil, NewError(KindBackendNotFound, "no pdf renderer configured", nil)
	}
	if r == nil {
		return nil, NewError(KindBackendNotFound, fmt.Sprintf("pdf renderer %q not registered", cfg.Backend), nil)
	}

	r.mu.RLock()
	factory, ok := r.factories[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, NewError(KindBackendNotFound, fmt.Sprintf("pdf renderer %q not registered", cfg.Backend), nil)
	}

	engine, err := factory(cfg)
	if err != nil {
		if IsKind(err, KindBackendNotFound) {
			return nil, err
		}
		return nil, NewError(KindBackendNotFound, fmt.Sprintf("pdf renderer %q unavailable", cfg.Backend), err)
	}
	return engine, nil
}

// Backends lists registered backends.
func (r *EngineRegistry) Backends() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Backend, 0, len(r.factories))
	for backend := range r.factories {
		out = append(out, backend)
	}
	return out
}

// PDFWriter renders HTML through an external engine.
type PDFWriter struct {
	HTML         HTMLWriter
	Engine       Engine
	Config       RendererConfig
	MaxHTMLBytes int64
}

// Render writes the document as HTML and converts it to PDF.
func (w PDFWriter) Render(ctx context.Context, doc *Document, out io.Writer) (RenderStats, error) {
	if w.Engine == nil {
		return RenderStats{}, NewError(KindBackendNotFound, "pdf writer requires engine", nil)
	}

	buffer := newLimitedBuffer(w.MaxHTMLBytes)
	if _, err := w.HTML.Render(ctx, doc, buffer); err != nil {
		return RenderStats{}, err
	}

	pdf, err := w.Engine.Render(ctx, PDFRequest{
		HTML:   buffer.Bytes(),
		Info:   doc.Info,
		Config: w.Config,
	})
	if err != nil {
		return RenderStats{}, err
	}

	cw := &countingWriter{w: out}
	if len(pdf) > 0 {
		if _, err := cw.Write(pdf); err != nil {
			return RenderStats{Bytes: cw.count}, err
		}
	}
	return RenderStats{Bytes: cw.count}, nil
}

type limitedBuffer struct {
	buf     bytes.Buffer
	maxSize int64
}

func newLimitedBuffer(maxSize int64) *limitedBuffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxHTMLBytes
	}
	return &limitedBuffer{maxSize: maxSize}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.maxSize > 0 && int64(b.buf.Len()+len(p)) > b.maxSize {
		return 0, NewError(KindValidation, "pdf writer max html bytes exceeded", nil)
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

type countingWriter struct {
	w     io.Writer
	count int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.count += int64(n)
	return n, err
}
