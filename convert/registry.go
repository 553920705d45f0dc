package convert

// Registry resolves readers and writers for the closed format set. The set
// is fixed at compile time; only HTML-to-PDF engines are pluggable.
type Registry struct {
	Engines      *EngineRegistry
	Logger       Logger
	MaxHTMLBytes int64
}

// NewRegistry creates a registry bound to an engine registry.
func NewRegistry(engines *EngineRegistry) *Registry {
	if engines == nil {
		engines = NewEngineRegistry()
	}
	return &Registry{Engines: engines, Logger: NopLogger{}}
}

// ResolveReader returns a reader for format.
func (r *Registry) ResolveReader(format Format) (Reader, error) {
	if !IsSupported(format) {
		return nil, invalidFormat(format)
	}

	switch format {
	case FormatWord2007:
		return Word2007Reader{}, nil
	case FormatODText:
		return ODTextReader{}, nil
	case FormatRTF:
		return RTFReader{}, nil
	case FormatHTML:
		return HTMLReader{}, nil
	default:
		return nil, notConstructible(format, "reader")
	}
}

// ResolveWriter returns a writer for format. The PDF case selects the
// native sub-renderer when cfg names the fpdf backend and otherwise binds
// the generic PDF writer to the engine registered for cfg.Backend.
func (r *Registry) ResolveWriter(format Format, cfg RendererConfig) (Writer, error) {
	if !IsSupported(format) {
		return nil, invalidFormat(format)
	}

	switch format {
	case FormatWord2007:
		return Word2007Writer{}, nil
	case FormatODText:
		return ODTextWriter{}, nil
	case FormatRTF:
		return RTFWriter{}, nil
	case FormatHTML:
		return HTMLWriter{}, nil
	case FormatPDF:
		cfg = cfg.WithDefaults()
		if cfg.Backend == BackendFPDF {
			w := NewFPDFWriter(cfg)
			w.Logger = r.logger()
			return w, nil
		}
		engine, err := r.engines().Resolve(cfg)
		if err != nil {
			return nil, err
		}
		return PDFWriter{Engine: engine, Config: cfg, MaxHTMLBytes: r.maxHTMLBytes()}, nil
	default:
		return nil, notConstructible(format, "writer")
	}
}

func (r *Registry) engines() *EngineRegistry {
	if r == nil {
		return nil
	}
	return r.Engines
}

func (r *Registry) logger() Logger {
	if r == nil || r.Logger == nil {
		return NopLogger{}
	}
	return r.Logger
}

func (r *Registry) maxHTMLBytes() int64 {
	if r == nil {
		return 0
	}
	return r.MaxHTMLBytes
}
