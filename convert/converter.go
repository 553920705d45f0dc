package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Converter loads documents and exports them through the format registry.
type Converter struct {
	Registry  *Registry
	MIMETypes MIMETypes
	Logger    Logger
}

// NewConverter creates a converter bound to an engine registry.
func NewConverter(engines *EngineRegistry) *Converter {
	return &Converter{
		Registry:  NewRegistry(engines),
		MIMETypes: DefaultMIMETypes(),
		Logger:    NopLogger{},
	}
}

// ExportOption customizes a single Export call.
type ExportOption func(*exportOptions)

type exportOptions struct {
	config    RendererConfig
	hasConfig bool
}

// WithConfig pins the renderer configuration for one export instead of
// reading the process-wide settings.
func WithConfig(cfg RendererConfig) ExportOption {
	return func(o *exportOptions) {
		o.config = cfg
		o.hasConfig = true
	}
}

// ExportResult describes a finished export.
type ExportResult struct {
	Format   Format
	Backend  Backend
	Bytes    int64
	Filename string
	Path     string
}

// Load reads sourcePath with the reader registered for format.
func (c *Converter) Load(ctx context.Context, sourcePath string, format Format) (*Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	format = NormalizeFormat(format)
	reader, err := c.registry().ResolveReader(format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, NewError(KindLoadFailed, fmt.Sprintf("open %q failed", sourcePath), err)
	}
	defer f.Close()

	doc, err := reader.Read(ctx, f)
	if err != nil {
		if IsKind(err, KindLoadFailed) || IsKind(err, KindCanceled) || IsKind(err, KindTimeout) {
			return nil, err
		}
		return nil, NewError(KindLoadFailed, fmt.Sprintf("load %q failed", sourcePath), err)
	}
	c.logger().Debugf("loaded %s as %s: %d blocks", sourcePath, format, len(doc.Blocks))
	return doc, nil
}

// Export writes doc to dest in format. Without WithConfig the process-wide
// renderer settings are read once when the writer is resolved.
func (c *Converter) Export(ctx context.Context, doc *Document, dest Destination, format Format, filename string, opts ...ExportOption) (ExportResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if doc == nil {
		return ExportResult{}, NewError(KindValidation, "document is required", nil)
	}
	if dest == nil {
		return ExportResult{}, NewError(KindValidation, "destination is required", nil)
	}

	options := exportOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	cfg := options.config
	if !options.hasConfig {
		cfg = CurrentSettings()
	}

	format = NormalizeFormat(format)
	writer, err := c.registry().ResolveWriter(format, cfg)
	if err != nil {
		return ExportResult{}, err
	}

	result := ExportResult{Format: format}
	if format == FormatPDF {
		result.Backend = cfg.Backend
	}

	switch d := dest.(type) {
	case FilePath:
		result.Path = string(d)
		result.Filename = filepath.Base(string(d))
		n, err := c.exportFile(ctx, doc, writer, string(d))
		result.Bytes = n
		if err != nil {
			return result, err
		}
	case OutputStream:
		result.Filename = SanitizeFilename(filename, format)
		n, err := c.exportStream(ctx, doc, writer, d.Response, format, result.Filename)
		result.Bytes = n
		if err != nil {
			return result, err
		}
	case *OutputStream:
		if d == nil {
			return ExportResult{}, NewError(KindValidation, "destination is required", nil)
		}
		return c.Export(ctx, doc, *d, format, filename, opts...)
	default:
		return ExportResult{}, NewError(KindValidation, fmt.Sprintf("unsupported destination %T", dest), nil)
	}

	c.logger().Infof("exported %s (%d bytes) to %s", format, result.Bytes, firstNonEmpty(result.Path, result.Filename))
	return result, nil
}

func (c *Converter) exportStream(ctx context.Context, doc *Document, writer Writer, res Response, format Format, filename string) (int64, error) {
	if res == nil {
		return 0, NewError(KindValidation, "output stream response is required", nil)
	}
	mime, err := c.mimeTypes().Lookup(format)
	if err != nil {
		return 0, err
	}

	setDownloadHeaders(res, filename, mime)
	tracker := &trackingWriter{writer: res}
	stats, err := writer.Render(ctx, doc, tracker)
	if err != nil {
		if !tracker.Written() {
			clearDownloadHeaders(res)
		} else {
			c.logger().Errorf("export %s failed after write: %v", format, err)
		}
		return stats.Bytes, wrapExportError(err)
	}
	return stats.Bytes, nil
}

// exportFile renders into a temp file next to target and renames it into
// place, so a failed export never leaves a partial file at target.
func (c *Converter) exportFile(ctx context.Context, doc *Document, writer Writer, target string) (int64, error) {
	if target == "" {
		return 0, NewError(KindValidation, "file path is required", nil)
	}
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return 0, NewError(KindExportFailed, fmt.Sprintf("create %q failed", target), err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	stats, err := writer.Render(ctx, doc, tmp)
	if err != nil {
		cleanup()
		return stats.Bytes, wrapExportError(err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return stats.Bytes, NewError(KindExportFailed, fmt.Sprintf("sync %q failed", target), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return stats.Bytes, NewError(KindExportFailed, fmt.Sprintf("close %q failed", target), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return stats.Bytes, NewError(KindExportFailed, fmt.Sprintf("chmod %q failed", target), err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return stats.Bytes, NewError(KindExportFailed, fmt.Sprintf("write %q failed", target), err)
	}
	return stats.Bytes, nil
}

func wrapExportError(err error) error {
	switch KindFromError(err) {
	case KindExportFailed, KindBackendNotFound, KindCanceled, KindTimeout:
		return err
	}
	return NewError(KindExportFailed, "export failed", err)
}

func (c *Converter) registry() *Registry {
	if c == nil || c.Registry == nil {
		return NewRegistry(nil)
	}
	return c.Registry
}

func (c *Converter) mimeTypes() MIMETypes {
	if c == nil || c.MIMETypes == nil {
		return DefaultMIMETypes()
	}
	return c.MIMETypes
}

func (c *Converter) logger() Logger {
	if c == nil || c.Logger == nil {
		return NopLogger{}
	}
	return c.Logger
}

// DefaultEngines is the engine registry used by the package-level helpers.
var DefaultEngines = NewEngineRegistry()

var defaultConverter = NewConverter(DefaultEngines)

// Default returns the converter used by the package-level helpers.
func Default() *Converter {
	return defaultConverter
}

// Load reads a Word2007 document with the default converter.
func Load(ctx context.Context, sourcePath string) (*Document, error) {
	return defaultConverter.Load(ctx, sourcePath, FormatWord2007)
}

// LoadFormat reads a document of the given format with the default converter.
func LoadFormat(ctx context.Context, sourcePath string, format Format) (*Document, error) {
	return defaultConverter.Load(ctx, sourcePath, format)
}

// Export writes doc with the default converter.
func Export(ctx context.Context, doc *Document, dest Destination, format Format, filename string, opts ...ExportOption) (ExportResult, error) {
	return defaultConverter.Export(ctx, doc, dest, format, filename, opts...)
}
