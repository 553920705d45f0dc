package converthttp

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	storefs "github.com/goliatone/go-docexport/adapters/store/fs"
	"github.com/goliatone/go-docexport/convert"
)

const (
	defaultBasePath       = "/convert"
	defaultMaxUploadBytes = 16 << 20
	uploadField           = "docx"
	rendererField         = "renderer"
	downloadField         = "download"
)

// RendererChoice is one PDF renderer offered by the upload form. Name is
// the form value and becomes part of the download filename.
type RendererChoice struct {
	Name        string
	Label       string
	Backend     convert.Backend
	SupportPath string
}

// DefaultRenderers returns the three renderer choices of the upload form.
func DefaultRenderers() []RendererChoice {
	return []RendererChoice{
		{Name: "dompdf", Label: "DomPDF (Chromium)", Backend: convert.BackendChromium},
		{Name: "tcpdf", Label: "TCPDF (wkhtmltopdf)", Backend: convert.BackendWKHTMLTOPDF},
		{Name: "mpdf", Label: "mPDF (native)", Backend: convert.BackendFPDF},
	}
}

// Config configures the HTTP adapter.
type Config struct {
	BasePath        string
	Converter       *convert.Converter
	Store           *storefs.Store
	Renderers       []RendererChoice
	DefaultRenderer string
	MaxUploadBytes  int64
	PageSize        string
	Orientation     convert.Orientation
	Logger          convert.Logger
	NewKey          func() string
}

// Handler serves the upload form and converts uploaded Word documents to PDF.
type Handler struct {
	cfg       Config
	renderers map[string]RendererChoice
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	if cfg.BasePath == "" {
		cfg.BasePath = defaultBasePath
	}
	cfg.BasePath = "/" + strings.Trim(cfg.BasePath, "/")
	if cfg.Converter == nil {
		cfg.Converter = convert.Default()
	}
	if len(cfg.Renderers) == 0 {
		cfg.Renderers = DefaultRenderers()
	}
	if cfg.DefaultRenderer == "" {
		cfg.DefaultRenderer = "tcpdf"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = convert.NopLogger{}
	}
	if cfg.NewKey == nil {
		cfg.NewKey = uuid.NewString
	}

	renderers := make(map[string]RendererChoice, len(cfg.Renderers))
	for _, choice := range cfg.Renderers {
		renderers[choice.Name] = choice
	}
	return &Handler{cfg: cfg, renderers: renderers}
}

// BasePath reports the path the handler is mounted on.
func (h *Handler) BasePath() string {
	return h.cfg.BasePath
}

// RegisterRoutes registers handlers on a compatible router.
func (h *Handler) RegisterRoutes(router any) {
	switch r := router.(type) {
	case interface{ Handle(string, http.Handler) }:
		r.Handle(h.BasePath(), h)
	case interface {
		HandleFunc(string, func(http.ResponseWriter, *http.Request))
	}:
		r.HandleFunc(h.BasePath(), h.ServeHTTP)
	}
}

// ServeHTTP renders the form on GET and converts the upload on POST.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	if h == nil {
		writeError(w, convert.NewError(convert.KindInternal, "handler is nil", nil))
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.handleForm(w)
	case http.MethodPost:
		h.handleUpload(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleForm(w http.ResponseWriter) {
	body, err := renderForm(formView{
		Action:    h.cfg.BasePath,
		Renderers: h.cfg.Renderers,
		Selected:  h.cfg.DefaultRenderer,
	})
	if err != nil {
		writeError(w, convert.NewError(convert.KindInternal, "render form failed", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cfg.Store == nil {
		writeError(w, convert.NewError(convert.KindInternal, "upload store is not configured", nil))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		writeError(w, convert.NewError(convert.KindValidation, "invalid upload", err))
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	choice, ok := h.renderers[r.FormValue(rendererField)]
	if !ok {
		writeError(w, convert.NewError(convert.KindValidation, "unexpected value", nil))
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, convert.NewError(convert.KindValidation, "docx file is required", err))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".docx") {
		writeError(w, convert.NewError(convert.KindValidation, "only .docx files are accepted", nil))
		return
	}

	id := h.cfg.NewKey()
	ref, err := h.cfg.Store.Put(ctx, "uploads/"+id+".docx", file, storefs.FileMeta{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.cfg.Logger.Infof("stored upload %s (%d bytes) as %s", header.Filename, ref.Meta.Size, ref.Key)

	doc, err := h.cfg.Converter.Load(ctx, ref.Path, convert.FormatWord2007)
	if err != nil {
		writeError(w, err)
		return
	}

	tempDir, err := h.cfg.Store.TempDir()
	if err != nil {
		writeError(w, err)
		return
	}
	rendererCfg := convert.RendererConfig{
		Backend:     choice.Backend,
		SupportPath: choice.SupportPath,
		TempDir:     tempDir,
		PageSize:    h.cfg.PageSize,
		Orientation: h.cfg.Orientation,
	}

	filename := "sample_" + choice.Name + ".pdf"
	if r.FormValue(downloadField) == "0" {
		h.storeExport(w, r, id, doc, rendererCfg)
		return
	}

	res := &httpResponse{w: w}
	if _, err := h.cfg.Converter.Export(ctx, doc, convert.OutputStream{Response: res}, convert.FormatPDF, filename, convert.WithConfig(rendererCfg)); err != nil {
		if res.wrote {
			h.cfg.Logger.Errorf("download %s aborted: %v", filename, err)
			return
		}
		writeError(w, err)
	}
}

func (h *Handler) storeExport(w http.ResponseWriter, r *http.Request, id string, doc *convert.Document, cfg convert.RendererConfig) {
	key := "exports/" + id + ".pdf"
	target, err := h.cfg.Store.Path(key)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		writeError(w, convert.NewError(convert.KindInternal, "create export dir failed", err))
		return
	}

	result, err := h.cfg.Converter.Export(r.Context(), doc, convert.FilePath(target), convert.FormatPDF, "", convert.WithConfig(cfg))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, storedResponse{Key: key, Path: result.Path, Bytes: result.Bytes})
}
