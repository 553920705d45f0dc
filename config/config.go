// Package config loads the docexport CLI and server configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	convertpdf "github.com/goliatone/go-docexport/adapters/pdf"
	"github.com/goliatone/go-docexport/convert"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCEXPORT_"

// Config is the top level configuration document.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Renderer    RendererConfig    `yaml:"renderer"`
	Storage     StorageConfig     `yaml:"storage"`
	Chromium    ChromiumConfig    `yaml:"chromium"`
	WKHTMLTOPDF WKHTMLTOPDFConfig `yaml:"wkhtmltopdf"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig configures the upload form server.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	BasePath       string `yaml:"base_path"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// RendererConfig selects the PDF renderer used by the CLI and lists the
// renderer choices offered by the upload form.
type RendererConfig struct {
	Backend     string           `yaml:"backend"`
	Path        string           `yaml:"path"`
	PageSize    string           `yaml:"page_size"`
	Orientation string           `yaml:"orientation"`
	Default     string           `yaml:"default"`
	Choices     []RendererChoice `yaml:"choices"`
}

// RendererChoice is one named renderer of the upload form.
type RendererChoice struct {
	Name    string `yaml:"name"`
	Label   string `yaml:"label"`
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// StorageConfig configures the filesystem store for uploads and exports.
type StorageConfig struct {
	Root string `yaml:"root"`
}

// ChromiumConfig configures the Chromium engine.
type ChromiumConfig struct {
	Headless            bool          `yaml:"headless"`
	Timeout             time.Duration `yaml:"timeout"`
	Args                []string      `yaml:"args"`
	Margin              string        `yaml:"margin"`
	PrintBackground     bool          `yaml:"print_background"`
	BlockExternalAssets bool          `yaml:"block_external_assets"`
}

// WKHTMLTOPDFConfig configures the wkhtmltopdf engine.
type WKHTMLTOPDFConfig struct {
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			BasePath:       "/convert",
			MaxUploadBytes: 16 << 20,
		},
		Renderer: RendererConfig{
			PageSize:    convert.DefaultPageSize,
			Orientation: string(convert.DefaultOrientation),
			Default:     "tcpdf",
			Choices: []RendererChoice{
				{Name: "dompdf", Label: "DomPDF (Chromium)", Backend: string(convert.BackendChromium)},
				{Name: "tcpdf", Label: "TCPDF (wkhtmltopdf)", Backend: string(convert.BackendWKHTMLTOPDF)},
				{Name: "mpdf", Label: "mPDF (native)", Backend: string(convert.BackendFPDF)},
			},
		},
		Storage: StorageConfig{Root: "data"},
		Chromium: ChromiumConfig{
			Headless:        true,
			Timeout:         30 * time.Second,
			Args:            []string{"--no-sandbox", "--disable-dev-shm-usage"},
			Margin:          "10mm",
			PrintBackground: true,
		},
		WKHTMLTOPDF: WKHTMLTOPDFConfig{Timeout: 30 * time.Second},
		Logging:     LoggingConfig{Level: "info"},
	}
}

// Load reads .env files, then the YAML file at path (when not empty) over
// the defaults, then DOCEXPORT_* overrides, and validates the result.
func Load(path string) (*Config, error) {
	loadEnvFiles(".env", ".env.local")

	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", path)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFiles loads the first env files that exist. Variables already in
// the process environment win.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

func applyEnv(cfg *Config) error {
	str := func(name string, target *string) {
		if value, ok := os.LookupEnv(EnvPrefix + name); ok {
			*target = strings.TrimSpace(value)
		}
	}
	str("ADDR", &cfg.Server.Addr)
	str("BASE_PATH", &cfg.Server.BasePath)
	str("RENDERER", &cfg.Renderer.Backend)
	str("RENDERER_PATH", &cfg.Renderer.Path)
	str("PAGE_SIZE", &cfg.Renderer.PageSize)
	str("ORIENTATION", &cfg.Renderer.Orientation)
	str("DEFAULT_RENDERER", &cfg.Renderer.Default)
	str("STORAGE_ROOT", &cfg.Storage.Root)
	str("LOG_LEVEL", &cfg.Logging.Level)

	if value, ok := os.LookupEnv(EnvPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_UPLOAD_BYTES: %w", EnvPrefix, err)
		}
		cfg.Server.MaxUploadBytes = n
	}
	return nil
}

// Validate checks backend names, orientation and the renderer choices.
func (c Config) Validate() error {
	if _, ok := convert.ParseBackend(c.Renderer.Backend); !ok {
		return fmt.Errorf("renderer.backend: unknown backend %q", c.Renderer.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(c.Renderer.Orientation)) {
	case "", "p", "l", string(convert.OrientationPortrait), string(convert.OrientationLandscape):
	default:
		return fmt.Errorf("renderer.orientation: unknown orientation %q", c.Renderer.Orientation)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if strings.TrimSpace(c.Storage.Root) == "" {
		return fmt.Errorf("storage.root is required")
	}

	seen := make(map[string]bool, len(c.Renderer.Choices))
	for i, choice := range c.Renderer.Choices {
		if choice.Name == "" {
			return fmt.Errorf("renderer.choices[%d]: name is required", i)
		}
		if seen[choice.Name] {
			return fmt.Errorf("renderer.choices[%d]: duplicate name %q", i, choice.Name)
		}
		seen[choice.Name] = true
		backend, ok := convert.ParseBackend(choice.Backend)
		if !ok || backend == convert.BackendNone {
			return fmt.Errorf("renderer.choices[%d]: unknown backend %q", i, choice.Backend)
		}
	}
	if len(c.Renderer.Choices) > 0 && !seen[c.Renderer.Default] {
		return fmt.Errorf("renderer.default %q is not a configured choice", c.Renderer.Default)
	}
	return nil
}

// PDFRenderer returns the renderer configuration used by the CLI.
func (c Config) PDFRenderer() convert.RendererConfig {
	backend, _ := convert.ParseBackend(c.Renderer.Backend)
	return convert.RendererConfig{
		Backend:     backend,
		SupportPath: c.Renderer.Path,
		PageSize:    c.Renderer.PageSize,
		Orientation: convert.Orientation(c.Renderer.Orientation),
	}.WithDefaults()
}

// EngineOptions maps the engine sections onto convertpdf options.
func (c Config) EngineOptions() convertpdf.Options {
	printBackground := c.Chromium.PrintBackground
	return convertpdf.Options{
		Chromium: convertpdf.ChromiumOptions{
			Headless: c.Chromium.Headless,
			Timeout:  c.Chromium.Timeout,
			Args:     append([]string{}, c.Chromium.Args...),
			Page: convertpdf.PageOptions{
				MarginTop:           c.Chromium.Margin,
				MarginBottom:        c.Chromium.Margin,
				MarginLeft:          c.Chromium.Margin,
				MarginRight:         c.Chromium.Margin,
				PrintBackground:     &printBackground,
				BlockExternalAssets: c.Chromium.BlockExternalAssets,
			},
		},
		WKHTMLTOPDF: convertpdf.WKHTMLTOPDFOptions{
			Args:    append([]string{}, c.WKHTMLTOPDF.Args...),
			Timeout: c.WKHTMLTOPDF.Timeout,
		},
	}
}
