package convert

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// The process-wide renderer settings are kept for callers that configure the
// PDF backend once at startup. Concurrent set-then-export sequences can still
// interleave; pass WithConfig on Export to pin a configuration per call.
var (
	settingsMu sync.RWMutex
	settings   RendererConfig
)

// SetPDFRenderer sets the process-wide PDF backend and its support path.
func SetPDFRenderer(backend Backend, supportPath string) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settings.Backend = backend
	settings.SupportPath = supportPath
}

// SetPDFRendererConfig replaces the process-wide renderer configuration.
func SetPDFRendererConfig(cfg RendererConfig) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settings = cfg
}

// CurrentSettings returns a snapshot of the process-wide configuration.
func CurrentSettings() RendererConfig {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

// ResetSettings clears the process-wide configuration.
func ResetSettings() {
	SetPDFRendererConfig(RendererConfig{})
}

// DefaultTempDir is used when a configuration has no temp directory.
func DefaultTempDir() string {
	return filepath.Join(os.TempDir(), "docexport")
}

// WithDefaults fills page size, orientation and temp dir.
func (c RendererConfig) WithDefaults() RendererConfig {
	if strings.TrimSpace(c.PageSize) == "" {
		c.PageSize = DefaultPageSize
	}
	switch Orientation(strings.ToLower(string(c.Orientation))) {
	case OrientationLandscape, "l":
		c.Orientation = OrientationLandscape
	default:
		c.Orientation = DefaultOrientation
	}
	if strings.TrimSpace(c.TempDir) == "" {
		c.TempDir = DefaultTempDir()
	}
	return c
}
