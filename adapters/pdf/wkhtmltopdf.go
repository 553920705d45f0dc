package convertpdf

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/goliatone/go-docexport/convert"
)

// WKHTMLTOPDFEngine invokes wkhtmltopdf for HTML-to-PDF conversion.
type WKHTMLTOPDFEngine struct {
	Command string
	Args    []string
	Env     []string
	Timeout time.Duration
}

// Render executes wkhtmltopdf using stdin/stdout for HTML/PDF.
func (e WKHTMLTOPDFEngine) Render(ctx context.Context, req convert.PDFRequest) ([]byte, error) {
	cmdPath := strings.TrimSpace(e.Command)
	if cmdPath == "" {
		cmdPath = "wkhtmltopdf"
	}
	if _, err := exec.LookPath(cmdPath); err != nil {
		return nil, convert.NewError(convert.KindBackendNotFound, "wkhtmltopdf not found", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cmdCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := append(wkhtmltopdfPageArgs(req), e.Args...)
	args = append(args, "-", "-")
	cmd := exec.CommandContext(cmdCtx, cmdPath, args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	cmd.Stdin = bytes.NewReader(req.HTML)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := cmdCtx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = "wkhtmltopdf failed"
		}
		return nil, convert.NewError(convert.KindExportFailed, message, err)
	}
	if stdout.Len() == 0 {
		return nil, convert.NewError(convert.KindExportFailed, "wkhtmltopdf produced no output", errors.New("empty stdout"))
	}
	return stdout.Bytes(), nil
}

func wkhtmltopdfPageArgs(req convert.PDFRequest) []string {
	cfg := req.Config.WithDefaults()
	orientation := "Portrait"
	if cfg.Orientation == convert.OrientationLandscape {
		orientation = "Landscape"
	}
	args := []string{"--quiet", "--page-size", cfg.PageSize, "--orientation", orientation}
	if title := strings.TrimSpace(req.Info.Title); title != "" {
		args = append(args, "--title", title)
	}
	return args
}
