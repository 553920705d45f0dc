package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-docexport/convert"
)

// ConvertCmd converts one file.
type ConvertCmd struct {
	Input        string `arg:"" help:"Source document." type:"path"`
	Output       string `short:"o" required:"" help:"Destination file." type:"path"`
	From         string `help:"Source format. Inferred from the input extension when empty."`
	To           string `help:"Destination format. Inferred from the output extension when empty."`
	Renderer     string `help:"PDF renderer: chromium, wkhtmltopdf or fpdf (dompdf, tcpdf and mpdf are accepted)."`
	RendererPath string `help:"Browser binary, wkhtmltopdf command or fpdf support directory."`
	PageSize     string `help:"PDF page size."`
	Orientation  string `help:"PDF orientation: portrait or landscape."`
}

// Run loads Input and exports it to Output.
func (c *ConvertCmd) Run(app *App) error {
	from, err := resolveFormat(c.From, c.Input)
	if err != nil {
		return err
	}
	to, err := resolveFormat(c.To, c.Output)
	if err != nil {
		return err
	}

	rc, err := c.rendererConfig(app)
	if err != nil {
		return err
	}

	ctx := app.context()
	doc, err := app.Converter.Load(ctx, c.Input, from)
	if err != nil {
		return err
	}
	result, err := app.Converter.Export(ctx, doc, convert.FilePath(c.Output), to, "", convert.WithConfig(rc))
	if err != nil {
		return err
	}
	app.Logger.Infof("converted %s (%s) to %s (%s, %d bytes)", c.Input, from, result.Path, to, result.Bytes)
	return nil
}

func (c *ConvertCmd) rendererConfig(app *App) (convert.RendererConfig, error) {
	rc := app.Config.PDFRenderer()
	if c.Renderer != "" {
		backend, ok := convert.ParseBackend(c.Renderer)
		if !ok {
			return convert.RendererConfig{}, convert.NewError(convert.KindValidation, fmt.Sprintf("unknown renderer %q", c.Renderer), nil)
		}
		rc.Backend = backend
		rc.SupportPath = ""
	}
	if c.RendererPath != "" {
		rc.SupportPath = c.RendererPath
	}
	if c.PageSize != "" {
		rc.PageSize = c.PageSize
	}
	if c.Orientation != "" {
		rc.Orientation = convert.Orientation(c.Orientation)
	}
	return rc.WithDefaults(), nil
}

func resolveFormat(name, path string) (convert.Format, error) {
	if strings.TrimSpace(name) != "" {
		format := convert.NormalizeFormat(convert.Format(name))
		if !convert.IsSupported(format) {
			return "", convert.NewError(convert.KindInvalidFormat, fmt.Sprintf("%q is not a valid format", name), nil)
		}
		return format, nil
	}
	format, ok := convert.FormatFromExtension(filepath.Ext(path))
	if !ok {
		return "", convert.NewError(convert.KindInvalidFormat, fmt.Sprintf("cannot infer format from %q", path), nil)
	}
	return format, nil
}
