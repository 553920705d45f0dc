package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	convertpdf "github.com/goliatone/go-docexport/adapters/pdf"
	"github.com/goliatone/go-docexport/config"
	"github.com/goliatone/go-docexport/convert"
)

// CLI is the docexport command line.
type CLI struct {
	Config   string `short:"c" help:"Configuration file path." type:"path"`
	LogLevel string `help:"Override the configured log level."`

	Convert ConvertCmd `cmd:"" help:"Convert a document between formats."`
	Serve   ServeCmd   `cmd:"" help:"Serve the Word to PDF upload form."`
}

// App carries the shared state handed to every command.
type App struct {
	Context   context.Context
	Config    *config.Config
	Logger    convert.Logger
	Converter *convert.Converter
	engines   *convertpdf.Engines
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("docexport"),
		kong.Description("Convert Word, ODF, RTF, HTML and PDF documents."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	app, err := NewApp(ctx, cfg)
	kctx.FatalIfErrorf(err)
	defer app.Close()

	kctx.FatalIfErrorf(kctx.Run(app))
}

// NewApp wires the PDF engines, converter and logger for cfg.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := newLogger(cfg.Logging.Level)

	registry := convert.NewEngineRegistry()
	engines, err := convertpdf.Register(registry, cfg.EngineOptions())
	if err != nil {
		return nil, err
	}

	converter := convert.NewConverter(registry)
	converter.Logger = log
	converter.Registry.Logger = log

	return &App{
		Context:   ctx,
		Config:    cfg,
		Logger:    log,
		Converter: converter,
		engines:   engines,
	}, nil
}

// Close releases browser instances started by the Chromium engine.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	return a.engines.Close()
}

func (a *App) context() context.Context {
	if a.Context == nil {
		return context.Background()
	}
	return a.Context
}
