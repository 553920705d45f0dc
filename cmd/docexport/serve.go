package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"

	converthttp "github.com/goliatone/go-docexport/adapters/http"
	storefs "github.com/goliatone/go-docexport/adapters/store/fs"
	"github.com/goliatone/go-docexport/config"
	"github.com/goliatone/go-docexport/convert"
)

// ServeCmd runs the upload form server.
type ServeCmd struct {
	Addr string `help:"Listen address. Overrides server.addr."`
}

// Run serves until the process receives an interrupt.
func (s *ServeCmd) Run(app *App) error {
	cfg := app.Config
	addr := cfg.Server.Addr
	if s.Addr != "" {
		addr = s.Addr
	}

	srv := newServer(newUploadHandler(app))

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Infof("serving upload form on http://%s%s", addr, cfg.Server.BasePath)
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-app.context().Done():
	}

	app.Logger.Infof("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.ShutdownWithContext(ctx)
}

func newUploadHandler(app *App) *converthttp.Handler {
	cfg := app.Config
	store := storefs.NewStore(cfg.Storage.Root)
	store.MaxBytes = cfg.Server.MaxUploadBytes

	return converthttp.NewHandler(converthttp.Config{
		BasePath:        cfg.Server.BasePath,
		Converter:       app.Converter,
		Store:           store,
		Renderers:       rendererChoices(cfg.Renderer.Choices),
		DefaultRenderer: cfg.Renderer.Default,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		PageSize:        cfg.Renderer.PageSize,
		Orientation:     convert.Orientation(cfg.Renderer.Orientation),
		Logger:          app.Logger,
	})
}

func rendererChoices(choices []config.RendererChoice) []converthttp.RendererChoice {
	out := make([]converthttp.RendererChoice, 0, len(choices))
	for _, choice := range choices {
		backend, _ := convert.ParseBackend(choice.Backend)
		out = append(out, converthttp.RendererChoice{
			Name:        choice.Name,
			Label:       choice.Label,
			Backend:     backend,
			SupportPath: choice.Path,
		})
	}
	return out
}

func newServer(handler *converthttp.Handler) *fiber.App {
	srv := fiber.New(fiber.Config{
		AppName:               "docexport",
		DisableStartupMessage: true,
	})
	srv.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))

	srv.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(handler.BasePath(), fiber.StatusFound)
	})
	srv.All(handler.BasePath(), adaptor.HTTPHandler(handler))
	return srv
}
