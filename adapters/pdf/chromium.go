package convertpdf

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-docexport/convert"
)

const defaultPDFScale = 1.0

// paperInches lists the page sizes Chromium accepts, width by height.
var paperInches = map[string][2]float64{
	"A3":     {11.69, 16.54},
	"A4":     {8.27, 11.69},
	"A5":     {5.83, 8.27},
	"LETTER": {8.5, 11},
	"LEGAL":  {8.5, 14},
}

var unitsPerInch = map[string]float64{
	"in": 1,
	"cm": 2.54,
	"mm": 25.4,
	"pt": 72,
	"px": 96,
}

// PageOptions tunes print output beyond page size and orientation.
type PageOptions struct {
	MarginTop           string
	MarginBottom        string
	MarginLeft          string
	MarginRight         string
	Scale               float64
	PrintBackground     *bool
	BlockExternalAssets bool
}

// ChromiumEngine prints documents through one long-lived headless browser.
// Each Render opens its own tab.
type ChromiumEngine struct {
	BrowserPath string
	Headless    bool
	Timeout     time.Duration
	Args        []string
	Page        PageOptions

	startOnce     sync.Once
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// Render prints req.HTML to PDF in a fresh tab.
func (e *ChromiumEngine) Render(ctx context.Context, req convert.PDFRequest) ([]byte, error) {
	if e == nil {
		return nil, convert.NewError(convert.KindBackendNotFound, "chromium engine is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	browser, err := e.browser()
	if err != nil {
		return nil, convert.NewError(convert.KindBackendNotFound, "chromium engine init failed", err)
	}

	params, err := buildPrintToPDFParams(req.Config, e.pageOptions())
	if err != nil {
		return nil, err
	}

	tabCtx, closeTab := chromedp.NewContext(browser)
	defer closeTab()
	// The tab derives from the browser, not from ctx, so cancellation of
	// the caller is forwarded by hand.
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	runCtx := tabCtx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(tabCtx, e.Timeout)
		defer cancel()
	}

	var pdf []byte
	if err := chromedp.Run(runCtx, printActions(string(req.HTML), params, e.Page.BlockExternalAssets, &pdf)...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, convert.NewError(convert.KindExportFailed, "chromium pdf render failed", err)
	}
	return pdf, nil
}

func printActions(html string, params *page.PrintToPDFParams, blockAssets bool, out *[]byte) []chromedp.Action {
	var actions []chromedp.Action
	if blockAssets {
		actions = append(actions,
			network.Enable(),
			network.SetBlockedURLs().WithURLPatterns(blockedURLPatterns()),
		)
	}
	return append(actions,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := params.Do(ctx)
			*out = data
			return err
		}),
	)
}

// blockedURLPatterns rejects every network fetch so converted documents
// render from their inline content only.
func blockedURLPatterns() []*network.BlockPattern {
	return []*network.BlockPattern{
		{URLPattern: "http://*:*/*", Block: true},
		{URLPattern: "https://*:*/*", Block: true},
	}
}

// Close shuts the browser down. It is safe to call on an engine that never
// rendered.
func (e *ChromiumEngine) Close() error {
	if e == nil {
		return nil
	}
	if e.browserCancel != nil {
		e.browserCancel()
	}
	if e.allocCancel != nil {
		e.allocCancel()
	}
	return nil
}

func (e *ChromiumEngine) browser() (context.Context, error) {
	e.startOnce.Do(func() {
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), e.allocatorOptions()...)
		e.allocCancel = allocCancel
		e.browserCtx, e.browserCancel = chromedp.NewContext(allocCtx)
	})
	if e.browserCtx == nil {
		return nil, errors.New("chromium allocator unavailable")
	}
	return e.browserCtx, nil
}

func (e *ChromiumEngine) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if e.BrowserPath != "" {
		opts = append(opts, chromedp.ExecPath(e.BrowserPath))
	}
	opts = append(opts, chromedp.Flag("headless", e.Headless))
	return append(opts, chromeFlags(e.Args)...)
}

func (e *ChromiumEngine) pageOptions() PageOptions {
	opts := e.Page
	if opts.PrintBackground == nil {
		opts.PrintBackground = boolPtr(true)
	}
	return opts
}

func buildPrintToPDFParams(cfg convert.RendererConfig, opts PageOptions) (*page.PrintToPDFParams, error) {
	cfg = cfg.WithDefaults()

	scale := opts.Scale
	if scale == 0 {
		scale = defaultPDFScale
	}
	if scale < 0.1 || scale > 2.0 {
		return nil, convert.NewError(convert.KindValidation, "pdf scale must be between 0.1 and 2.0", nil)
	}

	paper, ok := paperInches[strings.ToUpper(strings.TrimSpace(cfg.PageSize))]
	if !ok {
		return nil, convert.NewError(convert.KindValidation, fmt.Sprintf("unsupported pdf page size: %s", cfg.PageSize), nil)
	}

	params := page.PrintToPDF().
		WithScale(scale).
		WithLandscape(cfg.Orientation == convert.OrientationLandscape).
		WithPaperWidth(paper[0]).
		WithPaperHeight(paper[1])
	if opts.PrintBackground != nil {
		params = params.WithPrintBackground(*opts.PrintBackground)
	}

	margins := []struct {
		value string
		apply func(page.PrintToPDFParams, float64) *page.PrintToPDFParams
	}{
		{opts.MarginTop, page.PrintToPDFParams.WithMarginTop},
		{opts.MarginBottom, page.PrintToPDFParams.WithMarginBottom},
		{opts.MarginLeft, page.PrintToPDFParams.WithMarginLeft},
		{opts.MarginRight, page.PrintToPDFParams.WithMarginRight},
	}
	for _, m := range margins {
		if m.value == "" {
			continue
		}
		inches, err := lengthInches(m.value)
		if err != nil {
			return nil, err
		}
		params = m.apply(*params, inches)
	}
	return params, nil
}

// lengthInches converts CSS-style lengths ("10mm", "0.5in", "72pt") to
// inches. A bare number is taken as inches.
func lengthInches(value string) (float64, error) {
	raw := strings.TrimSpace(value)
	number := strings.TrimRightFunc(raw, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	unit := strings.ToLower(strings.TrimSpace(raw[len(number):]))
	if unit == "" {
		unit = "in"
	}

	amount, err := strconv.ParseFloat(number, 64)
	if err != nil || amount < 0 {
		return 0, convert.NewError(convert.KindValidation, fmt.Sprintf("invalid pdf length: %s", value), err)
	}
	perInch, ok := unitsPerInch[unit]
	if !ok {
		return 0, convert.NewError(convert.KindValidation, fmt.Sprintf("unsupported pdf length unit: %s", unit), nil)
	}
	return amount / perInch, nil
}

// chromeFlags turns "--name" and "--name=value" arguments into allocator
// flags.
func chromeFlags(args []string) []chromedp.ExecAllocatorOption {
	flags := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		name := strings.TrimPrefix(strings.TrimSpace(arg), "--")
		if name == "" {
			continue
		}
		if key, value, ok := strings.Cut(name, "="); ok {
			flags = append(flags, chromedp.Flag(key, value))
			continue
		}
		flags = append(flags, chromedp.Flag(name, true))
	}
	return flags
}

func boolPtr(value bool) *bool {
	return &value
}
