package exportpdf

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/png"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-gridexport/export"
)

// DefaultMaxHTMLBytes guards in-memory HTML buffering before capture.
const DefaultMaxHTMLBytes int64 = 8 * 1024 * 1024

// DefaultSelector is the element captured from the rendered page.
const DefaultSelector = "#capture"

var blockedURLPatterns = []*network.BlockPattern{
	{URLPattern: "http://*:*/*", Block: true},
	{URLPattern: "https://*:*/*", Block: true},
}

// HTMLRenderer renders a layout into an HTML page.
type HTMLRenderer interface {
	RenderLayout(ctx context.Context, layout export.Layout, w io.Writer) (int64, error)
}

// ChromiumRasterizer captures the rendered capture template using a shared
// headless Chromium instance.
type ChromiumRasterizer struct {
	BrowserPath  string
	Headless     bool
	Timeout      time.Duration
	Args         []string
	Selector     string
	MaxHTMLBytes int64
	HTML         HTMLRenderer
	Logger       export.Logger

	initOnce      sync.Once
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// Rasterize renders the layout as HTML and screenshots the capture element.
func (e *ChromiumRasterizer) Rasterize(ctx context.Context, layout export.Layout, opts export.CaptureOptions) (export.Image, error) {
	if e == nil {
		return export.Image{}, export.NewError(export.KindInternal, "chromium rasterizer is nil", nil)
	}
	if e.HTML == nil {
		return export.Image{}, export.NewError(export.KindValidation, "chromium rasterizer requires html renderer", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	selector := e.Selector
	if selector == "" {
		selector = DefaultSelector
	}

	buffer := newLimitedBuffer(e.MaxHTMLBytes)
	if _, err := e.HTML.RenderLayout(ctx, layout, buffer); err != nil {
		return export.Image{}, err
	}

	if err := e.ensureBrowser(); err != nil {
		return export.Image{}, export.NewError(export.KindInternal, "chromium init failed", err)
	}

	tabCtx, cancel := chromedp.NewContext(e.browserCtx)
	defer cancel()

	reqCtx, cancelReq := context.WithCancel(tabCtx)
	defer cancelReq()
	go func() {
		select {
		case <-ctx.Done():
			cancelReq()
		case <-reqCtx.Done():
		}
	}()
	execCtx := reqCtx
	if e.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		execCtx, cancelTimeout = context.WithTimeout(execCtx, e.Timeout)
		defer cancelTimeout()
	}

	width := int64(math.Ceil(layout.Width)) + 16
	height := int64(math.Ceil(layout.Height)) + 16

	var shot []byte
	actions := []chromedp.Action{}
	if !opts.CrossOrigin {
		actions = append(actions,
			network.Enable(),
			network.SetBlockedURLs().WithURLPatterns(blockedURLPatterns),
		)
	}
	actions = append(actions,
		chromedp.EmulateViewport(width, height),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, buffer.String()).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.ScreenshotScale(selector, scale, &shot, chromedp.ByQuery),
	)

	if opts.Logging {
		e.logger().Debugf("chromium capture: viewport %dx%d scale %.2f selector %s", width, height, scale, selector)
	}
	if err := chromedp.Run(execCtx, actions...); err != nil {
		return export.Image{}, export.NewError(export.KindInternal, "chromium capture failed", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(shot))
	if err != nil {
		return export.Image{}, export.NewError(export.KindInternal, "chromium capture is not a valid image", err)
	}
	if opts.Logging {
		e.logger().Debugf("chromium capture: %s %dx%d (%d bytes)", format, cfg.Width, cfg.Height, len(shot))
	}
	return export.Image{
		Data:   shot,
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: strings.ToUpper(format),
	}, nil
}

// Close releases Chromium resources if they have been initialized.
func (e *ChromiumRasterizer) Close() error {
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

func (e *ChromiumRasterizer) ensureBrowser() error {
	e.initOnce.Do(func() {
		options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if e.BrowserPath != "" {
			options = append(options, chromedp.ExecPath(e.BrowserPath))
		}
		options = append(options, chromedp.Flag("headless", e.Headless))
		options = append(options, allocatorOptionsFromArgs(e.Args)...)

		e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), options...)
		e.browserCtx, e.browserCancel = chromedp.NewContext(e.allocCtx)
	})
	if e.allocCtx == nil || e.browserCtx == nil {
		return errors.New("chromium allocator unavailable")
	}
	return nil
}

func (e *ChromiumRasterizer) logger() export.Logger {
	if e.Logger == nil {
		return export.NopLogger{}
	}
	return e.Logger
}

func allocatorOptionsFromArgs(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}

type limitedBuffer struct {
	buf     bytes.Buffer
	maxSize int64
}

func newLimitedBuffer(maxSize int64) *limitedBuffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxHTMLBytes
	}
	return &limitedBuffer{maxSize: maxSize}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.maxSize > 0 && int64(b.buf.Len()+len(p)) > b.maxSize {
		return 0, export.NewError(export.KindValidation, "capture html exceeds max bytes", nil)
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}

func (b *limitedBuffer) Len() int {
	return b.buf.Len()
}
