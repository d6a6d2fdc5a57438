// Package chrome drives a Chromium tab over the DevTools protocol with
// chromedp. Element handles are indices into a page-side registry that is
// rebuilt on every document-wide query, so a handle never outlives the
// rendering it was read from.
package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/mj1618/list-import/internal/model"
	"github.com/mj1618/list-import/internal/platform"
	"go.uber.org/zap"
)

// Browser is one chromedp tab.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *zap.Logger

	mu  sync.Mutex
	gen uint64
}

// New launches a browser, or attaches to one when opts.RemoteURL is set.
func New(opts platform.Options) (*Browser, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
			allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
		}
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}
		if opts.UserDataDir != "" {
			allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	}

	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info("browser session started",
		zap.Bool("remote", opts.RemoteURL != ""),
		zap.Bool("headless", opts.Headless))

	return &Browser{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.With(zap.String("component", "chrome")),
	}, nil
}

// Provider exposes the browser through the platform interfaces.
func (b *Browser) Provider() *platform.Provider {
	p := &platform.Provider{
		Document:      b,
		Inputter:      b,
		ValueSetter:   b,
		Navigator:     b,
		Screenshotter: b,
	}
	p.SetCloser(b.Close)
	return p
}

// run executes actions on the tab, aborting if the caller's ctx ends first.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// QueryAll implements platform.Document.
func (b *Browser) QueryAll(ctx context.Context, selector string) ([]model.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	return b.query(ctx, b.gen, -1, selector)
}

// QueryWithin implements platform.Document.
func (b *Browser) QueryWithin(ctx context.Context, parent model.Handle, selector string) ([]model.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if parent.Gen != b.gen {
		return nil, platform.ErrStaleHandle
	}
	return b.query(ctx, parent.Gen, parent.Index, selector)
}

func (b *Browser) query(ctx context.Context, gen uint64, parent int, selector string) ([]model.Element, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return nil, err
	}
	var res queryResult
	expr := fmt.Sprintf("(%s)(%s, %d, %d)", queryJS, sel, gen, parent)
	if err := b.run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("query %s: %s", selector, res.Error)
	}
	if res.Stale {
		return nil, platform.ErrStaleHandle
	}
	out := make([]model.Element, 0, len(res.Nodes))
	for _, n := range res.Nodes {
		out = append(out, model.Element{
			Handle:  model.Handle{Gen: gen, Index: n.Index},
			Tag:     n.Tag,
			Text:    n.Text,
			Attrs:   n.Attrs,
			Bounds:  roundBox(n.Bounds),
			Visible: n.Visible,
		})
	}
	return out, nil
}

// callNode evaluates body with `el` bound to the handle's node.
func (b *Browser) callNode(ctx context.Context, h model.Handle, body string, out *nodeResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h.Gen != b.gen {
		return platform.ErrStaleHandle
	}
	expr := fmt.Sprintf(nodeJS, h.Gen, h.Index, body)
	if err := b.run(ctx, chromedp.Evaluate(expr, out)); err != nil {
		return err
	}
	if out.Stale {
		return platform.ErrStaleHandle
	}
	return nil
}

// Bounds implements platform.Inputter.
func (b *Browser) Bounds(ctx context.Context, h model.Handle) (platform.Bounds, error) {
	var res nodeResult
	if err := b.callNode(ctx, h, boundsBody, &res); err != nil {
		return platform.Bounds{}, fmt.Errorf("bounds: %w", err)
	}
	box := roundBox(res.Bounds)
	return platform.Bounds{X: box[0], Y: box[1], Width: box[2], Height: box[3]}, nil
}

// Click implements platform.Inputter with trusted CDP mouse events.
func (b *Browser) Click(ctx context.Context, x, y int) error {
	fx, fy := float64(x), float64(y)
	b.logger.Debug("click", zap.Int("x", x), zap.Int("y", y))
	return b.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MouseMoved, fx, fy).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MousePressed, fx, fy).
				WithButton(input.Left).WithClickCount(1).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MouseReleased, fx, fy).
				WithButton(input.Left).WithClickCount(1).Do(ctx)
		}),
	)
}

// Focus implements platform.ValueSetter.
func (b *Browser) Focus(ctx context.Context, h model.Handle) error {
	var res nodeResult
	if err := b.callNode(ctx, h, focusBody, &res); err != nil {
		return fmt.Errorf("focus: %w", err)
	}
	return nil
}

// SetValue implements platform.ValueSetter.
func (b *Browser) SetValue(ctx context.Context, h model.Handle, value string) error {
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var res nodeResult
	if err := b.callNode(ctx, h, fmt.Sprintf(setValueBody, v), &res); err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	return nil
}

// Navigate implements platform.Navigator.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.logger.Info("navigating", zap.String("url", url))
	if err := b.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// CaptureViewport implements platform.Screenshotter.
func (b *Browser) CaptureViewport(ctx context.Context) (platform.Screenshot, error) {
	var buf []byte
	var size [2]float64
	err := b.run(ctx,
		chromedp.CaptureScreenshot(&buf),
		chromedp.Evaluate(`[window.innerWidth, window.innerHeight]`, &size),
	)
	if err != nil {
		return platform.Screenshot{}, fmt.Errorf("screenshot: %w", err)
	}
	return platform.Screenshot{PNG: buf, Width: int(size[0]), Height: int(size[1])}, nil
}

// Close shuts the tab and, for launched browsers, the browser process.
func (b *Browser) Close() error {
	b.logger.Info("closing browser session")
	b.cancel()
	b.allocCancel()
	return nil
}

func roundBox(f [4]float64) [4]int {
	return [4]int{
		int(math.Round(f[0])),
		int(math.Round(f[1])),
		int(math.Round(f[2])),
		int(math.Round(f[3])),
	}
}
