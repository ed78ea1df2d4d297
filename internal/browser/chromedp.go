package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// Chromedp launches a local Chrome or Chromium through chromedp's exec
// allocator.
type Chromedp struct{}

// Launch starts a browser process and returns once its first tab is usable.
func (Chromedp) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	tempDir, err := os.MkdirTemp("", "traktlink-chrome-*")
	if err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(opts, tempDir)...)

	logger := opts.Logger.With().Str("component", "chromedp").Logger()
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug().Msgf(format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			logger.Debug().Msgf(format, args...)
		}),
	)

	// Starts the process and attaches to its first tab.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &chromeBrowser{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		tempDir:     tempDir,
		opts:        opts,
	}, nil
}

func allocatorOptions(opts LaunchOptions, userDataDir string) []chromedp.ExecAllocatorOption {
	o := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(userDataDir),
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.UserAgent(opts.UserAgent),
	}
	if opts.ExecPath != "" {
		o = append(o, chromedp.ExecPath(opts.ExecPath))
	}
	for _, f := range opts.Flags {
		o = append(o, chromedp.Flag(f, true))
	}
	return o
}

type chromeBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	tempDir     string
	opts        LaunchOptions

	once sync.Once
	err  error
}

func (b *chromeBrowser) NewPage(ctx context.Context) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.ctx)
	p := &chromePage{ctx: tabCtx, cancel: tabCancel, opts: b.opts}

	if len(b.opts.Blocked) > 0 {
		chromedp.ListenTarget(tabCtx, p.intercept)
	}

	// The first Run attaches the tab and must use the tab's own context;
	// a bounded context here would close the tab when it expires.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	setup := chromedp.Tasks{
		network.Enable(),
		network.SetCacheDisabled(true),
		emulation.SetUserAgentOverride(b.opts.UserAgent),
		emulation.SetDeviceMetricsOverride(int64(b.opts.Width), int64(b.opts.Height), 1, false),
	}
	if len(b.opts.Blocked) > 0 {
		setup = append(setup, fetch.Enable().WithPatterns([]*fetch.RequestPattern{{URLPattern: "*"}}))
	}

	sctx, cancel := p.scope(ctx)
	defer cancel()
	if err := chromedp.Run(sctx, setup); err != nil {
		tabCancel()
		return nil, fmt.Errorf("set up page: %w", err)
	}
	return p, nil
}

func (b *chromeBrowser) Close() error {
	b.once.Do(func() {
		b.err = chromedp.Cancel(b.ctx)
		b.cancel()
		b.allocCancel()
		os.RemoveAll(b.tempDir)
	})
	return b.err
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   LaunchOptions
	once   sync.Once
}

// intercept answers paused requests. Handlers run outside the event loop.
func (p *chromePage) intercept(ev interface{}) {
	e, ok := ev.(*fetch.EventRequestPaused)
	if !ok {
		return
	}
	go func() {
		c := chromedp.FromContext(p.ctx)
		if c == nil || c.Target == nil {
			return
		}
		ectx := cdp.WithExecutor(p.ctx, c.Target)
		var err error
		if p.opts.blocks(string(e.ResourceType)) {
			err = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(ectx)
		} else {
			err = fetch.ContinueRequest(e.RequestID).Do(ectx)
		}
		if err != nil && p.ctx.Err() == nil {
			p.opts.Logger.Debug().Err(err).Str("url", e.Request.URL).Msg("answer paused request")
		}
	}()
}

// scope derives a context from the tab that also ends when ctx does.
// Cancelling it does not close the tab.
func (p *chromePage) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	sctx, cancel := context.WithCancel(p.ctx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		sctx, cancelDeadline = context.WithDeadline(sctx, deadline)
		outer := cancel
		cancel = func() { cancelDeadline(); outer() }
	}
	stop := context.AfterFunc(ctx, cancel)
	return sctx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	sctx, cancel := p.scope(ctx)
	defer cancel()
	return chromedp.Run(sctx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.navTimeout())
	defer cancel()
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var u string
	if err := p.run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (p *chromePage) Exists(ctx context.Context, selector string) (bool, error) {
	var ok bool
	js := fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))
	if err := p.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return false, err
	}
	return ok, nil
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *chromePage) ClickScript(ctx context.Context, selector string) (bool, error) {
	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(clickScript(selector), &ok)); err != nil {
		return false, err
	}
	return ok, nil
}

func (p *chromePage) SetValue(ctx context.Context, selector, value string) (bool, error) {
	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(setValueScript(selector, value), &ok)); err != nil {
		return false, err
	}
	return ok, nil
}

func (p *chromePage) Type(ctx context.Context, text string, delay time.Duration) error {
	for _, r := range text {
		if err := p.run(ctx, chromedp.KeyEvent(string(r))); err != nil {
			return err
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func (p *chromePage) Press(ctx context.Context, key Key) error {
	var k string
	switch key {
	case KeyTab:
		k = kb.Tab
	case KeyEnter:
		k = kb.Enter
	default:
		return fmt.Errorf("unsupported key %q", key)
	}
	return p.run(ctx, chromedp.KeyEvent(k))
}

func (p *chromePage) Submit(ctx context.Context, formSelector string) error {
	return p.run(ctx, chromedp.Submit(formSelector, chromedp.ByQuery))
}

func (p *chromePage) WaitNavigation(ctx context.Context) error {
	sctx, cancel := p.scope(ctx)
	defer cancel()

	loaded := make(chan struct{}, 1)
	chromedp.ListenTarget(sctx, func(ev interface{}) {
		if _, ok := ev.(*cdppage.EventLoadEventFired); ok {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}
	})

	select {
	case <-loaded:
		return nil
	case <-sctx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return errors.New("page closed before navigation")
	}
}

func (p *chromePage) BringToFront(ctx context.Context) error {
	return p.run(ctx, cdppage.BringToFront())
}

func (p *chromePage) Reload(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.navTimeout())
	defer cancel()
	return p.run(ctx, chromedp.Reload())
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	// Quality 100 selects PNG.
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromePage) Close() error {
	p.once.Do(p.cancel)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func clickScript(selector string) string {
	return fmt.Sprintf(`(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.click();
	return true;
})(%s)`, jsString(selector))
}

func setValueScript(selector, value string) string {
	return fmt.Sprintf(`(function(sel, v) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.value = v;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})(%s, %s)`, jsString(selector), jsString(value))
}
