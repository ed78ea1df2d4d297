package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// Rod launches a local browser through go-rod's launcher.
type Rod struct{}

// Launch starts a browser process and connects to its DevTools endpoint.
func (Rod) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	l := newRodLauncher(opts).Context(ctx)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &rodBrowser{browser: b, launcher: l, opts: opts}, nil
}

func newRodLauncher(opts LaunchOptions) *launcher.Launcher {
	l := launcher.New().
		Headless(opts.Headless).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", opts.Width, opts.Height))
	if opts.ExecPath != "" {
		l = l.Bin(opts.ExecPath)
	}
	if opts.UserAgent != "" {
		l = l.Set(flags.Flag("user-agent"), opts.UserAgent)
	}
	for _, f := range opts.Flags {
		l = l.Set(flags.Flag(strings.TrimLeft(f, "-")))
	}
	return l
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	opts     LaunchOptions

	once sync.Once
	err  error
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	// Detach from the creating context; methods bind their own.
	page = page.Context(context.Background())

	p := &rodPage{page: page, opts: b.opts}
	p.done, p.cancel = context.WithCancel(context.Background())
	if err := p.setup(); err != nil {
		p.cancel()
		page.Close()
		return nil, fmt.Errorf("set up page: %w", err)
	}
	return p, nil
}

func (b *rodBrowser) Close() error {
	b.once.Do(func() {
		b.err = b.browser.Close()
		b.launcher.Kill()
		b.launcher.Cleanup()
	})
	return b.err
}

type rodPage struct {
	page   *rod.Page
	router *rod.HijackRouter
	opts   LaunchOptions
	once   sync.Once

	// done ends when the page is closed.
	done   context.Context
	cancel context.CancelFunc
}

func (p *rodPage) setup() error {
	if err := (proto.NetworkEnable{}).Call(p.page); err != nil {
		return err
	}
	if err := (proto.NetworkSetCacheDisabled{CacheDisabled: true}).Call(p.page); err != nil {
		return err
	}
	if err := p.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: p.opts.UserAgent}); err != nil {
		return err
	}
	if err := p.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             p.opts.Width,
		Height:            p.opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return err
	}
	if len(p.opts.Blocked) == 0 {
		return nil
	}

	router := p.page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		if p.opts.blocks(string(h.Request.Type())) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return err
	}
	go router.Run()
	p.router = router
	return nil
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx).Timeout(p.opts.navTimeout())
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) Exists(ctx context.Context, selector string) (bool, error) {
	has, _, err := p.page.Context(ctx).Has(selector)
	return has, err
}

func (p *rodPage) WaitVisible(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) ClickScript(ctx context.Context, selector string) (bool, error) {
	res, err := p.page.Context(ctx).Eval(`(sel) => {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.click();
		return true;
	}`, selector)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (p *rodPage) SetValue(ctx context.Context, selector, value string) (bool, error) {
	res, err := p.page.Context(ctx).Eval(`(sel, v) => {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.value = v;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	}`, selector, value)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (p *rodPage) Type(ctx context.Context, text string, delay time.Duration) error {
	pg := p.page.Context(ctx)
	for _, r := range text {
		var err error
		if r >= ' ' && r <= '~' {
			err = pg.Keyboard.Type(input.Key(r))
		} else {
			// Outside the US layout rod knows about.
			err = pg.InsertText(string(r))
		}
		if err != nil {
			return err
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func (p *rodPage) Press(ctx context.Context, key Key) error {
	var k input.Key
	switch key {
	case KeyTab:
		k = input.Tab
	case KeyEnter:
		k = input.Enter
	default:
		return fmt.Errorf("unsupported key %q", key)
	}
	return p.page.Context(ctx).Keyboard.Type(k)
}

func (p *rodPage) Submit(ctx context.Context, formSelector string) error {
	res, err := p.page.Context(ctx).Eval(`(sel) => {
		const f = document.querySelector(sel);
		if (!f) return false;
		if (f.requestSubmit) f.requestSubmit(); else f.submit();
		return true;
	}`, formSelector)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return fmt.Errorf("form %s not found", formSelector)
	}
	return nil
}

// WaitNavigation returns when the page fires its load event, ctx ends or
// the page is closed. Rod listens on the browser-wide event stream, so the
// wait is tied to the page's own lifetime as well.
func (p *rodPage) WaitNavigation(ctx context.Context) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.done, cancel)
	defer stop()

	wait := p.page.Context(wctx).WaitNavigation(proto.PageLifecycleEventNameLoad)
	wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.done.Err() != nil {
		return errors.New("page closed before navigation")
	}
	return nil
}

func (p *rodPage) BringToFront(ctx context.Context) error {
	_, err := p.page.Context(ctx).Activate()
	return err
}

func (p *rodPage) Reload(ctx context.Context) error {
	pg := p.page.Context(ctx).Timeout(p.opts.navTimeout())
	if err := pg.Reload(); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *rodPage) Close() error {
	var err error
	p.once.Do(func() {
		p.cancel()
		if p.router != nil {
			p.router.Stop()
		}
		err = p.page.Close()
	})
	return err
}
