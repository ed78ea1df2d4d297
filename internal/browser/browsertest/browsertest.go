// Package browsertest provides scripted in-memory implementations of the
// browser interfaces.
//
// A Page holds a set of present selectors and a current URL. Hooks attached
// to clicks, key presses, submits and navigations mutate that state to play
// out a site's behaviour.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/traktlink/internal/browser"
)

// Hook mutates a page in response to an action.
type Hook func(p *Page)

// Page is a fake browser.Page. The zero value is not usable; use NewPage.
type Page struct {
	// OnNavigate replaces the default of setting the URL to the target.
	OnNavigate func(p *Page, url string)
	OnClick    map[string]Hook
	OnKey      map[browser.Key]Hook
	OnSubmit   map[string]Hook

	// NavigateErr is returned by Navigate after OnNavigate runs.
	NavigateErr error
	// ClickErr makes Click fail so that callers fall back to ClickScript.
	ClickErr error
	// ScriptErr makes every script evaluation fail.
	ScriptErr error
	// PanicOn names a method that panics when called.
	PanicOn string

	mu      sync.Mutex
	url     string
	present map[string]bool
	values  map[string]string
	typed   strings.Builder
	calls   []string
	closed  int
	navs    chan string
}

// NewPage returns a page at url with the given selectors present.
func NewPage(url string, present ...string) *Page {
	p := &Page{
		OnClick:  map[string]Hook{},
		OnKey:    map[browser.Key]Hook{},
		OnSubmit: map[string]Hook{},
		url:      url,
		present:  map[string]bool{},
		values:   map[string]string{},
		navs:     make(chan string, 16),
	}
	p.Add(present...)
	return p
}

// Add makes selectors present.
func (p *Page) Add(selectors ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range selectors {
		p.present[s] = true
	}
}

// Remove makes selectors absent.
func (p *Page) Remove(selectors ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range selectors {
		delete(p.present, s)
	}
}

// SetURL changes the URL without signalling a navigation.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
}

// Navigated changes the URL and releases one pending WaitNavigation.
func (p *Page) Navigated(url string) {
	p.SetURL(url)
	select {
	case p.navs <- url:
	default:
	}
}

// Value returns what SetValue stored for selector.
func (p *Page) Value(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[selector]
}

// Typed returns everything sent through Type.
func (p *Page) Typed() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typed.String()
}

// Calls returns the recorded method calls, such as "Click #id".
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Called counts recorded calls with the given prefix.
func (p *Page) Called(prefix string) int {
	n := 0
	for _, c := range p.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Closed reports how many times Close was called.
func (p *Page) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) record(method, arg string) {
	if p.PanicOn == method {
		panic(fmt.Sprintf("browsertest: %s %s", method, arg))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if arg != "" {
		method += " " + arg
	}
	p.calls = append(p.calls, method)
}

func (p *Page) has(selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.present[selector]
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.record("Navigate", url)
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.OnNavigate != nil {
		p.OnNavigate(p, url)
	} else {
		p.SetURL(url)
	}
	return p.NavigateErr
}

func (p *Page) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, ctx.Err()
}

func (p *Page) Exists(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.has(selector), nil
}

// WaitVisible returns at once if selector is present and otherwise blocks
// until ctx ends.
func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	p.record("WaitVisible", selector)
	if p.has(selector) {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.record("Click", selector)
	if p.ClickErr != nil {
		return p.ClickErr
	}
	if !p.has(selector) {
		return fmt.Errorf("no element matches %s", selector)
	}
	p.fire(p.OnClick[selector])
	return ctx.Err()
}

func (p *Page) ClickScript(ctx context.Context, selector string) (bool, error) {
	p.record("ClickScript", selector)
	if p.ScriptErr != nil {
		return false, p.ScriptErr
	}
	if !p.has(selector) {
		return false, nil
	}
	p.fire(p.OnClick[selector])
	return true, nil
}

func (p *Page) SetValue(ctx context.Context, selector, value string) (bool, error) {
	p.record("SetValue", selector)
	if p.ScriptErr != nil {
		return false, p.ScriptErr
	}
	if !p.has(selector) {
		return false, nil
	}
	p.mu.Lock()
	p.values[selector] = value
	p.mu.Unlock()
	return true, nil
}

func (p *Page) Type(ctx context.Context, text string, delay time.Duration) error {
	p.record("Type", "")
	p.mu.Lock()
	p.typed.WriteString(text)
	p.mu.Unlock()
	return ctx.Err()
}

func (p *Page) Press(ctx context.Context, key browser.Key) error {
	p.record("Press", string(key))
	p.fire(p.OnKey[key])
	return ctx.Err()
}

func (p *Page) Submit(ctx context.Context, formSelector string) error {
	p.record("Submit", formSelector)
	if !p.has(formSelector) {
		return fmt.Errorf("form %s not found", formSelector)
	}
	p.fire(p.OnSubmit[formSelector])
	return ctx.Err()
}

// WaitNavigation consumes one signal from Navigated or blocks until ctx
// ends.
func (p *Page) WaitNavigation(ctx context.Context) error {
	p.record("WaitNavigation", "")
	select {
	case <-p.navs:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Page) BringToFront(ctx context.Context) error {
	p.record("BringToFront", "")
	return ctx.Err()
}

func (p *Page) Reload(ctx context.Context) error {
	p.record("Reload", "")
	return ctx.Err()
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	p.record("Screenshot", "")
	return []byte("\x89PNG fake"), ctx.Err()
}

func (p *Page) Close() error {
	p.record("Close", "")
	p.mu.Lock()
	p.closed++
	p.mu.Unlock()
	return nil
}

func (p *Page) fire(h Hook) {
	if h != nil {
		h(p)
	}
}

// Browser hands out Pages in order and counts Close calls. When Pages is
// exhausted it returns blank pages.
type Browser struct {
	Pages      []*Page
	NewPageErr error

	mu     sync.Mutex
	next   int
	closed int
}

func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.next < len(b.Pages) {
		p := b.Pages[b.next]
		b.next++
		return p, nil
	}
	p := NewPage("about:blank")
	b.Pages = append(b.Pages, p)
	b.next++
	return p, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

// Closed reports how many times Close was called.
func (b *Browser) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// ErrLaunch is a ready-made launch failure.
var ErrLaunch = errors.New("browsertest: launch failed")

// Launcher returns Browser from every Launch, or Err if set.
type Launcher struct {
	Browser *Browser
	Err     error

	mu       sync.Mutex
	launched int
	opts     browser.LaunchOptions
}

func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launched++
	l.opts = opts
	if l.Err != nil {
		return nil, l.Err
	}
	if l.Browser == nil {
		l.Browser = &Browser{}
	}
	return l.Browser, nil
}

// Launched reports how many times Launch was called.
func (l *Launcher) Launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launched
}

// Options returns the options passed to the last Launch.
func (l *Launcher) Options() browser.LaunchOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opts
}
