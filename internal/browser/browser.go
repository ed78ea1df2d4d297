// Package browser is the small slice of browser automation the
// authorization flow needs: launching a browser, opening pages and driving
// them with bounded waits.
//
// Two backends implement Launcher: Chromedp (the default) and Rod. Tests
// use the in-memory fakes in browsertest.
package browser

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ResourceType names a request class as reported by the DevTools protocol.
type ResourceType string

const (
	ResourceImage      ResourceType = "Image"
	ResourceStylesheet ResourceType = "Stylesheet"
	ResourceFont       ResourceType = "Font"
	ResourceMedia      ResourceType = "Media"
)

// DefaultBlocked are failed before they leave the browser.
var DefaultBlocked = []ResourceType{ResourceImage, ResourceStylesheet, ResourceFont, ResourceMedia}

// DefaultFlags are passed to every launched browser.
var DefaultFlags = []string{
	"no-sandbox",
	"disable-setuid-sandbox",
	"disable-dev-shm-usage",
	"disable-web-security",
	"no-first-run",
	"disable-default-apps",
}

// LaunchOptions configure a browser process and every page it opens.
type LaunchOptions struct {
	ExecPath          string
	Headless          bool
	Width, Height     int
	UserAgent         string
	NavigationTimeout time.Duration
	Blocked           []ResourceType
	Flags             []string
	Logger            zerolog.Logger
}

func (o LaunchOptions) blocks(rt string) bool {
	for _, b := range o.Blocked {
		if string(b) == rt {
			return true
		}
	}
	return false
}

func (o LaunchOptions) navTimeout() time.Duration {
	if o.NavigationTimeout <= 0 {
		return 30 * time.Second
	}
	return o.NavigationTimeout
}

// Launcher starts a browser process.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser owns the process. Close terminates it.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Key is a non-printable key sent to the focused element.
type Key string

const (
	KeyTab   Key = "Tab"
	KeyEnter Key = "Enter"
)

// Page is a single tab. Every blocking method is bounded by ctx.
//
// Presence checks (Exists, ClickScript, SetValue) report absence as false
// with a nil error.
type Page interface {
	// Navigate loads url and waits for the load event, bounded by the
	// launch-wide navigation timeout.
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Exists(ctx context.Context, selector string) (bool, error)
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// ClickScript calls element.click() in the page.
	ClickScript(ctx context.Context, selector string) (bool, error)
	SetValue(ctx context.Context, selector, value string) (bool, error)
	// Type sends text to the focused element one character at a time.
	Type(ctx context.Context, text string, delay time.Duration) error
	Press(ctx context.Context, key Key) error
	Submit(ctx context.Context, formSelector string) error
	// WaitNavigation blocks until the next load event.
	WaitNavigation(ctx context.Context) error
	BringToFront(ctx context.Context) error
	Reload(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}
