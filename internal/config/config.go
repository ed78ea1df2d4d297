// Package config holds the settings for a single authorization run.
//
// Values come from the process environment. Callers that want dotenv
// files merged in should load them before calling Load.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// ErrMissing is matched by errors.Is when mandatory values are absent.
var ErrMissing = errors.New("missing required configuration")

// MissingError lists every mandatory key that had no value.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissing, strings.Join(e.Keys, ", "))
}

func (e *MissingError) Is(target error) bool { return target == ErrMissing }

// Driver selects the browser automation backend.
type Driver string

const (
	DriverChromedp Driver = "chromedp"
	DriverRod      Driver = "rod"
)

// SignOutPolicy decides whether the primary session is signed out at the
// end of a run.
type SignOutPolicy string

const (
	SignOutNever     SignOutPolicy = "never"
	SignOutOnSuccess SignOutPolicy = "on-success"
	SignOutAlways    SignOutPolicy = "always"
)

// LoginMode selects how the tracking-service sign-in form is submitted.
type LoginMode string

const (
	// LoginKeyboard types into the focused form with simulated key events.
	LoginKeyboard LoginMode = "keyboard"
	// LoginForm injects field values and submits the form directly.
	LoginForm LoginMode = "form"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config is loaded once at start-up and not modified afterwards.
type Config struct {
	StremioEmail    string `envconfig:"STREMIO_EMAIL"`
	StremioPassword string `envconfig:"STREMIO_PASSWORD"`
	TraktEmail      string `envconfig:"TRAKT_EMAIL"`
	TraktPassword   string `envconfig:"TRAKT_PASSWORD"`

	// TraktLinkID selects the per-account authorization link instead of
	// the generic authorize endpoint.
	TraktLinkID string `envconfig:"TRAKT_LINK_ID"`

	TraktClientID     string `envconfig:"TRAKT_CLIENT_ID" default:"0e861f52c7365efe6da5ea3e2e6641b8d25d87aca3133e8d4f7dc8487368d14b"`
	TraktRedirectURI  string `envconfig:"TRAKT_REDIRECT_URI" default:"https://www.strem.io/trakt/auth_cb"`
	TraktAuthorizeURL string `envconfig:"TRAKT_AUTHORIZE_URL" default:"https://api.trakt.tv/oauth/authorize"`
	StremioLoginURL   string `envconfig:"STREMIO_LOGIN_URL" default:"https://www.stremio.com/login"`

	Headless       bool          `envconfig:"TRAKTLINK_HEADLESS" default:"true"`
	Screenshots    bool          `envconfig:"TRAKTLINK_DEBUG_SCREENSHOTS" default:"false"`
	ScreenshotDir  string        `envconfig:"TRAKTLINK_SCREENSHOT_DIR" default:"traktlink-screenshots"`
	Driver         Driver        `envconfig:"TRAKTLINK_DRIVER" default:"chromedp"`
	BrowserPath    string        `envconfig:"TRAKTLINK_BROWSER_PATH" default:"/usr/bin/chromium"`
	UserAgent      string        `envconfig:"TRAKTLINK_USER_AGENT"`
	ViewportWidth  int           `envconfig:"TRAKTLINK_VIEWPORT_WIDTH" default:"1366"`
	ViewportHeight int           `envconfig:"TRAKTLINK_VIEWPORT_HEIGHT" default:"768"`
	SignOut        SignOutPolicy `envconfig:"TRAKTLINK_SIGN_OUT" default:"never"`
	LoginMode      LoginMode     `envconfig:"TRAKTLINK_LOGIN_MODE" default:"keyboard"`

	NavigationTimeout time.Duration `envconfig:"TRAKTLINK_NAV_TIMEOUT" default:"30s"`
	LoginTimeout      time.Duration `envconfig:"TRAKTLINK_LOGIN_TIMEOUT" default:"10s"`
	ClickTimeout      time.Duration `envconfig:"TRAKTLINK_CLICK_TIMEOUT" default:"5s"`
	ConnectSettle     time.Duration `envconfig:"TRAKTLINK_CONNECT_SETTLE" default:"1s"`
	TraktLoginTimeout time.Duration `envconfig:"TRAKTLINK_TRAKT_LOGIN_TIMEOUT" default:"30s"`
	ConsentTimeout    time.Duration `envconfig:"TRAKTLINK_CONSENT_TIMEOUT" default:"15s"`
	ConsentSettle     time.Duration `envconfig:"TRAKTLINK_CONSENT_SETTLE" default:"30s"`
	TypeDelay         time.Duration `envconfig:"TRAKTLINK_TYPE_DELAY" default:"100ms"`
}

// Load reads the environment into a Config. It does not validate; see
// Validate.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &cfg, nil
}

// Validate reports every missing mandatory value at once, followed by any
// value outside its allowed set.
func (c *Config) Validate() error {
	var missing []string
	for _, f := range []struct {
		key, value string
	}{
		{"STREMIO_EMAIL", c.StremioEmail},
		{"STREMIO_PASSWORD", c.StremioPassword},
		{"TRAKT_EMAIL", c.TraktEmail},
		{"TRAKT_PASSWORD", c.TraktPassword},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}

	switch c.Driver {
	case DriverChromedp, DriverRod:
	default:
		return fmt.Errorf("invalid driver %q (want %s or %s)", c.Driver, DriverChromedp, DriverRod)
	}
	switch c.SignOut {
	case SignOutNever, SignOutOnSuccess, SignOutAlways:
	default:
		return fmt.Errorf("invalid sign-out policy %q", c.SignOut)
	}
	switch c.LoginMode {
	case LoginKeyboard, LoginForm:
	default:
		return fmt.Errorf("invalid login mode %q", c.LoginMode)
	}
	if _, err := url.Parse(c.TraktAuthorizeURL); err != nil {
		return fmt.Errorf("invalid authorize url: %w", err)
	}
	return nil
}

// AuthorizeURL returns the handshake target opened in the second page.
// With a link id the per-account variant is used; the query is the same.
func (c *Config) AuthorizeURL() string {
	params := url.Values{}
	params.Set("client_id", c.TraktClientID)
	params.Set("redirect_uri", c.TraktRedirectURI)
	params.Set("response_type", "code")

	base := strings.TrimRight(c.TraktAuthorizeURL, "/")
	if c.TraktLinkID != "" {
		base += "/" + url.PathEscape(c.TraktLinkID)
	}
	return base + "?" + params.Encode()
}

// MarshalZerologObject logs the non-secret part of the configuration.
func (c *Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("driver", string(c.Driver)).
		Bool("headless", c.Headless).
		Bool("screenshots", c.Screenshots).
		Str("sign_out", string(c.SignOut)).
		Str("login_mode", string(c.LoginMode)).
		Bool("link_id", c.TraktLinkID != "").
		Str("browser_path", c.BrowserPath)
}
