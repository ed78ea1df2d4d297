package config

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("STREMIO_EMAIL", "a@example.com")
	t.Setenv("STREMIO_PASSWORD", "secret-a")
	t.Setenv("TRAKT_EMAIL", "b@example.com")
	t.Setenv("TRAKT_PASSWORD", "secret-b")
}

func TestLoadDefaults(t *testing.T) {
	setCredentials(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Driver != DriverChromedp {
		t.Errorf("Driver = %q, want %q", cfg.Driver, DriverChromedp)
	}
	if !cfg.Headless {
		t.Error("Headless = false, want true")
	}
	if cfg.SignOut != SignOutNever {
		t.Errorf("SignOut = %q, want %q", cfg.SignOut, SignOutNever)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want default", cfg.UserAgent)
	}
	if cfg.LoginTimeout != 10*time.Second {
		t.Errorf("LoginTimeout = %v, want 10s", cfg.LoginTimeout)
	}
	if cfg.NavigationTimeout != 30*time.Second {
		t.Errorf("NavigationTimeout = %v, want 30s", cfg.NavigationTimeout)
	}
	if cfg.ViewportWidth != 1366 || cfg.ViewportHeight != 768 {
		t.Errorf("viewport = %dx%d, want 1366x768", cfg.ViewportWidth, cfg.ViewportHeight)
	}
}

func TestValidateMissing(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{
			name: "all missing",
			env:  map[string]string{},
			want: []string{"STREMIO_EMAIL", "STREMIO_PASSWORD", "TRAKT_EMAIL", "TRAKT_PASSWORD"},
		},
		{
			name: "tracker password missing",
			env: map[string]string{
				"STREMIO_EMAIL":    "a@example.com",
				"STREMIO_PASSWORD": "x",
				"TRAKT_EMAIL":      "b@example.com",
			},
			want: []string{"TRAKT_PASSWORD"},
		},
		{
			name: "whitespace only counts as missing",
			env: map[string]string{
				"STREMIO_EMAIL":    "  ",
				"STREMIO_PASSWORD": "x",
				"TRAKT_EMAIL":      "b@example.com",
				"TRAKT_PASSWORD":   "y",
			},
			want: []string{"STREMIO_EMAIL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"STREMIO_EMAIL", "STREMIO_PASSWORD", "TRAKT_EMAIL", "TRAKT_PASSWORD"} {
				t.Setenv(k, tt.env[k])
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			err = cfg.Validate()
			if !errors.Is(err, ErrMissing) {
				t.Fatalf("Validate() error = %v, want ErrMissing", err)
			}
			var me *MissingError
			if !errors.As(err, &me) {
				t.Fatalf("Validate() error %T is not *MissingError", err)
			}
			if diff := cmp.Diff(tt.want, me.Keys); diff != "" {
				t.Errorf("missing keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateEnums(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"driver", "TRAKTLINK_DRIVER", "playwright"},
		{"sign out", "TRAKTLINK_SIGN_OUT", "sometimes"},
		{"login mode", "TRAKTLINK_LOGIN_MODE", "mouse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setCredentials(t)
			t.Setenv(tt.key, tt.val)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			err = cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() accepted %s=%s", tt.key, tt.val)
			}
			if errors.Is(err, ErrMissing) {
				t.Errorf("Validate() error = %v, should not be ErrMissing", err)
			}
		})
	}
}

func TestAuthorizeURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "generic endpoint",
			cfg: Config{
				TraktAuthorizeURL: "https://api.trakt.tv/oauth/authorize",
				TraktClientID:     "abc",
				TraktRedirectURI:  "https://www.strem.io/trakt/auth_cb",
			},
			want: "https://api.trakt.tv/oauth/authorize?client_id=abc&redirect_uri=https%3A%2F%2Fwww.strem.io%2Ftrakt%2Fauth_cb&response_type=code",
		},
		{
			name: "per-account link",
			cfg: Config{
				TraktAuthorizeURL: "https://api.trakt.tv/oauth/authorize/",
				TraktClientID:     "abc",
				TraktRedirectURI:  "https://www.strem.io/trakt/auth_cb",
				TraktLinkID:       "user 42",
			},
			want: "https://api.trakt.tv/oauth/authorize/user%2042?client_id=abc&redirect_uri=https%3A%2F%2Fwww.strem.io%2Ftrakt%2Fauth_cb&response_type=code",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.AuthorizeURL(); got != tt.want {
				t.Errorf("AuthorizeURL() = %v, want %v", got, tt.want)
			}
		})
	}
}
