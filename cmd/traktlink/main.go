package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tmc/traktlink/cmd/traktlink/env"
	"github.com/tmc/traktlink/internal/auth"
	"github.com/tmc/traktlink/internal/browser"
	"github.com/tmc/traktlink/internal/config"
)

// Global flags
var (
	debug       bool
	envFile     string
	headless    bool
	screenshots bool
	driver      string
	signOut     string
	browserPath string
)

func init() {
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.StringVar(&envFile, "env-file", "", "env file read before ./.env and ~/.traktlink/env")
	flag.BoolVar(&headless, "headless", true, "run the browser without a window")
	flag.BoolVar(&screenshots, "screenshots", false, "save a screenshot at each checkpoint")
	flag.StringVar(&driver, "driver", "", "browser driver: chromedp or rod")
	flag.StringVar(&signOut, "sign-out", "", "sign out of Stremio afterwards: never, on-success or always")
	flag.StringVar(&browserPath, "browser", "", "browser executable")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: traktlink [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Links a Trakt account to a Stremio account through Trakt's consent flow.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  STREMIO_EMAIL, STREMIO_PASSWORD  Stremio account (required)\n")
		fmt.Fprintf(os.Stderr, "  TRAKT_EMAIL, TRAKT_PASSWORD      Trakt account (required)\n")
		fmt.Fprintf(os.Stderr, "  TRAKT_LINK_ID                    per-account authorization link\n")
		fmt.Fprintf(os.Stderr, "  TRAKTLINK_LOGIN_MODE             Trakt sign-in: keyboard or form\n")
		fmt.Fprintf(os.Stderr, "  TRAKTLINK_SCREENSHOT_DIR         where screenshots go\n")
	}
}

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "traktlink: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	files, err := env.Load(envFile)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := newLogger(os.Stderr, runID, debug)
	for _, f := range files {
		logger.Debug().Str("file", f).Msg("loaded env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cfg)
	resolveBrowser(cfg, logger)

	runner := auth.NewRunner(cfg, launcherFor(cfg.Driver),
		auth.WithLogger(logger),
		auth.WithRunID(runID),
	)
	res, err := runner.Run(ctx)
	if debug {
		logger.Debug().Msg(spew.Sdump(res))
	}
	return err
}

// applyFlags overrides configuration with flags given on the command line.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "headless":
			cfg.Headless = headless
		case "screenshots":
			cfg.Screenshots = screenshots
		case "driver":
			cfg.Driver = config.Driver(driver)
		case "sign-out":
			cfg.SignOut = config.SignOutPolicy(signOut)
		case "browser":
			cfg.BrowserPath = browserPath
		}
	})
}

func resolveBrowser(cfg *config.Config, logger zerolog.Logger) {
	p, err := browser.Locate(cfg.BrowserPath)
	if err != nil {
		logger.Debug().Err(err).Str("path", cfg.BrowserPath).Msg("browser lookup")
		return
	}
	if p != cfg.BrowserPath {
		logger.Info().Str("configured", cfg.BrowserPath).Str("path", p).Msg("using installed browser")
		cfg.BrowserPath = p
	}
}

func launcherFor(d config.Driver) browser.Launcher {
	if d == config.DriverRod {
		return browser.Rod{}
	}
	return browser.Chromedp{}
}
