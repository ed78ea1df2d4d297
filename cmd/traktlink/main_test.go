package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"rsc.io/script"
	"rsc.io/script/scripttest"

	"github.com/tmc/traktlink/internal/browser"
	"github.com/tmc/traktlink/internal/config"
)

func TestMain(m *testing.M) {
	// Build the traktlink binary for testing
	cmd := exec.Command("go", "build", "-o", "traktlink_test", ".")
	if err := cmd.Run(); err != nil {
		panic("failed to build traktlink for testing: " + err.Error())
	}

	code := m.Run()
	os.Remove("traktlink_test")
	os.Exit(code)
}

func TestCLIScripts(t *testing.T) {
	engine := script.NewEngine()
	engine.Cmds["traktlink_test"] = script.Program("./traktlink_test", func(cmd *exec.Cmd) error {
		if cmd.Process != nil {
			cmd.Process.Signal(os.Interrupt)
		}
		return nil
	}, time.Second)

	files, err := os.ReadDir("testdata")
	if err != nil {
		t.Fatalf("failed to read testdata: %v", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".txt") {
			continue
		}

		t.Run(file.Name(), func(t *testing.T) {
			// A clean environment keeps developer credentials out of the run.
			state, err := script.NewState(context.Background(), ".", []string{"HOME=" + t.TempDir()})
			if err != nil {
				t.Fatalf("failed to create script state: %v", err)
			}
			defer state.CloseAndWait(os.Stderr)

			content, err := os.ReadFile("testdata/" + file.Name())
			if err != nil {
				t.Fatalf("failed to read test file: %v", err)
			}

			reader := bufio.NewReader(strings.NewReader(string(content)))
			scripttest.Run(t, engine, state, file.Name(), reader)
		})
	}
}

func TestHelpCommand(t *testing.T) {
	cmd := exec.Command("./traktlink_test", "-h")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Errorf("traktlink -h: %v", err)
	}
	for _, want := range []string{"Usage: traktlink", "-sign-out", "STREMIO_EMAIL", "TRAKT_PASSWORD"} {
		if !strings.Contains(string(output), want) {
			t.Errorf("help output missing %q\nOutput:\n%s", want, output)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	fs := flag.CommandLine
	t.Cleanup(func() {
		for _, name := range []string{"headless", "driver", "sign-out", "browser", "screenshots"} {
			fs.Lookup(name).Value.Set(fs.Lookup(name).DefValue)
		}
	})

	cfg := &config.Config{
		Headless:    true,
		Driver:      config.DriverChromedp,
		SignOut:     config.SignOutNever,
		BrowserPath: "/usr/bin/chromium",
	}
	if err := fs.Parse([]string{"-headless=false", "-driver", "rod", "-sign-out", "always"}); err != nil {
		t.Fatal(err)
	}
	applyFlags(cfg)

	if cfg.Headless {
		t.Error("Headless = true, want false")
	}
	if cfg.Driver != config.DriverRod {
		t.Errorf("Driver = %q, want rod", cfg.Driver)
	}
	if cfg.SignOut != config.SignOutAlways {
		t.Errorf("SignOut = %q, want always", cfg.SignOut)
	}
	if cfg.BrowserPath != "/usr/bin/chromium" {
		t.Errorf("BrowserPath = %q, should be unchanged", cfg.BrowserPath)
	}
	if cfg.Screenshots {
		t.Error("Screenshots changed without a flag")
	}
}

func TestLauncherFor(t *testing.T) {
	if _, ok := launcherFor(config.DriverRod).(browser.Rod); !ok {
		t.Error("rod driver did not select the rod launcher")
	}
	if _, ok := launcherFor(config.DriverChromedp).(browser.Chromedp); !ok {
		t.Error("chromedp driver did not select the chromedp launcher")
	}
}
