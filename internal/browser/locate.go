package browser

import (
	"errors"
	"os/exec"
)

// ErrNoBrowser is returned by Locate when nothing usable is installed.
var ErrNoBrowser = errors.New("no Chrome-based browser found")

// Executable names searched on PATH, in order.
var pathCandidates = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"microsoft-edge",
	"brave-browser",
}

// Locate returns preferred when it names an executable. Otherwise it
// returns the first Chrome-based browser found on PATH or in the platform's
// usual install locations.
func Locate(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
	}
	for _, name := range pathCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	if p := platformBrowser(); p != "" {
		return p, nil
	}
	return "", ErrNoBrowser
}
