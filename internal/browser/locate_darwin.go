//go:build darwin

package browser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var macOSBrowserPaths = []string{
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
	"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
	"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
}

// bundle id -> executable inside the bundle
var macOSBundles = []struct{ id, exec string }{
	{"org.chromium.Chromium", "Contents/MacOS/Chromium"},
	{"com.google.Chrome", "Contents/MacOS/Google Chrome"},
	{"com.brave.Browser", "Contents/MacOS/Brave Browser"},
}

func platformBrowser() string {
	for _, p := range macOSBrowserPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, b := range macOSBundles {
		if app := findBundle(b.id); app != "" {
			return filepath.Join(app, b.exec)
		}
	}
	return ""
}

// findBundle asks Spotlight for an installed app. With several copies the
// most recently modified wins.
func findBundle(bundleID string) string {
	out, err := exec.Command("mdfind", fmt.Sprintf("kMDItemCFBundleIdentifier == '%s'", bundleID)).Output()
	if err != nil || len(out) == 0 {
		return ""
	}
	var (
		newest   string
		newestAt time.Time
	)
	for _, p := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestAt) {
			newest, newestAt = p, info.ModTime()
		}
	}
	return newest
}
