package env

import (
	"os"
	"path/filepath"
	"testing"
)

// unset clears key for the duration of the test.
func unset(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

// chdir changes the working directory to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	for _, k := range []string{"TL_ONLY_HOME", "TL_SHARED", "TL_EXPLICIT"} {
		unset(t, k)
	}
	t.Setenv("TL_PRESET", "from-process")
	t.Setenv("TL_EMPTY", "")

	writeFile(t, home, ".traktlink/env", "TL_ONLY_HOME=home\nTL_SHARED=home\nTL_PRESET=home\nTL_EMPTY=home\n")
	writeFile(t, ".", ".env", "TL_SHARED=dotenv\n")
	explicit := writeFile(t, t.TempDir(), "run.env", "# comment\nTL_EXPLICIT=\"quoted value\"\n")

	loaded, err := Load(explicit)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != 3 {
		t.Errorf("Load() read %v, want 3 files", loaded)
	}

	for key, want := range map[string]string{
		"TL_ONLY_HOME": "home",
		"TL_SHARED":    "dotenv",
		"TL_PRESET":    "from-process",
		"TL_EMPTY":     "",
		"TL_EXPLICIT":  "quoted value",
	} {
		if got := os.Getenv(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	loaded, err := Load("")
	if err != nil {
		t.Fatalf("Load() with no files error = %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Load() read %v, want nothing", loaded)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Error("Load() of a missing explicit file succeeded")
	}
}
