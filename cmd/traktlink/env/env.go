// Package env merges dotenv files into the process environment.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultFiles are read when present: ./.env, then ~/.traktlink/env.
func DefaultFiles() []string {
	files := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".traktlink", "env"))
	}
	return files
}

// Load merges explicit (if non-empty) and the default files into the
// environment and returns the files that were read. Variables that are
// already set, even to the empty string, are never overridden, so earlier
// files win over later ones. A missing explicit file is an error; missing
// default files are skipped.
func Load(explicit string) ([]string, error) {
	var loaded []string
	if explicit != "" {
		if err := godotenv.Load(explicit); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
		loaded = append(loaded, explicit)
	}
	for _, f := range DefaultFiles() {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return loaded, fmt.Errorf("load env file %s: %w", f, err)
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}
