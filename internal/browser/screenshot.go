package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Recorder writes numbered full-page captures at named checkpoints.
// A nil *Recorder records nothing.
type Recorder struct {
	dir    string
	logger zerolog.Logger

	mu sync.Mutex
	n  int
}

// NewRecorder returns a Recorder writing into dir, created on first use.
func NewRecorder(dir string, logger zerolog.Logger) *Recorder {
	return &Recorder{dir: dir, logger: logger}
}

// Dir is where captures are written.
func (r *Recorder) Dir() string {
	if r == nil {
		return ""
	}
	return r.dir
}

// Capture saves a screenshot of p. Failures are logged and otherwise
// ignored.
func (r *Recorder) Capture(ctx context.Context, p Page, name string) {
	if r == nil || p == nil {
		return
	}
	r.mu.Lock()
	r.n++
	filename := filepath.Join(r.dir, fmt.Sprintf("%02d_%s.png", r.n, name))
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	data, err := p.Screenshot(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Str("checkpoint", name).Msg("screenshot failed")
		return
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		r.logger.Warn().Err(err).Str("dir", r.dir).Msg("create screenshot dir")
		return
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		r.logger.Warn().Err(err).Str("filename", filename).Msg("save screenshot")
		return
	}
	r.logger.Debug().Str("filename", filename).Msg("screenshot saved")
}
