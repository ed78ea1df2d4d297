package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const logTimeFormat = "2006-01-02 15:04:05"

// newLogger writes human-readable lines to a terminal and JSON otherwise.
func newLogger(f *os.File, runID string, debug bool) zerolog.Logger {
	var w io.Writer = f
	if term.IsTerminal(int(f.Fd())) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: logTimeFormat}
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("run_id", runID).
		Logger()
}
