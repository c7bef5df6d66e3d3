// Package logging builds the slog logger shared by the session and the CLI.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options configures the logger
type Options struct {
	File  string // log file, appended to; empty discards all output
	Level string // debug, info, warn or error; empty means info
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel converts a configured level name
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(name) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// New opens the log file and returns a text logger writing to it. The
// returned closer must be closed when the program exits.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.File == "" {
		return Discard(), io.NopCloser(nil), nil
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	if dir := filepath.Dir(opts.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return NewWriter(f, level), f, nil
}

// NewWriter returns a text logger writing to w
func NewWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}))
}
