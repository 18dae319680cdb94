// Package logger provides structured logging setup for invoiceflow.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"

	"github.com/Strob0t/invoiceflow/internal/config"
)

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record.
// When cfg.File is set, records are also appended to that file as JSON.
// When cfg.Async is set, records are handed off to background workers.
// The returned Closer must be closed on shutdown to flush pending records.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	return newWithWriter(cfg, os.Stdout)
}

func newWithWriter(cfg config.Logging, w io.Writer) (*slog.Logger, Closer) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	closers := multiCloser{}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // operator-supplied path
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: open %s: %v; using stdout only\n", cfg.File, err)
		} else {
			handler = slogmulti.Fanout(handler, slog.NewJSONHandler(f, opts))
			closers = append(closers, fileCloser{f})
		}
	}

	if cfg.Async {
		ah := NewAsyncHandler(handler, 4096, 2)
		handler = ah
		// async first so pending records reach the file before it is closed
		closers = append(multiCloser{ah}, closers...)
	}

	return slog.New(handler).With("service", cfg.Service), closers
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type fileCloser struct{ f *os.File }

func (c fileCloser) Close() { _ = c.f.Close() }

type multiCloser []Closer

func (m multiCloser) Close() {
	for _, c := range m {
		c.Close()
	}
}
