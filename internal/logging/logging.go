// Package logging holds the process-wide logger shared by the extent and
// dataset packages. Nothing is logged until SetLogger is called.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled returns false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(nopHandler{}))
}

// SetLogger installs l. Passing nil restores silent logging.
//
// Levels in use:
//   - [slog.LevelDebug]: per-element extent results, skipped elements
//   - [slog.LevelInfo]: dataset loading
//   - [slog.LevelWarn]: elements whose extent could not be computed
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	current.Store(l)
}

// Logger returns the installed logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return current.Load()
}
