package jobqueue

import (
	"log/slog"
	"os"
)

// logger is the package-level trace/debug sink. It defaults to a
// Warn-level text logger on stderr so the package is usable without any
// setup (its own Debug output is then suppressed), and can be
// overridden wholesale with SetLogger or per-Queue with WithLogger.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

// SetLogger replaces the package-wide default logger used by queues
// constructed without an explicit WithLogger option. A nil logger is
// ignored.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	logger = l
}
