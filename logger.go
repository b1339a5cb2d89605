package texpack

import (
	"log/slog"
	"sync/atomic"
)

var (
	discard = slog.New(slog.DiscardHandler)
	current atomic.Pointer[slog.Logger]
)

// SetLogger routes texpack log output to l. Nil turns logging off, which
// is also the initial state. It is safe to call while jobs run.
//
// Records carry a "job" attribute where one applies. Debug covers pass
// submission and target reuse, Info covers allocation and export, and Warn
// covers dropped completions and failed passes.
//
//	texpack.SetLogger(slog.New(slog.NewTextHandler(os.Stderr,
//	    &slog.HandlerOptions{Level: slog.LevelDebug})))
func SetLogger(l *slog.Logger) {
	current.Store(l)
}

// Logger returns the logger set by SetLogger, or a discarding logger.
// The export and gpu packages log through it.
func Logger() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return discard
}

// propagateLogger hands l to executors that log on their own.
func propagateLogger(e Executor, l *slog.Logger) {
	if ls, ok := e.(interface{ SetLogger(*slog.Logger) }); ok {
		ls.SetLogger(l)
	}
}
