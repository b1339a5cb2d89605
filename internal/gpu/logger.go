//go:build !nogpu

package gpu

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/texpack"
)

var loggerPtr atomic.Pointer[slog.Logger]

// slogger returns the logger handed to Executor.SetLogger, or the texpack
// package logger until one is set.
func slogger() *slog.Logger {
	if l := loggerPtr.Load(); l != nil {
		return l
	}
	return texpack.Logger()
}

// setLogger replaces the package logger. Nil restores the texpack logger.
func setLogger(l *slog.Logger) {
	loggerPtr.Store(l)
}
