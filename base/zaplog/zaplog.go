// Package zaplog holds the process wide logger used by components that are
// not handed one explicitly.
package zaplog

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the logger last passed to SetLogger, or a no-op logger.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

func SetLogger(l *zap.Logger) { logger.Store(l) }

// Or returns l, or the process wide logger if l is nil.
func Or(l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	return Logger()
}
