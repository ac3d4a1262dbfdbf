// Package logging holds the process-wide structured logger. The logger is a
// nop unless verbose logging is enabled, so library callers pay nothing for
// the trace statements in the dispatch path.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// L returns the current logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetVerbose switches between a development logger and a nop logger
func SetVerbose(verbose bool) {
	mu.Lock()
	defer mu.Unlock()

	if !verbose {
		logger = zap.NewNop()
		return
	}

	dev, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop()
		return
	}
	logger = dev
}

// SetLogger installs a caller-supplied logger (used by tests)
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()

	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}
