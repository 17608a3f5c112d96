// Package logging provides the categorized logger registry used across
// stratalog packages. Categories map to named zap loggers hanging off one
// root; until Initialize is called every category is a nop, so library
// use stays silent by default.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem's logger.
type Category string

const (
	CategoryEngine   Category = "engine"   // fixed-point driver, stores
	CategoryAnalysis Category = "analysis" // stratification, scheduling
	CategoryParse    Category = "parse"    // text front end
	CategoryWatch    Category = "watch"    // file watching / re-solve
	CategoryCLI      Category = "cli"      // command surface
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	loggers = make(map[Category]*zap.Logger)
)

// Initialize installs the root logger. verbose selects a development
// config at Debug level, otherwise a production config at Info.
func Initialize(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	SetRoot(l)
	return l, nil
}

// SetRoot replaces the root logger; existing category loggers are
// discarded and rebuilt on demand.
func SetRoot(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
	loggers = make(map[Category]*zap.Logger)
}

// Get returns the named logger for a category.
func Get(c Category) *zap.Logger {
	mu.RLock()
	l, ok := loggers[c]
	mu.RUnlock()
	if ok {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}
	l = root.Named(string(c))
	loggers[c] = l
	return l
}

// Sync flushes the root logger; safe to call on a nop root.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
