// Package logger builds the service's zap logger and carries a
// request-scoped copy through echo and context.Context.
package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects level and encoding for the service logger.
type Options struct {
	Level       string
	Environment string
	Service     string
}

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// New builds a JSON logger for production and a colored console logger
// everywhere else. Unknown levels fall back to info.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if opts.Environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build(zap.Fields(
		zap.String("service", opts.Service),
		zap.String("environment", opts.Environment),
	))
}

// SetDefault installs l as the process-wide logger, including zap's globals.
func SetDefault(l *zap.Logger) {
	global.Store(l)
	zap.ReplaceGlobals(l)
}

// Default returns the process-wide logger; a no-op logger until SetDefault.
func Default() *zap.Logger {
	return global.Load()
}
