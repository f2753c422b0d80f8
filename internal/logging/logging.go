// Package logging builds the structured logger used by the import engine to
// record the outcome of every source record.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Level  string
	Format string // "json" or "console"
}

// New builds a zap logger from options. Unknown levels fall back to info.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			level = zapcore.InfoLevel
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Must is New for process startup.
func Must(opts Options) *zap.Logger {
	logger, err := New(opts)
	if err != nil {
		panic(err)
	}
	return logger
}
