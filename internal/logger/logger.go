// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/docsync/pkg/types"
)

// New creates a zap logger from config. prod uses JSON output; dev (the
// default) uses console output. cfg.Level, if set, overrides the level.
func New(cfg types.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	switch cfg.Env {
	case "prod":
		zc = zap.NewProductionConfig()
	case "", "dev", "local":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown logging env %q", cfg.Env)
	}

	if cfg.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
