// Package logging builds the zap loggers used across anefwatch.
// Each subsystem logs through a named child logger (its Category) that can be
// switched off individually from the logging section of the config file.
package logging

import (
	"fmt"
	"strings"

	"anefwatch/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config resolution
	CategoryBrowser  Category = "browser"  // Chrome lifecycle, navigation phases
	CategoryClassify Category = "classify" // Rule decisions
	CategoryBatch    Category = "batch"    // Account sequencing, summaries
	CategoryWebhook  Category = "webhook"  // Notification delivery
	CategoryStore    Category = "store"    // CSV and history persistence
)

// New builds the root logger from config. verbose forces debug level.
func New(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	var zc zap.Config
	if strings.EqualFold(cfg.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.Development = false
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Named returns the child logger for a category, or a no-op logger when the
// category is disabled.
func Named(root *zap.Logger, cfg config.LoggingConfig, category Category) *zap.Logger {
	if root == nil || !cfg.IsCategoryEnabled(string(category)) {
		return zap.NewNop()
	}
	return root.Named(string(category))
}
