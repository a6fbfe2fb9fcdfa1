package logger

import (
	"go.uber.org/zap"
)

var l = zap.NewNop()

// Init builds the process logger. format is "json" or "console".
func Init(level, format string) (*zap.Logger, error) {
	var zapCfg zap.Config

	if format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	built, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	l = built
	return l, nil
}

// L returns the process logger, a no-op logger until Init succeeds.
func L() *zap.Logger {
	return l
}

// Set replaces the process logger; tests use it with zaptest/observer loggers.
func Set(z *zap.Logger) {
	if z == nil {
		z = zap.NewNop()
	}
	l = z
}
