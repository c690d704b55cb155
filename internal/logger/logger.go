package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pathtofile/dockenv/internal/config"
)

// NewFromConfig builds a logger from the log section of cfg. verbose
// forces the debug level regardless of the configured one.
func NewFromConfig(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return New(cfg.Log.Format, level)
}

// New creates a new logger writing to stderr. format is "console" for
// terse human-readable lines or "json" for machine consumption.
func New(format, level string) (*zap.Logger, error) {
	var cfg zap.Config

	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
		// A CLI's progress lines read better without timestamps and
		// caller locations; the level is kept for warnings and errors.
		cfg.EncoderConfig.TimeKey = ""
		cfg.EncoderConfig.CallerKey = ""
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	case "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Sampling = nil
	default:
		return nil, fmt.Errorf("invalid log format: %s, must be 'console' or 'json'", format)
	}

	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %s, must be one of 'debug', 'info', 'warn', 'error'", level)
	}
	cfg.Level = zap.NewAtomicLevelAt(logLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}
