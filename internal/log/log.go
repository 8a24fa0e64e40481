// Package log builds the process-wide zap logger.
package log

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logFileEnvKey = "SVNSCM_LOG_FILE"
	debugEnvKey   = "SVNSCM_DEBUG"
)

var (
	atomicLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	base        = zap.NewNop()
)

// Init builds the global logger. Output goes to stderr unless
// SVNSCM_LOG_FILE names a file. SVNSCM_DEBUG forces debug level.
func Init() error {
	cfg := zap.NewProductionConfig()
	cfg.Level = atomicLevel
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if logFile := os.Getenv(logFileEnvKey); logFile != "" {
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
	} else {
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	if os.Getenv(debugEnvKey) != "" {
		atomicLevel.SetLevel(zap.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	base = logger
	return nil
}

// L returns the global logger. It is a no-op logger until Init succeeds.
func L() *zap.Logger {
	return base
}

// SetLevel parses a level name ("debug", "info", "warn", "error").
// Unknown names are rejected and leave the level unchanged.
func SetLevel(name string) error {
	if name == "" {
		return nil
	}
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	atomicLevel.SetLevel(lvl)
	return nil
}

// ParseLevel maps a level name to a zapcore.Level.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// Level returns the current level.
func Level() zapcore.Level {
	return atomicLevel.Level()
}

func Sync() {
	_ = base.Sync()
}
