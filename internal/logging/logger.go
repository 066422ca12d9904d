// Package logging builds the zap loggers used by streamchat.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger writing to w. Debug level is enabled
// when debug is true, info otherwise.
func NewLogger(w io.Writer, debug bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return zap.New(core, zap.AddCaller())
}

// NewConsoleLogger logs warnings and above to w unless verbose is set, in
// which case everything from debug up is shown.
func NewConsoleLogger(w io.Writer, verbose bool) *zap.Logger {
	if verbose {
		return NewLogger(w, true)
	}
	return NewLogger(w, false).WithOptions(zap.IncreaseLevel(zap.WarnLevel))
}

// NewFileLogger appends to the log file at path. The returned close function
// syncs and closes the file.
func NewFileLogger(path string, debug bool) (*zap.Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := NewLogger(f, debug)
	closeFn := func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return logger, closeFn, nil
}
