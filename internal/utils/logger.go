package utils

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewApplicationLogger returns the console logger of the digest command,
// writing to stderr so stdout stays free for the document.
func NewApplicationLogger(verbose bool) (*zap.Logger, error) {
	return NewConsoleLogger(os.Stderr, verbose), nil
}

// NewConsoleLogger writes one line per entry: level, message, then fields.
// Warnings and errors are always written, debug and info only when verbose.
func NewConsoleLogger(destination io.Writer, verbose bool) *zap.Logger {
	minimumLevel := zapcore.WarnLevel
	if verbose {
		minimumLevel = zapcore.DebugLevel
	}
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
	sink := zapcore.Lock(zapcore.AddSync(destination))
	return zap.New(zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(minimumLevel)), zap.ErrorOutput(sink))
}
