// Package logger builds the structured logger used by the tap.
// Logs always go to stderr (or a caller supplied writer): stdout carries the
// Singer message stream and must stay clean.
package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Encodings understood by New.
const (
	EncodingConsole = "console"
	EncodingJSON    = "json"
)

// Options configures the logger.
type Options struct {
	// Verbose enables debug level messages.
	Verbose bool

	// Encoding is "console" (default) or "json".
	Encoding string

	// Output defaults to os.Stderr. Useful for testing.
	Output io.Writer
}

// New creates a logger from opts.
func New(opts Options) (*zap.Logger, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var encoder zapcore.Encoder
	switch opts.Encoding {
	case "", EncodingConsole:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case EncodingJSON:
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log encoding %q", opts.Encoding)
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), zap.NewAtomicLevelAt(level))
	return zap.New(core), nil
}

// Must is like New but panics on an invalid encoding.
func Must(opts Options) *zap.Logger {
	log, err := New(opts)
	if err != nil {
		panic(err)
	}
	return log
}
