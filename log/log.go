// Package log builds the zap loggers used by the harness.
//
// Relayed node output owns stdout, so harness logs are written elsewhere (stderr by default).
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Encoder kinds.
const (
	ConsoleEncoder = "console"
	JSONEncoder    = "json"
)

// where logs go by default.
var logWriter io.Writer = os.Stderr

// NewEncoder returns the zap encoder for the given kind.
func NewEncoder(kind string) (zapcore.Encoder, error) {
	switch kind {
	case ConsoleEncoder, "":
		return zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), nil
	case JSONEncoder:
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil
	default:
		return nil, fmt.Errorf("unknown log encoder %q", kind)
	}
}

// NewWithLevel creates a logger with a fixed level writing to w.
// A nil w selects the default writer.
func NewWithLevel(module string, level zap.AtomicLevel, encoder zapcore.Encoder, w io.Writer) *zap.Logger {
	if w == nil {
		w = logWriter
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core).Named(module)
}

// New parses level and encoder names and returns the logger.
func New(module, level, encoder string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	enc, err := NewEncoder(encoder)
	if err != nil {
		return nil, err
	}
	return NewWithLevel(module, lvl, enc, w), nil
}
