// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package logger provides the slog based logger used throughout clockdash.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatTint = "tint"
)

// Logger wraps a slog.Logger so that packages only depend on this package.
type Logger struct {
	*slog.Logger
}

// New returns a new text logger for the given level that writes to stderr. Stdout is reserved
// for the dashboard output.
func New(level slog.Level) *Logger {
	return NewLogger(level, os.Stderr)
}

// NewLogger returns a new text logger for the given level and output.
func NewLogger(level slog.Level, output io.Writer) *Logger {
	return NewWithFormat(level, output, FormatText)
}

// NewWithFormat returns a new logger using the given handler format. Unknown formats fall back
// to the text handler.
func NewWithFormat(level slog.Level, output io.Writer, format string) *Logger {
	var handler slog.Handler
	switch strings.ToLower(format) {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	case FormatTint:
		handler = tint.NewHandler(output, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	default:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})
	}
	return &Logger{slog.New(handler)}
}

// Err returns an slog attribute for the given error.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
