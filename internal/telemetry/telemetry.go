// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package telemetry emits fire-and-forget events about resolver outcomes. Sinks never block
// the caller and never report errors back to it.
package telemetry

import (
	"log/slog"

	"github.com/wneessen/clockdash/internal/logger"
)

const (
	EventLocationResolved = "location_resolved"
	EventLocationFailed   = "location_failed"
	EventWeatherLoaded    = "weather_loaded"
	EventWeatherFailed    = "weather_failed"
)

// Sink receives telemetry events.
type Sink interface {
	Emit(name string, payload map[string]any)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Emit(string, map[string]any) {}

// LogSink writes events to the logger at debug level.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(name string, payload map[string]any) {
	attrs := make([]any, 0, len(payload)+1)
	attrs = append(attrs, slog.String("event", name))
	for k, v := range payload {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.log.Debug("telemetry event", attrs...)
}

// Multi fans events out to several sinks.
type Multi []Sink

func (m Multi) Emit(name string, payload map[string]any) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(name, payload)
		}
	}
}
