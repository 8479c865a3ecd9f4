package telemetry

import (
	"context"
	"log/slog"
	"sort"
)

// LogSink writes events to a structured logger at debug level.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink backed by logger
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Record implements Sink
func (s *LogSink) Record(name string, properties map[string]string) {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("event", name))
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, properties[k]))
	}

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "telemetry event", attrs...)
}
