package telemetry

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/jonboulle/clockwork"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileSink appends events as JSON lines to a size-rotated file.
type FileSink struct {
	w     io.WriteCloser
	clock clockwork.Clock
	mu    sync.Mutex
}

// FileOptions настройки ротации файла событий
type FileOptions struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFileSink creates a sink writing to path with rotation settings opts
func NewFileSink(path string, opts FileOptions, clock clockwork.Clock) *FileSink {
	return newFileSink(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}, clock)
}

func newFileSink(w io.WriteCloser, clock clockwork.Clock) *FileSink {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FileSink{w: w, clock: clock}
}

// Record implements Sink. Encoding and write errors are dropped.
func (s *FileSink) Record(name string, properties map[string]string) {
	if properties == nil {
		properties = map[string]string{}
	}
	line, err := json.Marshal(Event{
		Name:       name,
		Properties: properties,
		Timestamp:  s.clock.Now().UTC(),
	})
	if err != nil {
		return
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(line)
}

// Close closes the underlying file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Close()
}
