package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	names []string
}

func (r *recordingSink) Record(name string, _ map[string]string) {
	r.names = append(r.names, name)
}

func TestNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		Noop{}.Record(EventConflictCopy, nil)
	})
}

func TestMulti(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := Multi{a, nil, b}

	m.Record(EventOccConflict, map[string]string{"id": "1"})

	assert.Equal(t, []string{EventOccConflict}, a.names)
	assert.Equal(t, []string{EventOccConflict}, b.names)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewLogSink(logger).Record(EventConflictCopy, map[string]string{"id": "note-1", "user_id": "u"})

	out := buf.String()
	assert.Contains(t, out, "telemetry event")
	assert.Contains(t, out, "event=sync_conflict_copy")
	assert.Contains(t, out, "id=note-1")
	assert.Contains(t, out, "user_id=u")
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	sink := NewFileSink(path, FileOptions{MaxSizeMB: 1}, clock)
	sink.Record(EventOccConflict, map[string]string{"id": "note-1"})
	sink.Record(EventSyncComplete, nil)
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, 2)
	assert.Equal(t, EventOccConflict, events[0].Name)
	assert.Equal(t, "note-1", events[0].Properties["id"])
	assert.True(t, clock.Now().Equal(events[0].Timestamp))
	assert.Equal(t, EventSyncComplete, events[1].Name)
	assert.Empty(t, events[1].Properties)
}

func TestMetricsSink(t *testing.T) {
	reg := prometheus.NewRegistry()

	sink, err := NewMetricsSink(reg)
	require.NoError(t, err)

	sink.Record(EventConflictCopy, nil)
	sink.Record(EventConflictCopy, nil)
	sink.Record(EventOccConflict, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.Counter(EventConflictCopy)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.Counter(EventOccConflict)))

	t.Run("second registration reuses counter", func(t *testing.T) {
		again, err := NewMetricsSink(reg)
		require.NoError(t, err)
		again.Record(EventConflictCopy, nil)
		assert.Equal(t, 3.0, testutil.ToFloat64(sink.Counter(EventConflictCopy)))
	})
}
