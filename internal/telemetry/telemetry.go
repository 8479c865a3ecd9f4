// Package telemetry provides fire-and-forget diagnostic event sinks.
// Recording never fails from the caller's point of view: sync correctness
// must not depend on telemetry.
package telemetry

import "time"

// Имена событий синхронизации
const (
	EventOccConflict  = "sync_occ_conflict"
	EventConflictCopy = "sync_conflict_copy"
	EventPushRejected = "sync_push_rejected"
	EventSyncComplete = "sync_completed"

	// EventOperationApplied операция принята authoritative store
	EventOperationApplied = "sync_operation_applied"
)

// Sink принимает диагностические события
type Sink interface {
	Record(name string, properties map[string]string)
}

// Event is the serialized form of a recorded event.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Properties map[string]string `json:"properties"`
	Name       string            `json:"name"`
}

// Noop discards every event.
type Noop struct{}

// Record implements Sink
func (Noop) Record(string, map[string]string) {}

// Multi fans an event out to every sink.
type Multi []Sink

// Record implements Sink
func (m Multi) Record(name string, properties map[string]string) {
	for _, s := range m {
		if s != nil {
			s.Record(name, properties)
		}
	}
}
