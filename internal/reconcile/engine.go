// Package reconcile implements local edits, rollback and OCC reconciliation
// of a local record against the authoritative server copy.
//
// Every function here is pure: inputs are never mutated and the only side
// effect is a diagnostic event on the configured telemetry sink.
package reconcile

import (
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/iudanet/notesync/internal/conflict"
	"github.com/iudanet/notesync/internal/diff"
	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/telemetry"
)

// SyncOutcome результат reconcile
type SyncOutcome struct {
	Resolved       models.SyncRecord        `json:"resolved"`
	ConflictCopies []models.SyncRecord      `json:"conflict_copies"`
	Suggestions    []models.MergeSuggestion `json:"suggestions"`
	HistoryEntries []models.HistoryEntry    `json:"history_entries"`
	Diff           models.TextDiff          `json:"diff"`
}

// Engine reconciliation engine
type Engine struct {
	diff      diff.Engine
	resolver  conflict.Resolver
	telemetry telemetry.Sink
	clock     clockwork.Clock
}

// Opt configures an Engine
type Opt func(*Engine)

// WithDiffEngine replaces the default line diff engine
func WithDiffEngine(d diff.Engine) Opt {
	return func(e *Engine) {
		e.diff = d
	}
}

// WithResolver replaces the default rule-based resolver
func WithResolver(r conflict.Resolver) Opt {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithTelemetry sets the sink for diagnostic events
func WithTelemetry(s telemetry.Sink) Opt {
	return func(e *Engine) {
		e.telemetry = s
	}
}

// WithClock sets the clock used for revision timestamps and conflict copy ids
func WithClock(c clockwork.Clock) Opt {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine with line diffing, rule-based suggestions, no telemetry
// and the wall clock, unless overridden by opts.
func New(opts ...Opt) *Engine {
	e := &Engine{
		diff:      diff.NewLineEngine(),
		resolver:  conflict.NewRuleBased(),
		telemetry: telemetry.Noop{},
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplyLocalChange returns record with newPayload at the next version, and the
// history entry capturing the value it supersedes.
func (e *Engine) ApplyLocalChange(record models.SyncRecord, newPayload, author string) (models.SyncRecord, models.HistoryEntry) {
	history := models.HistoryEntry{
		RecordID:        record.ID,
		PreviousPayload: record.Payload,
		Revision:        record.Revision,
	}
	updated := models.SyncRecord{
		ID:       record.ID,
		Payload:  newPayload,
		Revision: e.nextRevision(record.Revision, author),
	}
	return updated, history
}

// Rollback restores history's payload as a new forward revision.
// The version is bumped, never decremented.
func (e *Engine) Rollback(record models.SyncRecord, history models.HistoryEntry, author string) models.SyncRecord {
	return models.SyncRecord{
		ID:       record.ID,
		Payload:  history.PreviousPayload,
		Revision: e.nextRevision(record.Revision, author),
	}
}

// Reconcile decides the value of record for local vs server. base is the
// server copy the local edit was made against, if known.
//
// The server always remains the value of record; a diverged local payload
// survives only as a conflict copy. A base whose version differs from the
// server's fails with models.ErrOccConflict and the caller must re-fetch.
func (e *Engine) Reconcile(local, server models.SyncRecord, base *models.SyncRecord) (*SyncOutcome, error) {
	if base != nil && base.Revision.Version != server.Revision.Version {
		e.telemetry.Record(telemetry.EventOccConflict, map[string]string{"id": local.ID})
		expected := base.Revision.Version
		return nil, fmt.Errorf("reconcile %s: %w", local.ID, &models.ConflictError{
			RecordID:        local.ID,
			ExpectedVersion: &expected,
			CurrentVersion:  server.Revision.Version,
		})
	}

	var basePayload *string
	if base != nil {
		basePayload = &base.Payload
	}

	outcome := &SyncOutcome{
		Resolved:       server,
		ConflictCopies: []models.SyncRecord{},
		HistoryEntries: []models.HistoryEntry{},
		Diff:           e.diff.Diff(server.Payload, local.Payload),
		Suggestions:    e.resolver.Suggest(local.Payload, server.Payload, basePayload),
	}

	if local.Payload == server.Payload {
		return outcome, nil
	}

	outcome.HistoryEntries = append(outcome.HistoryEntries, models.HistoryEntry{
		RecordID:        server.ID,
		PreviousPayload: server.Payload,
		Revision:        server.Revision,
	})

	// Локальная правка сохраняется как conflict copy с исходной (не увеличенной) ревизией
	copyRecord := models.SyncRecord{
		ID:       models.ConflictCopyID(local.ID, e.clock.Now()),
		Payload:  local.Payload,
		Revision: local.Revision,
	}
	outcome.ConflictCopies = append(outcome.ConflictCopies, copyRecord)

	e.telemetry.Record(telemetry.EventConflictCopy, map[string]string{"id": local.ID})

	return outcome, nil
}

func (e *Engine) nextRevision(current models.Revision, author string) models.Revision {
	return models.Revision{
		Version:   current.Version + 1,
		Author:    author,
		Timestamp: e.clock.Now(),
	}
}
