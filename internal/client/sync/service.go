// Package sync runs the two-phase push/pull pass between the local replica and
// the authoritative store.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jonboulle/clockwork"

	"github.com/iudanet/notesync/internal/conflict"
	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/server/storage"
	"github.com/iudanet/notesync/internal/telemetry"
)

//go:generate moq -out service_mock.go . Service

// Service определяет интерфейс для sync.Service
type Service interface {
	// Sync pushes the outbox, then pulls changes after lastSyncToken.
	// At most one pass per user may be in flight.
	Sync(ctx context.Context, userID string, localRecords map[string]models.SyncRecord, queue Queue, lastSyncToken int64) (*SyncResult, error)
}

// Queue is the persistent outbox of one user
type Queue interface {
	Pending(ctx context.Context) ([]models.OutboxOperation, error)
	Replace(ctx context.Context, ops []models.OutboxOperation) error
}

// SyncResult contains sync pass results
type SyncResult struct {
	LocalRecords         map[string]models.SyncRecord        // итоговый локальный набор записей
	Suggestions          map[string][]models.MergeSuggestion // подсказки слияния по id conflict copy
	ConflictCopies       []models.SyncRecord                 // сохранённые локальные значения, проигравшие серверу
	AppliedRemoteChanges []models.SyncRecord                 // изменения с сервера в порядке токенов
	NewSyncToken         int64                               // watermark для следующего прохода
	Pushed               int                                 // операции, принятые сервером
	Rejected             int                                 // операции, отклонённые OCC и оставленные в outbox
}

type service struct {
	store     storage.Store
	resolver  conflict.Resolver
	telemetry telemetry.Sink
	clock     clockwork.Clock
	logger    *slog.Logger
}

// Opt configures the sync service
type Opt func(*service)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Opt {
	return func(s *service) {
		s.logger = logger
	}
}

// WithTelemetry sets the sink for sync events
func WithTelemetry(sink telemetry.Sink) Opt {
	return func(s *service) {
		s.telemetry = sink
	}
}

// WithClock sets the clock used for conflict copy ids and revisions
func WithClock(clock clockwork.Clock) Opt {
	return func(s *service) {
		s.clock = clock
	}
}

// WithResolver sets the resolver producing suggestions for conflict copies
func WithResolver(r conflict.Resolver) Opt {
	return func(s *service) {
		s.resolver = r
	}
}

// NewService creates a new sync service against store
func NewService(store storage.Store, opts ...Opt) Service {
	s := &service{
		store:     store,
		resolver:  conflict.NewRuleBased(),
		telemetry: telemetry.Noop{},
		clock:     clockwork.NewRealClock(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pass holds the state of one sync pass
type pass struct {
	local  map[string]models.SyncRecord
	seen   map[copyKey]struct{}
	copies []models.SyncRecord
}

type copyKey struct {
	recordID string
	payload  string
}

// Sync performs full synchronization with the authoritative store
// 1. Pushes outbox operations in FIFO order
// 2. Pulls server changes after lastSyncToken
// 3. Preserves diverged local values as conflict copies; the server wins the local map
func (s *service) Sync(ctx context.Context, userID string, localRecords map[string]models.SyncRecord, queue Queue, lastSyncToken int64) (*SyncResult, error) {
	s.logger.Info("Starting synchronization", "user_id", userID, "since", lastSyncToken)

	p := &pass{
		local: make(map[string]models.SyncRecord, len(localRecords)),
		seen:  make(map[copyKey]struct{}),
	}
	for id, record := range localRecords {
		p.local[id] = record
	}

	result := &SyncResult{}

	if err := s.push(ctx, userID, p, queue, result); err != nil {
		return nil, err
	}

	pulled, err := s.store.Pull(ctx, userID, lastSyncToken)
	if err != nil {
		return nil, fmt.Errorf("failed to pull changes: %w", err)
	}

	s.logger.Info("Received server changes", "count", len(pulled.Changes), "new_token", pulled.NewToken)

	result.AppliedRemoteChanges = s.applyRemote(userID, p, pulled.Changes)
	result.NewSyncToken = pulled.NewToken
	result.LocalRecords = p.local
	result.ConflictCopies = p.copies
	result.Suggestions = s.suggest(p)

	s.telemetry.Record(telemetry.EventSyncComplete, map[string]string{
		"user_id":        userID,
		"pushed":         strconv.Itoa(result.Pushed),
		"rejected":       strconv.Itoa(result.Rejected),
		"pulled":         strconv.Itoa(len(result.AppliedRemoteChanges)),
		"conflict_count": strconv.Itoa(len(result.ConflictCopies)),
	})

	s.logger.Info("Synchronization completed",
		"pushed", result.Pushed,
		"rejected", result.Rejected,
		"pulled", len(result.AppliedRemoteChanges),
		"conflicts", len(result.ConflictCopies),
		"new_token", result.NewSyncToken)

	return result, nil
}

func (s *service) push(ctx context.Context, userID string, p *pass, queue Queue, result *SyncResult) error {
	ops, err := queue.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to read outbox: %w", err)
	}

	s.logger.Info("Collected local changes", "count", len(ops))

	retried := make([]models.OutboxOperation, 0, len(ops))

	for i, op := range ops {
		record, err := s.store.Apply(ctx, userID, op)
		if err == nil {
			if record.Deleted {
				delete(p.local, record.ID)
			} else {
				p.local[record.ID] = *record
			}
			result.Pushed++
			continue
		}

		if !errors.Is(err, models.ErrOccConflict) {
			// Принятые операции удаляются, неотправленные остаются
			remaining := append(retried, ops[i:]...)
			if rerr := queue.Replace(ctx, remaining); rerr != nil {
				s.logger.Error("Failed to persist outbox after push failure", "error", rerr)
			}
			return fmt.Errorf("failed to push operation %s: %w", op.ID, err)
		}

		s.logger.Warn("Operation rejected", "record_id", op.RecordID, "kind", op.Kind, "error", err)
		s.telemetry.Record(telemetry.EventPushRejected, map[string]string{"id": op.RecordID, "kind": string(op.Kind)})

		// Предпочитаем текущее локальное значение устаревшему payload из очереди,
		// если локальная запись ещё не заменена серверной
		payload := op.Payload
		if current, ok := p.local[op.RecordID]; ok && hasLocalEdits(current) {
			payload = current.Payload
		}
		s.preserve(p, op.RecordID, payload, models.Revision{
			Version:   1,
			Author:    userID,
			Timestamp: s.clock.Now(),
		})

		retried = append(retried, op)
		result.Rejected++
	}

	if err := queue.Replace(ctx, retried); err != nil {
		return fmt.Errorf("failed to update outbox: %w", err)
	}

	return nil
}

// applyRemote installs changes in token order. Only the last change per record
// is compared against the local value; earlier ones are already superseded.
// A local value that differs from the incoming one is preserved whoever wrote it.
func (s *service) applyRemote(userID string, p *pass, changes []models.ServerChange) []models.SyncRecord {
	last := make(map[string]int64, len(changes))
	for _, change := range changes {
		last[change.Record.ID] = change.Token
	}

	applied := make([]models.SyncRecord, 0, len(changes))
	for _, change := range changes {
		remote := change.Record
		applied = append(applied, remote)

		if last[remote.ID] != change.Token {
			continue
		}

		if current, ok := p.local[remote.ID]; ok && current.Payload != remote.Payload {
			s.preserve(p, current.ID, current.Payload, current.Revision)
		}

		if remote.Deleted {
			delete(p.local, remote.ID)
		} else {
			p.local[remote.ID] = remote
		}
	}

	return applied
}

// hasLocalEdits reports whether record carries edits the server has not acknowledged.
// Records installed from the server keep the server author; a rejected op whose
// record was already replaced by the server value keeps its queued payload.
func hasLocalEdits(record models.SyncRecord) bool {
	return record.Revision.Author != models.ServerAuthor
}

// preserve adds a conflict copy unless the same payload of the record was already preserved in this pass
func (s *service) preserve(p *pass, recordID, payload string, revision models.Revision) {
	key := copyKey{recordID: recordID, payload: payload}
	if _, ok := p.seen[key]; ok {
		return
	}
	p.seen[key] = struct{}{}

	copyRecord := models.SyncRecord{
		ID:       models.ConflictCopyID(recordID, s.clock.Now()),
		Payload:  payload,
		Revision: revision,
	}
	p.copies = append(p.copies, copyRecord)

	s.telemetry.Record(telemetry.EventConflictCopy, map[string]string{"id": recordID})
	s.logger.Info("Conflict copy created", "record_id", recordID, "copy_id", copyRecord.ID)
}

// suggest compares every conflict copy with the final local value of its record
func (s *service) suggest(p *pass) map[string][]models.MergeSuggestion {
	suggestions := make(map[string][]models.MergeSuggestion, len(p.copies))
	for _, c := range p.copies {
		var server string
		if origin, ok := models.ConflictOrigin(c.ID); ok {
			server = p.local[origin].Payload
		}
		suggestions[c.ID] = s.resolver.Suggest(c.Payload, server, nil)
	}
	return suggestions
}
