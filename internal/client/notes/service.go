// Package notes implements the local editing workflow of one user on top of
// the local store, the outbox and the sync orchestrator.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/iudanet/notesync/internal/client/outbox"
	"github.com/iudanet/notesync/internal/client/storage"
	syncsvc "github.com/iudanet/notesync/internal/client/sync"
	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/reconcile"
)

// Ошибки сервиса заметок
var (
	// ErrRecordExists indicates that a record with the id already exists locally
	ErrRecordExists = errors.New("record already exists")

	// ErrEmptyHistory indicates that the record has nothing to roll back to
	ErrEmptyHistory = errors.New("record has no history")

	// ErrStrategyUnavailable indicates that the strategy is not suggested for the conflict
	ErrStrategyUnavailable = errors.New("merge strategy not available for conflict")
)

// LatestEntry selects the newest history entry in Rollback
const LatestEntry = -1

// Service определяет интерфейс клиентского сервиса заметок
type Service interface {
	Create(ctx context.Context, id, payload string) (*models.SyncRecord, error)
	Edit(ctx context.Context, id, payload string) (*models.SyncRecord, error)
	Delete(ctx context.Context, id string) error
	Rollback(ctx context.Context, id string, entry int) (*models.SyncRecord, error)

	Get(ctx context.Context, id string) (*models.SyncRecord, error)
	List(ctx context.Context) ([]models.SyncRecord, error)
	History(ctx context.Context, id string) ([]models.HistoryEntry, error)
	Pending(ctx context.Context) ([]models.OutboxOperation, error)

	Conflicts(ctx context.Context) ([]storage.ConflictCopy, error)
	Preview(ctx context.Context, copyID string) (*reconcile.SyncOutcome, error)
	DiscardConflict(ctx context.Context, copyID string) error
	ApplyConflict(ctx context.Context, copyID string, strategy models.MergeStrategy) (*models.SyncRecord, error)

	Sync(ctx context.Context) (*syncsvc.SyncResult, error)
}

type service struct {
	store  storage.LocalStore
	syncer syncsvc.Service
	queue  *outbox.Outbox
	engine *reconcile.Engine
	clock  clockwork.Clock
	logger *slog.Logger
	userID string
	// mu сериализует правки и проходы синхронизации пользователя
	mu sync.Mutex
}

// Opt configures the notes service
type Opt func(*service)

// WithEngine sets the reconciliation engine used for local edits and previews
func WithEngine(e *reconcile.Engine) Opt {
	return func(s *service) {
		s.engine = e
	}
}

// WithClock sets the clock for local revisions
func WithClock(c clockwork.Clock) Opt {
	return func(s *service) {
		s.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Opt {
	return func(s *service) {
		s.logger = l
	}
}

// NewService creates the notes service of userID
func NewService(store storage.LocalStore, syncer syncsvc.Service, userID string, opts ...Opt) Service {
	s := &service{
		store:  store,
		syncer: syncer,
		queue:  outbox.New(store, userID),
		userID: userID,
		clock:  clockwork.NewRealClock(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = reconcile.New(reconcile.WithClock(s.clock))
	}
	return s
}

// Create adds a record at version 1 and queues its create. An empty id gets a uuid.
func (s *service) Create(ctx context.Context, id, payload string) (*models.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.create(ctx, id, payload)
}

func (s *service) create(ctx context.Context, id, payload string) (*models.SyncRecord, error) {
	if id == "" {
		id = uuid.New().String()
	}

	if _, err := s.store.GetRecord(ctx, s.userID, id); err == nil {
		return nil, fmt.Errorf("create %s: %w", id, ErrRecordExists)
	} else if !errors.Is(err, storage.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check record: %w", err)
	}

	record := models.NewRecord(id, payload, s.userID, s.clock.Now())

	if err := s.store.SaveRecord(ctx, s.userID, record); err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}
	if err := s.queue.Enqueue(ctx, models.NewOutboxOperation(id, models.OperationCreate, payload, nil)); err != nil {
		return nil, fmt.Errorf("failed to enqueue create: %w", err)
	}

	s.logger.Debug("Record created", "record_id", id)
	return &record, nil
}

// Edit replaces the payload of a record and queues an update based on its current version
func (s *service) Edit(ctx context.Context, id, payload string) (*models.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.store.GetRecord(ctx, s.userID, id)
	if err != nil {
		return nil, fmt.Errorf("edit %s: %w", id, err)
	}

	updated, history := s.engine.ApplyLocalChange(*record, payload, s.userID)
	if err := s.commit(ctx, updated, history, record.Revision.Version); err != nil {
		return nil, err
	}

	s.logger.Debug("Record edited", "record_id", id, "version", updated.Revision.Version)
	return &updated, nil
}

// Rollback restores the payload of a history entry as a new revision.
// entry indexes History(id); LatestEntry picks the newest one.
func (s *service) Rollback(ctx context.Context, id string, entry int) (*models.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.store.GetRecord(ctx, s.userID, id)
	if err != nil {
		return nil, fmt.Errorf("rollback %s: %w", id, err)
	}

	entries, err := s.store.GetHistory(ctx, s.userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("rollback %s: %w", id, ErrEmptyHistory)
	}
	if entry == LatestEntry {
		entry = len(entries) - 1
	}
	if entry < 0 || entry >= len(entries) {
		return nil, fmt.Errorf("rollback %s: history entry %d out of range [0, %d)", id, entry, len(entries))
	}

	restored := s.engine.Rollback(*record, entries[entry], s.userID)

	// Откат сам по себе правка: текущее значение уходит в историю
	superseded := models.HistoryEntry{
		RecordID:        record.ID,
		PreviousPayload: record.Payload,
		Revision:        record.Revision,
	}
	if err := s.commit(ctx, restored, superseded, record.Revision.Version); err != nil {
		return nil, err
	}

	return &restored, nil
}

// commit persists a local mutation and queues its update
func (s *service) commit(ctx context.Context, record models.SyncRecord, history models.HistoryEntry, base int64) error {
	if err := s.store.AppendHistory(ctx, s.userID, history); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	if err := s.store.SaveRecord(ctx, s.userID, record); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	op := models.NewOutboxOperation(record.ID, models.OperationUpdate, record.Payload, models.Version(base))
	if err := s.queue.Enqueue(ctx, op); err != nil {
		return fmt.Errorf("failed to enqueue update: %w", err)
	}
	return nil
}

// Delete removes a record locally and queues its delete.
// The delete carries the last payload so a rejected delete still leaves a conflict copy.
func (s *service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.store.GetRecord(ctx, s.userID, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	if err := s.store.AppendHistory(ctx, s.userID, models.HistoryEntry{
		RecordID:        record.ID,
		PreviousPayload: record.Payload,
		Revision:        record.Revision,
	}); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	if err := s.store.DeleteRecord(ctx, s.userID, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	op := models.NewOutboxOperation(id, models.OperationDelete, record.Payload, models.Version(record.Revision.Version))
	if err := s.queue.Enqueue(ctx, op); err != nil {
		return fmt.Errorf("failed to enqueue delete: %w", err)
	}

	return nil
}

// Get returns a local record
func (s *service) Get(ctx context.Context, id string) (*models.SyncRecord, error) {
	return s.store.GetRecord(ctx, s.userID, id)
}

// List returns local records ordered by id
func (s *service) List(ctx context.Context) ([]models.SyncRecord, error) {
	records, err := s.store.GetRecords(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	list := make([]models.SyncRecord, 0, len(records))
	for _, r := range records {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	return list, nil
}

// History returns the superseded values of a record, oldest first
func (s *service) History(ctx context.Context, id string) ([]models.HistoryEntry, error) {
	return s.store.GetHistory(ctx, s.userID, id)
}

// Pending returns the operations not yet accepted by the server
func (s *service) Pending(ctx context.Context) ([]models.OutboxOperation, error) {
	return s.queue.Pending(ctx)
}

// Conflicts returns unresolved conflict copies
func (s *service) Conflicts(ctx context.Context) ([]storage.ConflictCopy, error) {
	return s.store.ListConflicts(ctx, s.userID)
}

// Preview reconciles a conflict copy against the current local value of its record.
// A record deleted since is compared as an empty payload.
func (s *service) Preview(ctx context.Context, copyID string) (*reconcile.SyncOutcome, error) {
	c, err := s.store.GetConflict(ctx, s.userID, copyID)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", copyID, err)
	}

	canonical, err := s.canonical(ctx, c.OriginalID)
	if err != nil {
		return nil, err
	}

	return s.engine.Reconcile(c.Record, canonical, nil)
}

func (s *service) canonical(ctx context.Context, id string) (models.SyncRecord, error) {
	record, err := s.store.GetRecord(ctx, s.userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return models.SyncRecord{ID: id}, nil
		}
		return models.SyncRecord{}, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return *record, nil
}

// DiscardConflict drops a conflict copy and any queued operation it was rejected with
func (s *service) DiscardConflict(ctx context.Context, copyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.GetConflict(ctx, s.userID, copyID)
	if err != nil {
		return fmt.Errorf("discard %s: %w", copyID, err)
	}

	if err := s.dropStale(ctx, c.OriginalID); err != nil {
		return err
	}

	return s.store.DeleteConflict(ctx, s.userID, copyID)
}

// ApplyConflict applies the merged payload of the chosen suggestion to the original
// record as a local edit and discards the copy. keepServer only discards.
func (s *service) ApplyConflict(ctx context.Context, copyID string, strategy models.MergeStrategy) (*models.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.GetConflict(ctx, s.userID, copyID)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", copyID, err)
	}

	canonical, err := s.canonical(ctx, c.OriginalID)
	if err != nil {
		return nil, err
	}

	outcome, err := s.engine.Reconcile(c.Record, canonical, nil)
	if err != nil {
		return nil, err
	}

	suggestion, ok := models.Find(outcome.Suggestions, strategy)
	if !ok || suggestion.MergedPayload == nil {
		return nil, fmt.Errorf("apply %s with %s: %w", copyID, strategy, ErrStrategyUnavailable)
	}

	if err := s.dropStale(ctx, c.OriginalID); err != nil {
		return nil, err
	}

	result := canonical
	payload := *suggestion.MergedPayload
	switch {
	case canonical.Revision.Version == 0:
		// Запись удалена после конфликта: восстанавливаем
		created, err := s.create(ctx, c.OriginalID, payload)
		if err != nil {
			return nil, err
		}
		result = *created
	case payload != canonical.Payload:
		updated, history := s.engine.ApplyLocalChange(canonical, payload, s.userID)
		if err := s.commit(ctx, updated, history, canonical.Revision.Version); err != nil {
			return nil, err
		}
		result = updated
	}

	if err := s.store.DeleteConflict(ctx, s.userID, copyID); err != nil {
		return nil, fmt.Errorf("failed to delete conflict: %w", err)
	}

	s.logger.Info("Conflict resolved", "copy_id", copyID, "strategy", strategy)
	return &result, nil
}

// dropStale removes queued operations on id that no longer lead to its
// current local value. Kept operations form a version chain ending at the
// local record; a record installed from the server keeps none.
func (s *service) dropStale(ctx context.Context, id string) error {
	ops, err := s.queue.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to read outbox: %w", err)
	}

	var current *models.SyncRecord
	if record, err := s.store.GetRecord(ctx, s.userID, id); err == nil {
		current = record
	} else if !errors.Is(err, storage.ErrRecordNotFound) {
		return fmt.Errorf("failed to get record %s: %w", id, err)
	}

	stale := staleOps(ops, id, current)
	if len(stale) == 0 {
		return nil
	}

	kept := make([]models.OutboxOperation, 0, len(ops)-len(stale))
	for _, op := range ops {
		if _, ok := stale[op.ID]; ok {
			s.logger.Info("Dropping stale operation", "record_id", id, "op_id", op.ID, "kind", op.Kind)
			continue
		}
		kept = append(kept, op)
	}
	return s.queue.Replace(ctx, kept)
}

func staleOps(ops []models.OutboxOperation, id string, current *models.SyncRecord) map[string]struct{} {
	stale := make(map[string]struct{})

	// Ожидаемая base следующей (с конца) операции цепочки
	var expected int64
	chained := current != nil
	if chained {
		expected = current.Revision.Version - 1
		if current.Revision.Author == models.ServerAuthor {
			expected = -1
		}
	}

	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if op.RecordID != id {
			continue
		}

		if !chained {
			// Запись удалена локально: цепочка заканчивается delete
			if op.Kind == models.OperationDelete && op.BaseRevisionVersion != nil {
				expected = *op.BaseRevisionVersion - 1
				chained = true
				continue
			}
			stale[op.ID] = struct{}{}
			continue
		}

		switch {
		case op.Kind == models.OperationCreate && expected == 0:
			expected = -1
		case op.Kind != models.OperationCreate && op.BaseRevisionVersion != nil && *op.BaseRevisionVersion == expected:
			expected--
		default:
			stale[op.ID] = struct{}{}
		}
	}

	return stale
}

// Sync runs one pass and persists records, new conflict copies and the watermark
func (s *service) Sync(ctx context.Context) (*syncsvc.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.GetRecords(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	token, err := s.store.GetLastSyncToken(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync token: %w", err)
	}

	result, err := s.syncer.Sync(ctx, s.userID, records, s.queue, token)
	if err != nil {
		return nil, err
	}

	// Значения, вытесненные сервером, остаются в истории
	for id, before := range records {
		after, ok := result.LocalRecords[id]
		if ok && after.Payload == before.Payload {
			continue
		}
		if err := s.store.AppendHistory(ctx, s.userID, models.HistoryEntry{
			RecordID:        id,
			PreviousPayload: before.Payload,
			Revision:        before.Revision,
		}); err != nil {
			return nil, fmt.Errorf("failed to append history: %w", err)
		}
	}

	if err := s.store.ReplaceRecords(ctx, s.userID, result.LocalRecords); err != nil {
		return nil, fmt.Errorf("failed to save records: %w", err)
	}

	if err := s.saveConflicts(ctx, result); err != nil {
		return nil, err
	}

	if err := s.store.SaveLastSyncToken(ctx, s.userID, result.NewSyncToken); err != nil {
		return nil, fmt.Errorf("failed to save sync token: %w", err)
	}

	return result, nil
}

// saveConflicts stores new copies, skipping payloads already preserved for the same record
func (s *service) saveConflicts(ctx context.Context, result *syncsvc.SyncResult) error {
	if len(result.ConflictCopies) == 0 {
		return nil
	}

	existing, err := s.store.ListConflicts(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}

	type key struct{ origin, payload string }
	known := make(map[key]struct{}, len(existing))
	for _, c := range existing {
		known[key{c.OriginalID, c.Record.Payload}] = struct{}{}
	}

	for _, copyRecord := range result.ConflictCopies {
		origin, ok := models.ConflictOrigin(copyRecord.ID)
		if !ok {
			continue
		}
		k := key{origin, copyRecord.Payload}
		if _, ok := known[k]; ok {
			continue
		}
		known[k] = struct{}{}

		if err := s.store.SaveConflict(ctx, s.userID, storage.ConflictCopy{
			Record:      copyRecord,
			OriginalID:  origin,
			Suggestions: result.Suggestions[copyRecord.ID],
			DetectedAt:  s.clock.Now(),
		}); err != nil {
			return fmt.Errorf("failed to save conflict %s: %w", copyRecord.ID, err)
		}
	}

	return nil
}
