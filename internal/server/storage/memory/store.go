// Package memory implements the authoritative store in process memory.
// It backs tests and single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/server/storage"
)

type userState struct {
	records   map[string]models.SyncRecord
	versions  map[string]int64
	changes   []models.ServerChange
	nextToken int64
}

func newUserState() *userState {
	return &userState{
		records:   make(map[string]models.SyncRecord),
		versions:  make(map[string]int64),
		nextToken: 1,
	}
}

// Store in-memory authoritative store; all methods are serialized by one mutex
type Store struct {
	clock clockwork.Clock
	users map[string]*userState
	mu    sync.Mutex
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store. A nil clock means the wall clock.
func New(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock: clock,
		users: make(map[string]*userState),
	}
}

// Apply implements storage.Store
func (s *Store) Apply(ctx context.Context, userID string, op models.OutboxOperation) (*models.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state(userID)

	var current *models.SyncRecord
	if r, ok := state.records[op.RecordID]; ok {
		current = &r
	}

	record, err := storage.Decide(op, current, state.versions[op.RecordID], s.clock.Now())
	if err != nil {
		return nil, err
	}

	if record.Deleted {
		delete(state.records, record.ID)
	} else {
		state.records[record.ID] = record
	}
	state.append(record)

	return &record, nil
}

// Pull implements storage.Store
func (s *Store) Pull(ctx context.Context, userID string, sinceToken int64) (*storage.PullResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &storage.PullResult{Changes: []models.ServerChange{}}

	state, ok := s.users[userID]
	if !ok {
		return result, nil
	}

	for _, change := range state.changes {
		if change.Token > sinceToken {
			result.Changes = append(result.Changes, change)
		}
	}
	result.NewToken = state.nextToken - 1

	return result, nil
}

// Record implements storage.Store
func (s *Store) Record(ctx context.Context, userID, id string) (*models.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}

	record, ok := state.records[id]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}

	return &record, nil
}

// Seed installs record as-is into the live set and appends it to the change log.
// Test fixture: no OCC check is performed.
func (s *Store) Seed(userID string, record models.SyncRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state(userID)
	state.records[record.ID] = record
	state.append(record)
}

func (s *Store) state(userID string) *userState {
	state, ok := s.users[userID]
	if !ok {
		state = newUserState()
		s.users[userID] = state
	}
	return state
}

func (u *userState) append(record models.SyncRecord) {
	if record.Revision.Version > u.versions[record.ID] {
		u.versions[record.ID] = record.Revision.Version
	}
	u.changes = append(u.changes, models.ServerChange{Token: u.nextToken, Record: record})
	u.nextToken++
}
