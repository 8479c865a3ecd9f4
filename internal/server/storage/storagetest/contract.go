// Package storagetest holds the behavioural contract every storage.Store must satisfy.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/server/storage"
)

// Factory creates an empty store using clock for revision timestamps
type Factory func(t *testing.T, clock clockwork.Clock) storage.Store

// Run executes the contract against stores produced by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("create", func(t *testing.T) { testCreate(t, newStore) })
	t.Run("duplicate create", func(t *testing.T) { testDuplicateCreate(t, newStore) })
	t.Run("update", func(t *testing.T) { testUpdate(t, newStore) })
	t.Run("stale update", func(t *testing.T) { testStaleUpdate(t, newStore) })
	t.Run("delete", func(t *testing.T) { testDelete(t, newStore) })
	t.Run("recreate after delete", func(t *testing.T) { testRecreate(t, newStore) })
	t.Run("pull", func(t *testing.T) { testPull(t, newStore) })
	t.Run("users isolated", func(t *testing.T) { testIsolation(t, newStore) })
	t.Run("invalid operation", func(t *testing.T) { testInvalid(t, newStore) })
}

func fixedClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
}

func mustApply(t *testing.T, s storage.Store, userID string, op models.OutboxOperation) *models.SyncRecord {
	t.Helper()
	record, err := s.Apply(context.Background(), userID, op)
	require.NoError(t, err)
	require.NotNil(t, record)
	return record
}

func requireOcc(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrOccConflict), "expected occ conflict, got %v", err)
}

func testCreate(t *testing.T, newStore Factory) {
	clock := fixedClock()
	s := newStore(t, clock)

	record := mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationCreate, "hello", nil))

	assert.Equal(t, "note-1", record.ID)
	assert.Equal(t, "hello", record.Payload)
	assert.Equal(t, int64(1), record.Revision.Version)
	assert.Equal(t, models.ServerAuthor, record.Revision.Author)
	assert.True(t, clock.Now().Equal(record.Revision.Timestamp))
	assert.False(t, record.Deleted)

	got, err := s.Record(context.Background(), "alice", "note-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Payload)
	assert.Equal(t, int64(1), got.Revision.Version)
}

func testDuplicateCreate(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock())

	op := models.NewOutboxOperation("note-1", models.OperationCreate, "hello", nil)
	mustApply(t, s, "alice", op)

	// Повтор той же операции ограждается проверкой существующего id
	_, err := s.Apply(context.Background(), "alice", op)
	requireOcc(t, err)

	pull, err := s.Pull(context.Background(), "alice", 0)
	require.NoError(t, err)
	assert.Len(t, pull.Changes, 1)
}

func testUpdate(t *testing.T, newStore Factory) {
	clock := fixedClock()
	s := newStore(t, clock)

	mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationCreate, "v1", nil))
	clock.Advance(time.Minute)

	record := mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationUpdate, "v2", models.Version(1)))
	assert.Equal(t, int64(2), record.Revision.Version)
	assert.Equal(t, "v2", record.Payload)
	assert.True(t, clock.Now().Equal(record.Revision.Timestamp))

	record = mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationUpdate, "v3", models.Version(2)))
	assert.Equal(t, int64(3), record.Revision.Version)
}

func testStaleUpdate(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock())
	ctx := context.Background()

	tests := []struct {
		name string
		op   models.OutboxOperation
	}{
		{name: "stale base", op: models.NewOutboxOperation("note-1", models.OperationUpdate, "x", models.Version(1))},
		{name: "future base", op: models.NewOutboxOperation("note-1", models.OperationUpdate, "x", models.Version(9))},
		{name: "missing base", op: models.NewOutboxOperation("note-1", models.OperationUpdate, "x", nil)},
		{name: "missing record", op: models.NewOutboxOperation("ghost", models.OperationUpdate, "x", models.Version(1))},
		{name: "delete missing record", op: models.NewOutboxOperation("ghost", models.OperationDelete, "", models.Version(1))},
		{name: "stale delete", op: models.NewOutboxOperation("note-1", models.OperationDelete, "", models.Version(1))},
	}

	mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationCreate, "v1", nil))
	mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationUpdate, "v2", models.Version(1)))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Apply(ctx, "alice", tt.op)
			requireOcc(t, err)
		})
	}

	// Отклонённые операции не меняют состояние
	got, err := s.Record(ctx, "alice", "note-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Payload)
	assert.Equal(t, int64(2), got.Revision.Version)

	pull, err := s.Pull(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, pull.Changes, 2)
	assert.Equal(t, int64(2), pull.NewToken)
}

func testDelete(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock())
	ctx := context.Background()

	mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationCreate, "v1", nil))
	tombstone := mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationDelete, "ignored", models.Version(1)))

	assert.True(t, tombstone.Deleted)
	assert.Empty(t, tombstone.Payload)
	assert.Equal(t, int64(2), tombstone.Revision.Version)
	assert.Equal(t, models.ServerAuthor, tombstone.Revision.Author)

	_, err := s.Record(ctx, "alice", "note-1")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	pull, err := s.Pull(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, pull.Changes, 1)
	assert.Equal(t, int64(2), pull.Changes[0].Token)
	assert.True(t, pull.Changes[0].Record.Deleted)
	assert.Empty(t, pull.Changes[0].Record.Payload)

	// Повторное удаление: записи нет в live set
	_, err = s.Apply(ctx, "alice", models.NewOutboxOperation("note-1", models.OperationDelete, "", models.Version(2)))
	requireOcc(t, err)
}

func testRecreate(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock())

	mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationCreate, "v1", nil))
	mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationDelete, "", models.Version(1)))

	record := mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationCreate, "again", nil))
	assert.Equal(t, int64(3), record.Revision.Version)
	assert.Equal(t, "again", record.Payload)
}

func testPull(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock())
	ctx := context.Background()

	empty, err := s.Pull(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, empty.Changes)
	assert.Equal(t, int64(0), empty.NewToken)

	mustApply(t, s, "alice", models.NewOutboxOperation("a", models.OperationCreate, "a1", nil))
	mustApply(t, s, "alice", models.NewOutboxOperation("b", models.OperationCreate, "b1", nil))
	mustApply(t, s, "alice", models.NewOutboxOperation("a", models.OperationUpdate, "a2", models.Version(1)))

	all, err := s.Pull(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, all.Changes, 3)
	assert.Equal(t, int64(3), all.NewToken)
	for i, change := range all.Changes {
		assert.Equal(t, int64(i+1), change.Token)
	}
	assert.Equal(t, "a1", all.Changes[0].Record.Payload)
	assert.Equal(t, "b1", all.Changes[1].Record.Payload)
	assert.Equal(t, "a2", all.Changes[2].Record.Payload)

	tail, err := s.Pull(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, tail.Changes, 1)
	assert.Equal(t, "a2", tail.Changes[0].Record.Payload)

	// newToken сообщается даже без подходящих изменений
	none, err := s.Pull(ctx, "alice", 3)
	require.NoError(t, err)
	assert.Empty(t, none.Changes)
	assert.Equal(t, int64(3), none.NewToken)
}

func testIsolation(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock())
	ctx := context.Background()

	mustApply(t, s, "alice", models.NewOutboxOperation("note-1", models.OperationCreate, "alice", nil))
	bob := mustApply(t, s, "bob", models.NewOutboxOperation("note-1", models.OperationCreate, "bob", nil))
	assert.Equal(t, int64(1), bob.Revision.Version)

	pull, err := s.Pull(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, pull.Changes, 1)
	assert.Equal(t, int64(1), pull.Changes[0].Token)
	assert.Equal(t, "bob", pull.Changes[0].Record.Payload)

	_, err = s.Record(ctx, "carol", "note-1")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func testInvalid(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock())

	tests := []struct {
		name string
		op   models.OutboxOperation
	}{
		{name: "unknown kind", op: models.OutboxOperation{ID: "1", RecordID: "note-1", Kind: "upsert"}},
		{name: "empty record id", op: models.OutboxOperation{ID: "2", Kind: models.OperationCreate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Apply(context.Background(), "alice", tt.op)
			assert.ErrorIs(t, err, storage.ErrInvalidOperation)
			assert.False(t, errors.Is(err, models.ErrOccConflict))
		})
	}
}
