package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/server/storage"
	"github.com/iudanet/notesync/internal/server/storage/memory"
	"github.com/iudanet/notesync/internal/telemetry"
)

type recordingSink struct {
	events []string
}

func (r *recordingSink) Record(name string, _ map[string]string) {
	r.events = append(r.events, name)
}

func TestObserve(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	store := Observe(memory.New(nil), sink)

	_, err := store.Apply(ctx, "alice", models.NewOutboxOperation("n", models.OperationCreate, "x", nil))
	require.NoError(t, err)

	_, err = store.Apply(ctx, "alice", models.NewOutboxOperation("n", models.OperationCreate, "y", nil))
	assert.True(t, errors.Is(err, models.ErrOccConflict))

	_, err = store.Apply(ctx, "alice", models.NewOutboxOperation("", models.OperationCreate, "z", nil))
	assert.True(t, errors.Is(err, storage.ErrInvalidOperation))

	assert.Equal(t, []string{telemetry.EventOperationApplied, telemetry.EventPushRejected}, sink.events)

	// Чтение проходит без событий
	result, err := store.Pull(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, result.Changes, 1)
	assert.Len(t, sink.events, 2)
}
