package outbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/notesync/internal/client/storage"
	"github.com/iudanet/notesync/internal/client/storage/boltdb"
	"github.com/iudanet/notesync/internal/client/storage/memory"
	"github.com/iudanet/notesync/internal/models"
)

func TestOutbox_EmptyPending(t *testing.T) {
	o := New(memory.NewBlobStore(), "alice")

	ops, err := o.Pending(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, ops)
	assert.Empty(t, ops)
}

func TestOutbox_EnqueueFIFO(t *testing.T) {
	ctx := context.Background()
	o := New(memory.NewBlobStore(), "alice")

	first := models.NewOutboxOperation("1", models.OperationCreate, "a", nil)
	second := models.NewOutboxOperation("1", models.OperationUpdate, "b", models.Version(1))
	third := models.NewOutboxOperation("2", models.OperationDelete, "", models.Version(4))

	for _, op := range []models.OutboxOperation{first, second, third} {
		require.NoError(t, o.Enqueue(ctx, op))
	}

	ops, err := o.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.OutboxOperation{first, second, third}, ops)
}

func TestOutbox_EnqueueAssignsID(t *testing.T) {
	ctx := context.Background()
	o := New(memory.NewBlobStore(), "alice")

	require.NoError(t, o.Enqueue(ctx, models.OutboxOperation{RecordID: "1", Kind: models.OperationCreate}))

	ops, err := o.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.NotEmpty(t, ops[0].ID)
}

func TestOutbox_Replace(t *testing.T) {
	ctx := context.Background()
	o := New(memory.NewBlobStore(), "alice")

	require.NoError(t, o.Enqueue(ctx, models.NewOutboxOperation("1", models.OperationCreate, "a", nil)))

	kept := models.NewOutboxOperation("2", models.OperationUpdate, "b", models.Version(2))
	require.NoError(t, o.Replace(ctx, []models.OutboxOperation{kept}))

	ops, err := o.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.OutboxOperation{kept}, ops)

	require.NoError(t, o.Replace(ctx, nil))
	ops, err = o.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestOutbox_PerUserKeys(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBlobStore()

	alice := New(store, "alice")
	bob := New(store, "bob")

	require.NoError(t, alice.Enqueue(ctx, models.NewOutboxOperation("1", models.OperationCreate, "a", nil)))

	ops, err := bob.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, ops)

	blob, err := store.Load(ctx, "outbox_alice")
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"base_revision_version":null`)
	assert.Contains(t, string(blob), `"record_id":"1"`)
}

func TestOutbox_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "client.db")

	store, err := boltdb.New(ctx, dbPath)
	require.NoError(t, err)

	op := models.NewOutboxOperation("note-1", models.OperationUpdate, "edited", models.Version(3))
	require.NoError(t, New(store, "alice").Enqueue(ctx, op))
	require.NoError(t, store.Close())

	store, err = boltdb.New(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close()

	ops, err := New(store, "alice").Pending(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, op, ops[0])
}

func TestOutbox_StoreErrors(t *testing.T) {
	ctx := context.Background()
	errDisk := errors.New("disk failure")

	tests := []struct {
		name  string
		store *storage.BlobStoreMock
		call  func(o *Outbox) error
	}{
		{
			name: "load failure on pending",
			store: &storage.BlobStoreMock{
				LoadFunc: func(ctx context.Context, key string) ([]byte, error) { return nil, errDisk },
			},
			call: func(o *Outbox) error {
				_, err := o.Pending(ctx)
				return err
			},
		},
		{
			name: "save failure on enqueue",
			store: &storage.BlobStoreMock{
				LoadFunc: func(ctx context.Context, key string) ([]byte, error) { return nil, storage.ErrBlobNotFound },
				SaveFunc: func(ctx context.Context, key string, blob []byte) error { return errDisk },
			},
			call: func(o *Outbox) error {
				return o.Enqueue(ctx, models.NewOutboxOperation("1", models.OperationCreate, "", nil))
			},
		},
		{
			name: "save failure on replace",
			store: &storage.BlobStoreMock{
				SaveFunc: func(ctx context.Context, key string, blob []byte) error { return errDisk },
			},
			call: func(o *Outbox) error {
				return o.Replace(ctx, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(New(tt.store, "alice"))
			assert.ErrorIs(t, err, errDisk)
		})
	}
}

func TestOutbox_CorruptBlob(t *testing.T) {
	store := &storage.BlobStoreMock{
		LoadFunc: func(ctx context.Context, key string) ([]byte, error) {
			assert.Equal(t, "outbox_alice", key)
			return []byte("{not json"), nil
		},
	}

	_, err := New(store, "alice").Pending(context.Background())
	assert.Error(t, err)
	assert.Len(t, store.LoadCalls(), 1)
}
