package sync

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/notesync/internal/client/outbox"
	"github.com/iudanet/notesync/internal/client/storage/memory"
	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/server/storage"
	servermemory "github.com/iudanet/notesync/internal/server/storage/memory"
)

const userID = "alice"

type recordingSink struct {
	events []string
}

func (r *recordingSink) Record(name string, _ map[string]string) {
	r.events = append(r.events, name)
}

func (r *recordingSink) count(name string) int {
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

func newTestService(store storage.Store, sink *recordingSink) (Service, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewService(store, WithLogger(logger), WithClock(clock), WithTelemetry(sink)), clock
}

func newOutbox(t *testing.T, ops ...models.OutboxOperation) *outbox.Outbox {
	t.Helper()
	o := outbox.New(memory.NewBlobStore(), userID)
	for _, op := range ops {
		require.NoError(t, o.Enqueue(context.Background(), op))
	}
	return o
}

func pending(t *testing.T, o *outbox.Outbox) []models.OutboxOperation {
	t.Helper()
	ops, err := o.Pending(context.Background())
	require.NoError(t, err)
	return ops
}

func TestSync_CreateAccepted(t *testing.T) {
	ctx := context.Background()
	store := servermemory.New(nil)
	sink := &recordingSink{}
	service, _ := newTestService(store, sink)

	queue := newOutbox(t, models.NewOutboxOperation("note-1", models.OperationCreate, "hello", nil))

	result, err := service.Sync(ctx, userID, map[string]models.SyncRecord{}, queue, 0)
	require.NoError(t, err)

	assert.Equal(t, "hello", result.LocalRecords["note-1"].Payload)
	assert.Empty(t, pending(t, queue))
	assert.Empty(t, result.ConflictCopies)
	assert.Equal(t, 1, result.Pushed)
	assert.Equal(t, 0, result.Rejected)
	assert.Equal(t, int64(1), result.NewSyncToken)
	assert.Len(t, result.AppliedRemoteChanges, 1)

	serverRecord, err := store.Record(ctx, userID, "note-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), serverRecord.Revision.Version)

	assert.Equal(t, 1, sink.count("sync_completed"))
}

func TestSync_StaleUpdateRejected(t *testing.T) {
	ctx := context.Background()
	store := servermemory.New(nil)
	sink := &recordingSink{}
	service, _ := newTestService(store, sink)

	remote := models.NewRecord("note-1", "remote", models.ServerAuthor, time.Now())
	remote.Revision.Version = 2
	store.Seed(userID, remote)

	local := map[string]models.SyncRecord{
		"note-1": models.NewRecord("note-1", "local", userID, time.Now()),
	}
	op := models.NewOutboxOperation("note-1", models.OperationUpdate, "local", models.Version(1))
	queue := newOutbox(t, op)

	result, err := service.Sync(ctx, userID, local, queue, 0)
	require.NoError(t, err)

	require.Len(t, result.ConflictCopies, 1)
	cc := result.ConflictCopies[0]
	assert.Equal(t, "note-1-conflict-1700000000", cc.ID)
	assert.Equal(t, "local", cc.Payload)
	assert.Equal(t, int64(1), cc.Revision.Version)
	assert.Equal(t, userID, cc.Revision.Author)

	assert.Equal(t, []models.OutboxOperation{op}, pending(t, queue))
	assert.Equal(t, "remote", result.LocalRecords["note-1"].Payload)
	assert.Equal(t, 0, result.Pushed)
	assert.Equal(t, 1, result.Rejected)

	suggestions := result.Suggestions[cc.ID]
	require.Len(t, suggestions, 3)
	assert.Equal(t, models.StrategyKeepLocal, suggestions[0].Strategy)

	// Исходный map вызывающего не изменён
	assert.Equal(t, "local", local["note-1"].Payload)

	assert.Equal(t, 1, sink.count("sync_push_rejected"))
	assert.Equal(t, 1, sink.count("sync_conflict_copy"))
}

func TestSync_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := servermemory.New(nil)
	service, _ := newTestService(store, &recordingSink{})

	queue := newOutbox(t,
		models.NewOutboxOperation("a", models.OperationCreate, "a1", nil),
		models.NewOutboxOperation("b", models.OperationCreate, "b1", nil),
	)

	first, err := service.Sync(ctx, userID, map[string]models.SyncRecord{}, queue, 0)
	require.NoError(t, err)

	second, err := service.Sync(ctx, userID, first.LocalRecords, queue, first.NewSyncToken)
	require.NoError(t, err)

	assert.Empty(t, second.ConflictCopies)
	assert.Empty(t, second.AppliedRemoteChanges)
	assert.Equal(t, first.LocalRecords, second.LocalRecords)
	assert.Equal(t, first.NewSyncToken, second.NewSyncToken)
}

func TestSync_PushThenPullOwnChanges(t *testing.T) {
	ctx := context.Background()
	store := servermemory.New(nil)
	service, _ := newTestService(store, &recordingSink{})

	_, err := store.Apply(ctx, userID, models.NewOutboxOperation("note-1", models.OperationCreate, "orig", nil))
	require.NoError(t, err)

	// Локальная правка поверх v1, сервер ещё на v1
	local := map[string]models.SyncRecord{
		"note-1": {ID: "note-1", Payload: "mine", Revision: models.Revision{Version: 2, Author: userID}},
	}
	queue := newOutbox(t, models.NewOutboxOperation("note-1", models.OperationUpdate, "mine", models.Version(1)))

	result, err := service.Sync(ctx, userID, local, queue, 0)
	require.NoError(t, err)

	// Промежуточное изменение v1 уже перекрыто нашим v2
	assert.Empty(t, result.ConflictCopies)
	assert.Equal(t, "mine", result.LocalRecords["note-1"].Payload)
	assert.Equal(t, int64(2), result.LocalRecords["note-1"].Revision.Version)
	assert.Len(t, result.AppliedRemoteChanges, 2)
}

func TestSync_RemoteUpdateOfUneditedRecord(t *testing.T) {
	ctx := context.Background()
	store := servermemory.New(nil)
	service, _ := newTestService(store, &recordingSink{})

	created, err := store.Apply(ctx, userID, models.NewOutboxOperation("note-1", models.OperationCreate, "v1", nil))
	require.NoError(t, err)
	_, err = store.Apply(ctx, userID, models.NewOutboxOperation("note-1", models.OperationUpdate, "v2", models.Version(1)))
	require.NoError(t, err)

	local := map[string]models.SyncRecord{"note-1": *created}

	result, err := service.Sync(ctx, userID, local, newOutbox(t), 1)
	require.NoError(t, err)

	// Вытесненное значение сохраняется и без локальных правок
	require.Len(t, result.ConflictCopies, 1)
	assert.Equal(t, "v1", result.ConflictCopies[0].Payload)
	assert.Equal(t, created.Revision, result.ConflictCopies[0].Revision)
	assert.Equal(t, "v2", result.LocalRecords["note-1"].Payload)

	suggestions := result.Suggestions[result.ConflictCopies[0].ID]
	require.Len(t, suggestions, 3)
	assert.Equal(t, "v2", *suggestions[1].MergedPayload)
}

func TestSync_RemoteChangesComparedOncePerRecord(t *testing.T) {
	ctx := context.Background()
	store := servermemory.New(nil)
	service, _ := newTestService(store, &recordingSink{})

	created, err := store.Apply(ctx, userID, models.NewOutboxOperation("note-1", models.OperationCreate, "v1", nil))
	require.NoError(t, err)
	for i, payload := range []string{"v2", "v3"} {
		_, err = store.Apply(ctx, userID, models.NewOutboxOperation("note-1", models.OperationUpdate, payload, models.Version(int64(i+1))))
		require.NoError(t, err)
	}

	result, err := service.Sync(ctx, userID, map[string]models.SyncRecord{"note-1": *created}, newOutbox(t), 0)
	require.NoError(t, err)

	// Промежуточные серверные версии не порождают копий
	require.Len(t, result.ConflictCopies, 1)
	assert.Equal(t, "v1", result.ConflictCopies[0].Payload)
	assert.Equal(t, "v3", result.LocalRecords["note-1"].Payload)
	assert.Len(t, result.AppliedRemoteChanges, 3)
}

func TestSync_Tombstones(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted delete removes local record", func(t *testing.T) {
		store := servermemory.New(nil)
		service, _ := newTestService(store, &recordingSink{})

		created, err := store.Apply(ctx, userID, models.NewOutboxOperation("note-1", models.OperationCreate, "v1", nil))
		require.NoError(t, err)

		queue := newOutbox(t, models.NewOutboxOperation("note-1", models.OperationDelete, "", models.Version(1)))
		result, err := service.Sync(ctx, userID, map[string]models.SyncRecord{"note-1": *created}, queue, 1)
		require.NoError(t, err)

		assert.NotContains(t, result.LocalRecords, "note-1")
		assert.Empty(t, result.ConflictCopies)
		require.Len(t, result.AppliedRemoteChanges, 1)
		assert.True(t, result.AppliedRemoteChanges[0].Deleted)
	})

	t.Run("remote delete of edited record keeps a copy", func(t *testing.T) {
		store := servermemory.New(nil)
		service, _ := newTestService(store, &recordingSink{})

		_, err := store.Apply(ctx, userID, models.NewOutboxOperation("note-1", models.OperationCreate, "v1", nil))
		require.NoError(t, err)
		_, err = store.Apply(ctx, userID, models.NewOutboxOperation("note-1", models.OperationDelete, "", models.Version(1)))
		require.NoError(t, err)

		local := map[string]models.SyncRecord{
			"note-1": {ID: "note-1", Payload: "edited", Revision: models.Revision{Version: 2, Author: userID}},
		}

		result, err := service.Sync(ctx, userID, local, newOutbox(t), 1)
		require.NoError(t, err)

		assert.NotContains(t, result.LocalRecords, "note-1")
		require.Len(t, result.ConflictCopies, 1)
		assert.Equal(t, "edited", result.ConflictCopies[0].Payload)
		assert.Equal(t, local["note-1"].Revision, result.ConflictCopies[0].Revision)
	})
}

func TestSync_TransportErrorMidPush(t *testing.T) {
	ctx := context.Background()
	errNetwork := errors.New("connection reset")

	ops := []models.OutboxOperation{
		models.NewOutboxOperation("a", models.OperationCreate, "a", nil),
		models.NewOutboxOperation("b", models.OperationUpdate, "b", models.Version(3)),
		models.NewOutboxOperation("c", models.OperationCreate, "c", nil),
		models.NewOutboxOperation("d", models.OperationCreate, "d", nil),
	}

	store := &storage.StoreMock{
		ApplyFunc: func(ctx context.Context, userID string, op models.OutboxOperation) (*models.SyncRecord, error) {
			switch op.RecordID {
			case "a":
				record := models.NewRecord("a", "a", models.ServerAuthor, time.Now())
				return &record, nil
			case "b":
				return nil, &models.ConflictError{RecordID: "b", ExpectedVersion: op.BaseRevisionVersion, CurrentVersion: 4}
			default:
				return nil, errNetwork
			}
		},
	}
	service, _ := newTestService(store, &recordingSink{})
	queue := newOutbox(t, ops...)

	result, err := service.Sync(ctx, userID, map[string]models.SyncRecord{}, queue, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errNetwork)
	assert.Nil(t, result)

	// Принятая операция удалена, отклонённая и неотправленные сохранены по порядку
	assert.Equal(t, []models.OutboxOperation{ops[1], ops[2], ops[3]}, pending(t, queue))
	assert.Len(t, store.ApplyCalls(), 3)
	assert.Empty(t, store.PullCalls())
}

func TestSync_PullError(t *testing.T) {
	errPull := errors.New("pull failed")
	store := &storage.StoreMock{
		PullFunc: func(ctx context.Context, userID string, sinceToken int64) (*storage.PullResult, error) {
			assert.Equal(t, int64(7), sinceToken)
			return nil, errPull
		},
	}
	service, _ := newTestService(store, &recordingSink{})

	_, err := service.Sync(context.Background(), userID, nil, newOutbox(t), 7)
	assert.ErrorIs(t, err, errPull)
}

func TestSync_DuplicateCopiesCollapsed(t *testing.T) {
	ctx := context.Background()
	store := servermemory.New(nil)
	service, _ := newTestService(store, &recordingSink{})

	remote := models.NewRecord("note-1", "remote", models.ServerAuthor, time.Now())
	remote.Revision.Version = 2
	store.Seed(userID, remote)

	local := map[string]models.SyncRecord{
		"note-1": models.NewRecord("note-1", "local", userID, time.Now()),
	}
	// Две отклонённые операции по одной записи с одним локальным значением
	queue := newOutbox(t,
		models.NewOutboxOperation("note-1", models.OperationUpdate, "local", models.Version(1)),
		models.NewOutboxOperation("note-1", models.OperationUpdate, "local", models.Version(1)),
	)

	result, err := service.Sync(ctx, userID, local, queue, 0)
	require.NoError(t, err)

	assert.Len(t, result.ConflictCopies, 1)
	assert.Equal(t, 2, result.Rejected)
	assert.Len(t, pending(t, queue), 2)
}

func TestSync_RejectedAfterServerWinsUsesQueuedPayload(t *testing.T) {
	ctx := context.Background()
	store := servermemory.New(nil)
	service, _ := newTestService(store, &recordingSink{})

	remote := models.NewRecord("note-1", "remote", models.ServerAuthor, time.Now())
	remote.Revision.Version = 2
	store.Seed(userID, remote)

	// Предыдущий проход уже заменил локальную запись серверной
	local := map[string]models.SyncRecord{"note-1": remote}
	queue := newOutbox(t, models.NewOutboxOperation("note-1", models.OperationUpdate, "queued", models.Version(1)))

	result, err := service.Sync(ctx, userID, local, queue, 1)
	require.NoError(t, err)

	require.Len(t, result.ConflictCopies, 1)
	assert.Equal(t, "queued", result.ConflictCopies[0].Payload)
}
