package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/server/storage"
	"github.com/iudanet/notesync/internal/server/storage/storagetest"
)

func setupTestStorage(t *testing.T, opts ...Opt) *Storage {
	t.Helper()

	// Используем in-memory database для тестов
	s, err := New(context.Background(), ":memory:", opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func TestStorage_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, clock clockwork.Clock) storage.Store {
		return setupTestStorage(t, WithClock(clock))
	})
}

func TestNew_RunsMigrations(t *testing.T) {
	s := setupTestStorage(t)

	for _, table := range []string{"records", "changes"} {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	assert.NoError(t, s.Ping(context.Background()))
}

func TestStorage_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "server.db")

	s, err := New(ctx, dbPath)
	require.NoError(t, err)

	_, err = s.Apply(ctx, "alice", models.NewOutboxOperation("note-1", models.OperationCreate, "v1", nil))
	require.NoError(t, err)
	_, err = s.Apply(ctx, "alice", models.NewOutboxOperation("note-1", models.OperationUpdate, "v2", models.Version(1)))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Миграции идемпотентны при повторном открытии
	s, err = New(ctx, dbPath)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Record(ctx, "alice", "note-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Payload)
	assert.Equal(t, int64(2), got.Revision.Version)

	record, err := s.Apply(ctx, "alice", models.NewOutboxOperation("note-2", models.OperationCreate, "other", nil))
	require.NoError(t, err)
	assert.Equal(t, int64(1), record.Revision.Version)

	pull, err := s.Pull(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, pull.Changes, 3)
	assert.Equal(t, int64(3), pull.NewToken)
}

func TestStorage_RejectedApplyRollsBack(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	_, err := s.Apply(ctx, "alice", models.NewOutboxOperation("note-1", models.OperationUpdate, "x", models.Version(1)))
	require.ErrorIs(t, err, models.ErrOccConflict)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM changes`).Scan(&count))
	assert.Equal(t, 0, count)
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestStorage_PullTokenMatchesChangesUnderConcurrentApply(t *testing.T) {
	s := setupTestStorage(t)
	const userID = "alice"
	const rounds = 200

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		for i := range rounds {
			op := models.NewOutboxOperation(fmt.Sprintf("note-%d", i), models.OperationCreate, "text", nil)
			if _, err := s.Apply(ctx, userID, op); err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		for range rounds {
			result, err := s.Pull(ctx, userID, 0)
			if err != nil {
				return err
			}

			// Watermark не может обогнать последнее отданное изменение
			var last int64
			if n := len(result.Changes); n > 0 {
				last = result.Changes[n-1].Token
			}
			if result.NewToken != last {
				return fmt.Errorf("new token %d exceeds last returned change %d", result.NewToken, last)
			}
		}
		return nil
	})

	require.NoError(t, g.Wait())

	result, err := s.Pull(context.Background(), userID, 0)
	require.NoError(t, err)
	assert.Len(t, result.Changes, rounds)
	assert.Equal(t, int64(rounds), result.NewToken)
}
