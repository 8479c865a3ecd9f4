// Package outbox keeps a user's unacknowledged local operations in FIFO order
// on top of a keyed blob store.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/notesync/internal/client/storage"
	"github.com/iudanet/notesync/internal/models"
)

const keyPrefix = "outbox_"

// Outbox persistent FIFO очередь операций одного пользователя
type Outbox struct {
	store  storage.BlobStore
	userID string
	mu     sync.Mutex
}

// New creates an outbox for userID persisted in store
func New(store storage.BlobStore, userID string) *Outbox {
	return &Outbox{store: store, userID: userID}
}

// Key returns the blob key the outbox of userID is stored under
func Key(userID string) string {
	return keyPrefix + userID
}

// Enqueue appends op to the end of the queue. An op without ID gets a fresh uuid.
func (o *Outbox) Enqueue(ctx context.Context, op models.OutboxOperation) error {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	ops, err := o.load(ctx)
	if err != nil {
		return err
	}

	return o.save(ctx, append(ops, op))
}

// Pending returns a snapshot of the queue in enqueue order
func (o *Outbox) Pending(ctx context.Context) ([]models.OutboxOperation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.load(ctx)
}

// Replace installs ops as the whole queue in a single write
func (o *Outbox) Replace(ctx context.Context, ops []models.OutboxOperation) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.save(ctx, ops)
}

func (o *Outbox) load(ctx context.Context) ([]models.OutboxOperation, error) {
	ops := []models.OutboxOperation{}

	blob, err := o.store.Load(ctx, Key(o.userID))
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return ops, nil
		}
		return nil, fmt.Errorf("failed to load outbox: %w", err)
	}

	if err := json.Unmarshal(blob, &ops); err != nil {
		return nil, fmt.Errorf("failed to decode outbox: %w", err)
	}

	return ops, nil
}

func (o *Outbox) save(ctx context.Context, ops []models.OutboxOperation) error {
	if ops == nil {
		ops = []models.OutboxOperation{}
	}

	blob, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("failed to encode outbox: %w", err)
	}

	if err := o.store.Save(ctx, Key(o.userID), blob); err != nil {
		return fmt.Errorf("failed to save outbox: %w", err)
	}

	return nil
}
