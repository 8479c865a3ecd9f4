package server

import (
	"context"
	"errors"

	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/server/storage"
	"github.com/iudanet/notesync/internal/telemetry"
)

// observedStore records apply outcomes as telemetry events
type observedStore struct {
	storage.Store
	sink telemetry.Sink
}

// Observe wraps store so that accepted and OCC-rejected operations are recorded on sink
func Observe(store storage.Store, sink telemetry.Sink) storage.Store {
	return &observedStore{Store: store, sink: sink}
}

func (s *observedStore) Apply(ctx context.Context, userID string, op models.OutboxOperation) (*models.SyncRecord, error) {
	record, err := s.Store.Apply(ctx, userID, op)

	props := map[string]string{"user_id": userID, "id": op.RecordID, "kind": string(op.Kind)}
	switch {
	case err == nil:
		s.sink.Record(telemetry.EventOperationApplied, props)
	case errors.Is(err, models.ErrOccConflict):
		s.sink.Record(telemetry.EventPushRejected, props)
	}

	return record, err
}
