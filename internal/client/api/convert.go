package api

import (
	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/pkg/api"
)

// toRequest converts an outbox operation to the request body
func toRequest(op models.OutboxOperation) api.OperationRequest {
	return api.OperationRequest{
		ID:                  op.ID,
		RecordID:            op.RecordID,
		Kind:                string(op.Kind),
		Payload:             op.Payload,
		BaseRevisionVersion: op.BaseRevisionVersion,
	}
}

// fromWire converts a wire record to the model
func fromWire(r api.Record) models.SyncRecord {
	return models.SyncRecord{
		ID:      r.ID,
		Payload: r.Payload,
		Deleted: r.Deleted,
		Revision: models.Revision{
			Version:   r.Revision.Version,
			Author:    r.Revision.Author,
			Timestamp: r.Revision.Timestamp,
		},
	}
}
