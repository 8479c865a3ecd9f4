package handlers

import (
	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/pkg/api"
)

// toWireRecord converts a model record to its wire form
func toWireRecord(r models.SyncRecord) api.Record {
	return api.Record{
		ID:      r.ID,
		Payload: r.Payload,
		Deleted: r.Deleted,
		Revision: api.Revision{
			Version:   r.Revision.Version,
			Author:    r.Revision.Author,
			Timestamp: r.Revision.Timestamp,
		},
	}
}

// operationFromRequest converts the request to an outbox operation. The kind is validated by the store.
func operationFromRequest(req api.OperationRequest) models.OutboxOperation {
	return models.OutboxOperation{
		ID:                  req.ID,
		RecordID:            req.RecordID,
		Kind:                models.OperationKind(req.Kind),
		Payload:             req.Payload,
		BaseRevisionVersion: req.BaseRevisionVersion,
	}
}
