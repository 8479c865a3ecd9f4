package models

import (
	"fmt"

	"github.com/google/uuid"
)

// OperationKind тип операции в outbox
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationDelete OperationKind = "delete"
)

// Validate returns an error for kinds outside create/update/delete.
func (k OperationKind) Validate() error {
	switch k {
	case OperationCreate, OperationUpdate, OperationDelete:
		return nil
	default:
		return fmt.Errorf("unknown operation kind %q", string(k))
	}
}

// OutboxOperation локальная операция, ещё не подтверждённая сервером.
// BaseRevisionVersion версия на сервере, которую клиент считал актуальной
// в момент постановки в очередь (nil для create).
type OutboxOperation struct {
	BaseRevisionVersion *int64        `json:"base_revision_version"`
	ID                  string        `json:"id"`
	RecordID            string        `json:"record_id"`
	Kind                OperationKind `json:"kind"`
	Payload             string        `json:"payload"`
}

// NewOutboxOperation creates an operation with a fresh id.
func NewOutboxOperation(recordID string, kind OperationKind, payload string, base *int64) OutboxOperation {
	return OutboxOperation{
		ID:                  uuid.New().String(),
		RecordID:            recordID,
		Kind:                kind,
		Payload:             payload,
		BaseRevisionVersion: base,
	}
}

// Version returns a pointer to v, for BaseRevisionVersion literals.
func Version(v int64) *int64 {
	return &v
}
