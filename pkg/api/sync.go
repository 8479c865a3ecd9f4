package api

import "time"

// Revision версия записи на проводе
type Revision struct {
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Version   int64     `json:"version"`
}

// Record представляет запись на проводе
type Record struct {
	ID       string   `json:"id"`
	Payload  string   `json:"payload"`
	Revision Revision `json:"revision"`
	Deleted  bool     `json:"deleted,omitempty"`
}

// OperationRequest одна операция outbox, отправляемая на сервер.
// BaseRevisionVersion сериализуется как null для create.
type OperationRequest struct {
	BaseRevisionVersion *int64 `json:"base_revision_version"`
	ID                  string `json:"id"`
	RecordID            string `json:"record_id"`
	Kind                string `json:"kind"`
	Payload             string `json:"payload"`
}

// Change одна позиция журнала изменений
type Change struct {
	Record Record `json:"record"`
	Token  int64  `json:"token"`
}

// PullResponse ответ на запрос изменений
type PullResponse struct {
	Changes  []Change `json:"changes"`
	NewToken int64    `json:"new_token"`
}
