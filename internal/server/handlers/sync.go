package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/server/storage"
	"github.com/iudanet/notesync/pkg/api"
)

// maxOperationBody ограничение размера тела операции
const maxOperationBody = 4 << 20

// SyncHandler handles synchronization requests
type SyncHandler struct {
	logger *slog.Logger
	store  storage.Store
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, store storage.Store) *SyncHandler {
	return &SyncHandler{
		logger: logger,
		store:  store,
	}
}

// ApplyOperation обрабатывает POST /api/v1/sync/operations
func (h *SyncHandler) ApplyOperation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req api.OperationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOperationBody)).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode operation", "error", err)
		WriteError(h.logger, w, http.StatusBadRequest, api.ErrCodeInvalid, "invalid request body")
		return
	}

	op := operationFromRequest(req)
	record, err := h.store.Apply(r.Context(), userID, op)
	if err != nil {
		h.writeStoreError(w, err, "record_id", op.RecordID, "kind", op.Kind)
		return
	}

	h.logger.Info("Operation applied",
		"user_id", userID,
		"record_id", record.ID,
		"kind", op.Kind,
		"version", record.Revision.Version)

	writeJSON(h.logger, w, http.StatusOK, toWireRecord(*record))
}

// Changes обрабатывает GET /api/v1/sync/changes?since=token
func (h *SyncHandler) Changes(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var since int64
	if s := r.URL.Query().Get("since"); s != "" {
		var err error
		since, err = strconv.ParseInt(s, 10, 64)
		if err != nil || since < 0 {
			h.logger.Warn("Invalid since parameter", "since", s)
			WriteError(h.logger, w, http.StatusBadRequest, api.ErrCodeInvalid, "invalid since parameter")
			return
		}
	}

	result, err := h.store.Pull(r.Context(), userID, since)
	if err != nil {
		h.writeStoreError(w, err, "since", since)
		return
	}

	resp := api.PullResponse{
		Changes:  make([]api.Change, 0, len(result.Changes)),
		NewToken: result.NewToken,
	}
	for _, change := range result.Changes {
		resp.Changes = append(resp.Changes, api.Change{
			Token:  change.Token,
			Record: toWireRecord(change.Record),
		})
	}

	h.logger.Debug("Changes pulled", "user_id", userID, "since", since, "count", len(resp.Changes))

	writeJSON(h.logger, w, http.StatusOK, resp)
}

// Record обрабатывает GET /api/v1/records/{id}
func (h *SyncHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	record, err := h.store.Record(r.Context(), userID, id)
	if err != nil {
		h.writeStoreError(w, err, "record_id", id)
		return
	}

	writeJSON(h.logger, w, http.StatusOK, toWireRecord(*record))
}

func (h *SyncHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	// user_id устанавливается middleware аутентификации
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		WriteError(h.logger, w, http.StatusUnauthorized, api.ErrCodeUnauthorized, "")
	}
	return userID, ok
}

// writeStoreError сопоставляет ошибки хранилища со статусами HTTP
func (h *SyncHandler) writeStoreError(w http.ResponseWriter, err error, attrs ...any) {
	switch {
	case errors.Is(err, models.ErrOccConflict):
		h.logger.Info("Operation rejected", append(attrs, "error", err)...)
		WriteError(h.logger, w, http.StatusConflict, api.ErrCodeOccConflict, err.Error())
	case errors.Is(err, storage.ErrInvalidOperation):
		h.logger.Warn("Invalid operation", append(attrs, "error", err)...)
		WriteError(h.logger, w, http.StatusBadRequest, api.ErrCodeInvalid, err.Error())
	case errors.Is(err, storage.ErrRecordNotFound):
		WriteError(h.logger, w, http.StatusNotFound, api.ErrCodeNotFound, "record not found")
	default:
		h.logger.Error("Store failure", append(attrs, "error", err)...)
		WriteError(h.logger, w, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error")
	}
}
