package models

import (
	"fmt"
	"strings"
	"time"
)

// ServerAuthor автор ревизий, записанных authoritative store
const ServerAuthor = "server"

// conflictMarker разделитель в id conflict copy
const conflictMarker = "-conflict-"

// Revision описывает одну версию записи.
// Для фиксированной пары (user, record id) версии растут строго на 1,
// начиная с 1, и никогда не переиспользуются (в том числе при rollback).
type Revision struct {
	Timestamp time.Time `json:"timestamp"` // Timestamp время создания ревизии
	Author    string    `json:"author"`    // Author идентификатор автора изменения
	Version   int64     `json:"version"`   // Version монотонно растущая версия (>= 1)
}

// SyncRecord представляет синхронизируемую запись (заметку).
// Существует в двух независимых копиях: локальной и серверной.
type SyncRecord struct {
	ID       string   `json:"id"`
	Payload  string   `json:"payload"`
	Revision Revision `json:"revision"`
	// Deleted помечает tombstone в журнале изменений сервера (payload пустой)
	Deleted bool `json:"deleted,omitempty"`
}

// HistoryEntry снимок значения, сделанный непосредственно перед тем,
// как мутация его заменила. Используется для rollback и аудита.
type HistoryEntry struct {
	RecordID        string   `json:"record_id"`
	PreviousPayload string   `json:"previous_payload"`
	Revision        Revision `json:"revision"`
}

// ServerChange одна позиция в per-user append-only журнале изменений.
// Token уникален в пределах пользователя и строго возрастает.
type ServerChange struct {
	Record SyncRecord `json:"record"`
	Token  int64      `json:"token"`
}

// NewRecord creates a record at version 1.
func NewRecord(id, payload, author string, now time.Time) SyncRecord {
	return SyncRecord{
		ID:      id,
		Payload: payload,
		Revision: Revision{
			Version:   1,
			Author:    author,
			Timestamp: now,
		},
	}
}

// Tombstone returns the deletion marker that supersedes r.
func (r SyncRecord) Tombstone(author string, now time.Time) SyncRecord {
	return SyncRecord{
		ID:      r.ID,
		Deleted: true,
		Revision: Revision{
			Version:   r.Revision.Version + 1,
			Author:    author,
			Timestamp: now,
		},
	}
}

// ConflictCopyID builds the id of a conflict copy for the record originalID.
func ConflictCopyID(originalID string, now time.Time) string {
	return fmt.Sprintf("%s%s%d", originalID, conflictMarker, now.Unix())
}

// ConflictOrigin returns the id of the record a conflict copy was derived from.
// ok is false when id is not a conflict copy id.
func ConflictOrigin(id string) (string, bool) {
	i := strings.LastIndex(id, conflictMarker)
	if i <= 0 {
		return "", false
	}
	return id[:i], true
}
