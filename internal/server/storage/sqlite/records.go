package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/server/storage"
)

// Apply validates op against the stored record and, if accepted, writes the
// new revision and its change log entry in one transaction.
func (s *Storage) Apply(ctx context.Context, userID string, op models.OutboxOperation) (record *models.SyncRecord, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Хранимая строка может быть tombstone: её версия продолжает последовательность
	stored, err := getRecord(ctx, tx, userID, op.RecordID)
	if err != nil && !errors.Is(err, storage.ErrRecordNotFound) {
		return nil, err
	}

	var current *models.SyncRecord
	var lastVersion int64
	if stored != nil {
		lastVersion = stored.Revision.Version
		if !stored.Deleted {
			current = stored
		}
	}

	next, err := storage.Decide(op, current, lastVersion, s.clock.Now())
	if err != nil {
		return nil, err
	}

	upsert := `
		INSERT INTO records (user_id, id, payload, version, author, updated_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			payload = excluded.payload,
			version = excluded.version,
			author = excluded.author,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted
	`
	if _, err = tx.ExecContext(ctx, upsert,
		userID,
		next.ID,
		next.Payload,
		next.Revision.Version,
		next.Revision.Author,
		next.Revision.Timestamp.UnixNano(),
		boolToInt(next.Deleted),
	); err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}

	var token int64
	if err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(token), 0) + 1 FROM changes WHERE user_id = ?`, userID,
	).Scan(&token); err != nil {
		return nil, fmt.Errorf("failed to allocate token: %w", err)
	}

	insertChange := `
		INSERT INTO changes (user_id, token, record_id, payload, version, author, created_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err = tx.ExecContext(ctx, insertChange,
		userID,
		token,
		next.ID,
		next.Payload,
		next.Revision.Version,
		next.Revision.Author,
		next.Revision.Timestamp.UnixNano(),
		boolToInt(next.Deleted),
	); err != nil {
		return nil, fmt.Errorf("failed to append change: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return &next, nil
}

// Pull returns the user's changes after sinceToken in token order.
// Both reads share one transaction so NewToken never passes the last returned change.
func (s *Storage) Pull(ctx context.Context, userID string, sinceToken int64) (result *storage.PullResult, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Транзакция только читает
		_ = tx.Rollback()
	}()

	changes, err := queryChanges(ctx, tx, userID, sinceToken)
	if err != nil {
		return nil, err
	}

	// newToken не зависит от sinceToken
	var newToken int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(token), 0) FROM changes WHERE user_id = ?`, userID,
	).Scan(&newToken); err != nil {
		return nil, fmt.Errorf("failed to read latest token: %w", err)
	}

	return &storage.PullResult{Changes: changes, NewToken: newToken}, nil
}

func queryChanges(ctx context.Context, tx *sql.Tx, userID string, sinceToken int64) (changes []models.ServerChange, err error) {
	query := `
		SELECT token, record_id, payload, version, author, created_at, deleted
		FROM changes
		WHERE user_id = ? AND token > ?
		ORDER BY token ASC
	`

	rows, err := tx.QueryContext(ctx, query, userID, sinceToken)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	changes = []models.ServerChange{}
	for rows.Next() {
		var change models.ServerChange
		var createdAt int64
		var deleted int

		if err := rows.Scan(
			&change.Token,
			&change.Record.ID,
			&change.Record.Payload,
			&change.Record.Revision.Version,
			&change.Record.Revision.Author,
			&createdAt,
			&deleted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}

		change.Record.Revision.Timestamp = unixNanoToTime(createdAt)
		change.Record.Deleted = intToBool(deleted)
		changes = append(changes, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return changes, nil
}

// Record returns the live record
// Returns ErrRecordNotFound if record doesn't exist or is deleted
func (s *Storage) Record(ctx context.Context, userID, id string) (*models.SyncRecord, error) {
	record, err := getRecord(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}

	if record.Deleted {
		return nil, storage.ErrRecordNotFound
	}

	return record, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getRecord reads the stored row including tombstones
func getRecord(ctx context.Context, q queryer, userID, id string) (*models.SyncRecord, error) {
	query := `
		SELECT id, payload, version, author, updated_at, deleted
		FROM records
		WHERE user_id = ? AND id = ?
	`

	record := &models.SyncRecord{}
	var updatedAt int64
	var deleted int

	err := q.QueryRowContext(ctx, query, userID, id).Scan(
		&record.ID,
		&record.Payload,
		&record.Revision.Version,
		&record.Revision.Author,
		&updatedAt,
		&deleted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	record.Revision.Timestamp = unixNanoToTime(updatedAt)
	record.Deleted = intToBool(deleted)

	return record, nil
}

// Helper functions for bool/int conversion
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

func unixNanoToTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
