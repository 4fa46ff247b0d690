package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/propertydesk/internal/domain"
)

// OrphanStore records blob URLs that were uploaded but never referenced by a
// listing document, so they can be swept later.
type OrphanStore struct {
	db *sql.DB
}

func NewOrphanStore(db *sql.DB) *OrphanStore {
	return &OrphanStore{db: db}
}

// Record is idempotent per URL; recording the same URL again refreshes the reason.
func (s *OrphanStore) Record(ctx context.Context, url, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orphaned_blobs (url, reason, recorded_at) VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET reason = excluded.reason
	`, url, reason, time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record orphaned blob: %w", err)
	}
	return nil
}

// List returns the oldest recorded orphans first.
func (s *OrphanStore) List(ctx context.Context, limit int) ([]domain.OrphanedBlob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, reason, recorded_at FROM orphaned_blobs ORDER BY recorded_at ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned blobs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var orphans []domain.OrphanedBlob
	for rows.Next() {
		var (
			o          domain.OrphanedBlob
			recordedAt int64
		)
		if err := rows.Scan(&o.URL, &o.Reason, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan orphaned blob: %w", err)
		}
		o.RecordedAt = time.Unix(0, recordedAt).UTC()
		orphans = append(orphans, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orphaned blobs: %w", err)
	}
	return orphans, nil
}

func (s *OrphanStore) Delete(ctx context.Context, url string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM orphaned_blobs WHERE url = ?`, url); err != nil {
		return fmt.Errorf("failed to delete orphaned blob record: %w", err)
	}
	return nil
}
