package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/vbonduro/propertydesk/internal/domain"
)

type EnquiryStore struct {
	db *sql.DB
}

func NewEnquiryStore(db *sql.DB) *EnquiryStore {
	return &EnquiryStore{db: db}
}

// Create assigns e an ID and stores it.
func (s *EnquiryStore) Create(ctx context.Context, e *domain.Enquiry) error {
	e.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enquiries (id, name, phone, email, interest, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Name, e.Phone, e.Email, e.Interest, e.Message, e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create enquiry: %w", err)
	}
	return nil
}

func (s *EnquiryStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM enquiries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count enquiries: %w", err)
	}
	return n, nil
}
