package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/propertydesk/internal/domain"
)

type AdminStore struct {
	db *sql.DB
}

func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) Create(ctx context.Context, email, passwordHash string) (*domain.AdminUser, error) {
	u := &domain.AdminUser{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, password_hash, disabled, created_at) VALUES (?, ?, ?, 0, ?)
	`, u.ID, u.Email, u.PasswordHash, u.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return u, nil
}

// GetByEmail looks the admin up case-insensitively. It returns nil, nil when
// no admin has that email.
func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	var (
		u         domain.AdminUser
		disabled  int
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, disabled, created_at FROM admins WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &disabled, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	u.Disabled = disabled != 0
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	return &u, nil
}

func (s *AdminStore) SetDisabled(ctx context.Context, id string, disabled bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE admins SET disabled = ? WHERE id = ?`, disabled, id)
	if err != nil {
		return fmt.Errorf("failed to update admin: %w", err)
	}
	return requireRow(result, domain.ErrAdminNotFound)
}
