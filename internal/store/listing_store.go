package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/propertydesk/internal/domain"
)

// ListingStore keeps listing documents in the properties table. Unit options
// and image URLs are stored as JSON arrays so a row maps onto one document.
type ListingStore struct {
	db *sql.DB
}

func NewListingStore(db *sql.DB) *ListingStore {
	return &ListingStore{db: db}
}

const listingColumns = `id, title, location, property_type, price, area, description,
	bhk, bhk_options, images, created_at, updated_at`

// Insert stores l under a freshly generated ID and returns that ID.
func (s *ListingStore) Insert(ctx context.Context, l *domain.Listing) (string, error) {
	opts, images, err := encodeListingJSON(l)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO properties (`+listingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, l.Title, string(l.Location), string(l.PropertyType), l.Price, l.Area, l.Description,
		l.BHKSummary, opts, images, l.CreatedAt.UnixNano(), l.UpdatedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to insert listing: %w", err)
	}
	return id, nil
}

func (s *ListingStore) Get(ctx context.Context, id string) (*domain.Listing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM properties WHERE id = ?`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// List returns listings newest first. A limit of zero or less returns all.
func (s *ListingStore) List(ctx context.Context, limit int) ([]*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM properties ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	listings := []*domain.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}
	return listings, nil
}

// Replace overwrites every field of the listing with l.ID except created_at.
func (s *ListingStore) Replace(ctx context.Context, l *domain.Listing) error {
	opts, images, err := encodeListingJSON(l)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE properties SET title = ?, location = ?, property_type = ?, price = ?, area = ?,
			description = ?, bhk = ?, bhk_options = ?, images = ?, updated_at = ?
		WHERE id = ?
	`, l.Title, string(l.Location), string(l.PropertyType), l.Price, l.Area,
		l.Description, l.BHKSummary, opts, images, l.UpdatedAt.UnixNano(), l.ID)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return requireRow(result, domain.ErrListingNotFound)
}

func (s *ListingStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return requireRow(result, domain.ErrListingNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var (
		l                    domain.Listing
		location, propType   string
		opts, images         string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&l.ID, &l.Title, &location, &propType, &l.Price, &l.Area, &l.Description,
		&l.BHKSummary, &opts, &images, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	l.Location = domain.Location(location)
	l.PropertyType = domain.PropertyType(propType)
	l.CreatedAt = time.Unix(0, createdAt).UTC()
	l.UpdatedAt = time.Unix(0, updatedAt).UTC()

	if err := json.Unmarshal([]byte(opts), &l.UnitOptions); err != nil {
		return nil, fmt.Errorf("failed to decode unit options of %s: %w", l.ID, err)
	}
	if err := json.Unmarshal([]byte(images), &l.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images of %s: %w", l.ID, err)
	}
	return &l, nil
}

func encodeListingJSON(l *domain.Listing) (string, string, error) {
	opts := l.UnitOptions
	if opts == nil {
		opts = []domain.UnitOption{}
	}
	images := l.Images
	if images == nil {
		images = []string{}
	}
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode unit options: %w", err)
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode images: %w", err)
	}
	return string(optsJSON), string(imagesJSON), nil
}

func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
