package listing

import (
	"context"

	"github.com/vbonduro/propertydesk/internal/domain"
)

// DocumentStore is the properties collection. Get returns nil, nil for an
// unknown id; Replace and Delete return domain.ErrListingNotFound.
type DocumentStore interface {
	Insert(ctx context.Context, l *domain.Listing) (string, error)
	Get(ctx context.Context, id string) (*domain.Listing, error)
	List(ctx context.Context, limit int) ([]*domain.Listing, error)
	Replace(ctx context.Context, l *domain.Listing) error
	Delete(ctx context.Context, id string) error
}

// OrphanStore remembers blob URLs no listing references any more.
type OrphanStore interface {
	Record(ctx context.Context, url, reason string) error
	List(ctx context.Context, limit int) ([]domain.OrphanedBlob, error)
	Delete(ctx context.Context, url string) error
}

type ChangeKind string

const (
	Created ChangeKind = "created"
	Updated ChangeKind = "updated"
	Deleted ChangeKind = "deleted"
)

// Change describes a successful write. Listing is nil for Deleted.
type Change struct {
	Kind    ChangeKind
	ID      string
	Listing *domain.Listing
}

// Notifier is told about every successful write.
type Notifier interface {
	Notify(ctx context.Context, c Change) error
}
