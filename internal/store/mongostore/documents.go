package mongostore

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vbonduro/propertydesk/internal/domain"
)

type unitOptionDocument struct {
	Type  string `bson:"type"`
	Price string `bson:"price"`
}

type listingDocument struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Title        string               `bson:"title"`
	Price        string               `bson:"price"`
	Location     string               `bson:"location"`
	PropertyType string               `bson:"propertyType"`
	BHK          string               `bson:"bhk"`
	BHKOptions   []unitOptionDocument `bson:"bhkOptions"`
	Area         string               `bson:"area"`
	Description  string               `bson:"description"`
	Images       []string             `bson:"images"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

type adminDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Disabled     bool      `bson:"disabled"`
	CreatedAt    time.Time `bson:"createdAt"`
}

type orphanDocument struct {
	URL        string    `bson:"_id"`
	Reason     string    `bson:"reason"`
	RecordedAt time.Time `bson:"recordedAt"`
}

type enquiryDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Phone     string    `bson:"phone"`
	Email     string    `bson:"email"`
	Interest  string    `bson:"interest"`
	Message   string    `bson:"message"`
	CreatedAt time.Time `bson:"createdAt"`
}

// toListingDocument leaves the ObjectID unset when l has no ID so the caller
// can assign one on insert.
func toListingDocument(l *domain.Listing) (*listingDocument, error) {
	var id primitive.ObjectID
	if l.ID != "" {
		var err error
		id, err = primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid listing id %q: %w", l.ID, err)
		}
	}

	opts := make([]unitOptionDocument, 0, len(l.UnitOptions))
	for _, o := range l.UnitOptions {
		opts = append(opts, unitOptionDocument{Type: string(o.Type), Price: o.Price})
	}
	images := l.Images
	if images == nil {
		images = []string{}
	}

	return &listingDocument{
		ID:           id,
		Title:        l.Title,
		Price:        l.Price,
		Location:     string(l.Location),
		PropertyType: string(l.PropertyType),
		BHK:          l.BHKSummary,
		BHKOptions:   opts,
		Area:         l.Area,
		Description:  l.Description,
		Images:       images,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}, nil
}

func toDomainListing(d *listingDocument) *domain.Listing {
	opts := make([]domain.UnitOption, 0, len(d.BHKOptions))
	for _, o := range d.BHKOptions {
		opts = append(opts, domain.UnitOption{Type: domain.UnitType(o.Type), Price: o.Price})
	}
	images := d.Images
	if images == nil {
		images = []string{}
	}
	bhk := d.BHK
	if bhk == "" {
		bhk = domain.BHKSummary(opts)
	}

	return &domain.Listing{
		ID:           d.ID.Hex(),
		Title:        d.Title,
		Location:     domain.Location(d.Location),
		PropertyType: domain.PropertyType(d.PropertyType),
		Price:        d.Price,
		Area:         d.Area,
		Description:  d.Description,
		BHKSummary:   bhk,
		UnitOptions:  opts,
		Images:       images,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func toDomainAdmin(d *adminDocument) *domain.AdminUser {
	return &domain.AdminUser{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Disabled:     d.Disabled,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
