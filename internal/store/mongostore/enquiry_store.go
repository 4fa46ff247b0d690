package mongostore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vbonduro/propertydesk/internal/domain"
)

type EnquiryStore struct {
	collection *mongo.Collection
}

func NewEnquiryStore(db *mongo.Database) *EnquiryStore {
	return &EnquiryStore{collection: db.Collection(enquiryCollection)}
}

func (s *EnquiryStore) Create(ctx context.Context, e *domain.Enquiry) error {
	e.ID = uuid.NewString()
	_, err := s.collection.InsertOne(ctx, &enquiryDocument{
		ID:        e.ID,
		Name:      e.Name,
		Phone:     e.Phone,
		Email:     e.Email,
		Interest:  e.Interest,
		Message:   e.Message,
		CreatedAt: e.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to create enquiry: %w", err)
	}
	return nil
}

func (s *EnquiryStore) Count(ctx context.Context) (int, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count enquiries: %w", err)
	}
	return int(n), nil
}
