package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vbonduro/propertydesk/internal/domain"
)

// AdminStore stores emails lower-cased so lookups are case-insensitive.
type AdminStore struct {
	collection *mongo.Collection
}

func NewAdminStore(db *mongo.Database) *AdminStore {
	return &AdminStore{collection: db.Collection(adminsCollection)}
}

func (s *AdminStore) Create(ctx context.Context, email, passwordHash string) (*domain.AdminUser, error) {
	doc := &adminDocument{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return toDomainAdmin(doc), nil
}

func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	var doc adminDocument
	err := s.collection.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return toDomainAdmin(&doc), nil
}

func (s *AdminStore) SetDisabled(ctx context.Context, id string, disabled bool) error {
	result, err := s.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{"disabled": disabled}})
	if err != nil {
		return fmt.Errorf("failed to update admin: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrAdminNotFound
	}
	return nil
}
