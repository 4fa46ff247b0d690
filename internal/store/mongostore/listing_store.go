package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vbonduro/propertydesk/internal/domain"
)

type ListingStore struct {
	collection *mongo.Collection
}

func NewListingStore(db *mongo.Database) *ListingStore {
	return &ListingStore{collection: db.Collection(listingsCollection)}
}

func (s *ListingStore) Insert(ctx context.Context, l *domain.Listing) (string, error) {
	doc, err := toListingDocument(l)
	if err != nil {
		return "", err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert listing: %w", err)
	}
	return doc.ID.Hex(), nil
}

// Get returns nil, nil when no document has id, including ids that are not
// valid ObjectIDs.
func (s *ListingStore) Get(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc listingDocument
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return toDomainListing(&doc), nil
}

// List returns listings newest first. A limit of zero or less returns all.
func (s *ListingStore) List(ctx context.Context, limit int) ([]*domain.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}

	listings := make([]*domain.Listing, 0, len(docs))
	for i := range docs {
		listings = append(listings, toDomainListing(&docs[i]))
	}
	return listings, nil
}

// Replace overwrites every field of the document with l.ID except createdAt.
func (s *ListingStore) Replace(ctx context.Context, l *domain.Listing) error {
	doc, err := toListingDocument(l)
	if err != nil {
		return domain.ErrListingNotFound
	}

	result, err := s.collection.UpdateByID(ctx, doc.ID, bson.M{"$set": bson.M{
		"title":        doc.Title,
		"price":        doc.Price,
		"location":     doc.Location,
		"propertyType": doc.PropertyType,
		"bhk":          doc.BHK,
		"bhkOptions":   doc.BHKOptions,
		"area":         doc.Area,
		"description":  doc.Description,
		"images":       doc.Images,
		"updatedAt":    doc.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (s *ListingStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrListingNotFound
	}
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}
