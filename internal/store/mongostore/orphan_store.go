package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vbonduro/propertydesk/internal/domain"
)

type OrphanStore struct {
	collection *mongo.Collection
}

func NewOrphanStore(db *mongo.Database) *OrphanStore {
	return &OrphanStore{collection: db.Collection(orphansCollection)}
}

func (s *OrphanStore) Record(ctx context.Context, url, reason string) error {
	_, err := s.collection.UpdateByID(ctx, url, bson.M{
		"$set":         bson.M{"reason": reason},
		"$setOnInsert": bson.M{"recordedAt": time.Now().UTC()},
	}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to record orphaned blob: %w", err)
	}
	return nil
}

func (s *OrphanStore) List(ctx context.Context, limit int) ([]domain.OrphanedBlob, error) {
	opts := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: 1}}).SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned blobs: %w", err)
	}
	var docs []orphanDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orphaned blobs: %w", err)
	}

	orphans := make([]domain.OrphanedBlob, 0, len(docs))
	for _, d := range docs {
		orphans = append(orphans, domain.OrphanedBlob{URL: d.URL, Reason: d.Reason, RecordedAt: d.RecordedAt.UTC()})
	}
	return orphans, nil
}

func (s *OrphanStore) Delete(ctx context.Context, url string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": url}); err != nil {
		return fmt.Errorf("failed to delete orphaned blob record: %w", err)
	}
	return nil
}
