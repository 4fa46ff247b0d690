package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vbonduro/propertydesk/internal/domain"
	"github.com/vbonduro/propertydesk/internal/listing"
)

const (
	catalogKey    = "propertydesk:catalog:recent"
	catalogGenKey = "propertydesk:catalog:gen"
)

// CatalogCache holds the newest-N listing queries in one Redis hash per
// generation, keyed by N. Invalidate bumps the generation, so a page read
// from the store before a write can only land in a hash nobody reads.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

func pageKey(gen int64) string {
	return catalogKey + ":" + strconv.FormatInt(gen, 10)
}

// Get returns the cached listings for n and the current generation. ok is
// false on a miss.
func (c *CatalogCache) Get(ctx context.Context, n int) ([]*domain.Listing, int64, bool, error) {
	gen, err := c.client.Get(ctx, catalogGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		gen, err = 0, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to read catalog generation: %w", err)
	}

	data, err := c.client.HGet(ctx, pageKey(gen), strconv.Itoa(n)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("failed to read catalog cache: %w", err)
	}

	var listings []*domain.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, gen, false, fmt.Errorf("failed to decode catalog cache: %w", err)
	}
	return listings, gen, true, nil
}

// Set stores listings for n under gen, the generation Get reported.
func (c *CatalogCache) Set(ctx context.Context, n int, gen int64, listings []*domain.Listing) error {
	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("failed to encode catalog cache: %w", err)
	}

	key := pageKey(gen)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(n), data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write catalog cache: %w", err)
	}
	return nil
}

// Invalidate starts a new generation. Older hashes expire on their own.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, catalogGenKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}

// Notify drops the cache on any listing change.
func (c *CatalogCache) Notify(ctx context.Context, _ listing.Change) error {
	return c.Invalidate(ctx)
}
