package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultBookListTTL bounds how long a per-author list may be served.
	DefaultBookListTTL = 5 * time.Minute

	bookListKeyPrefix = "catalog:books:by-author"
	generationKey     = "catalog:books:generation"
)

// CachedBook is the read model of a book stored in Redis.
type CachedBook struct {
	ID        uuid.UUID   `json:"id"`
	Title     string      `json:"title"`
	Price     string      `json:"price"`
	AuthorIDs []uuid.UUID `json:"author_ids"`
	Status    string      `json:"status"`
}

// BookListCache caches the books of each author.
//
// Every write to the catalog can change the lists of several authors, so
// entries are namespaced by a generation counter instead of being deleted one
// by one. Invalidate bumps the counter; stale entries are never read again and
// expire through their TTL.
//
// Key format: "catalog:books:by-author:{generation}:{authorID}"
type BookListCache struct {
	client *RedisClient
	ttl    time.Duration
}

// NewBookListCache creates a BookListCache. A non-positive ttl selects DefaultBookListTTL.
func NewBookListCache(r *RedisClient, ttl time.Duration) *BookListCache {
	if ttl <= 0 {
		ttl = DefaultBookListTTL
	}
	return &BookListCache{client: r, ttl: ttl}
}

// Get returns the cached list for the author and the generation it was looked
// up in. On a miss the error is redis.Nil and the generation is still valid:
// pass it to Set so a list read before a concurrent Invalidate is never
// stored under the newer generation.
func (c *BookListCache) Get(ctx context.Context, authorID uuid.UUID) ([]CachedBook, int64, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, err
	}

	raw, err := c.client.client.Get(ctx, listKey(gen, authorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, redis.Nil
	}
	if err != nil {
		return nil, gen, fmt.Errorf("cache get: %w", err)
	}

	var books []CachedBook
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, gen, fmt.Errorf("cache decode: %w", err)
	}
	return books, gen, nil
}

// Set stores the author's list under generation gen.
func (c *BookListCache) Set(ctx context.Context, gen int64, authorID uuid.UUID, books []CachedBook) error {
	if books == nil {
		books = []CachedBook{}
	}
	payload, err := json.Marshal(books)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.client.Set(ctx, listKey(gen, authorID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate retires every cached list.
func (c *BookListCache) Invalidate(ctx context.Context) error {
	if err := c.client.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

func (c *BookListCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return gen, nil
}

func listKey(gen int64, authorID uuid.UUID) string {
	return fmt.Sprintf("%s:%d:%s", bookListKeyPrefix, gen, authorID)
}
