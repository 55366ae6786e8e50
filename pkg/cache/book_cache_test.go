package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestListKey(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	want := "catalog:books:by-author:7:550e8400-e29b-41d4-a716-446655440000"
	if got := listKey(7, id); got != want {
		t.Fatalf("listKey = %q, want %q", got, want)
	}
}

func TestNewBookListCache_DefaultTTL(t *testing.T) {
	c := NewBookListCache(nil, 0)
	if c.ttl != DefaultBookListTTL {
		t.Fatalf("ttl = %v, want %v", c.ttl, DefaultBookListTTL)
	}
}

func TestBookListCacheIntegration(t *testing.T) {
	rc, err := Connect(context.Background(), redisConfig(startRedis(t)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close() //nolint:errcheck

	ctx := context.Background()
	c := NewBookListCache(rc, time.Minute)
	author := uuid.New()

	_, gen, err := c.Get(ctx, author)
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("expected miss, got %v", err)
	}

	books := []CachedBook{{ID: uuid.New(), Title: "Go in Action", Price: "29.99", AuthorIDs: []uuid.UUID{author}, Status: "UNPUBLISHED"}}
	if err := c.Set(ctx, gen, author, books); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, _, err := c.Get(ctx, author)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Go in Action" || got[0].AuthorIDs[0] != author {
		t.Fatalf("unexpected cached books: %+v", got)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, _, err := c.Get(ctx, author); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected miss after invalidation, got %v", err)
	}

	// A list read before the invalidation is stored under the old generation.
	if err := c.Set(ctx, gen, author, books); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, _, err := c.Get(ctx, author); !errors.Is(err, redis.Nil) {
		t.Fatalf("stale generation must not be served, got %v", err)
	}
}
