package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/bookcatalog/pkg/cache"
	"github.com/ghuser/bookcatalog/services/catalog/application/services"
	"github.com/ghuser/bookcatalog/services/catalog/domain"
	"github.com/ghuser/bookcatalog/services/catalog/domain/events"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
	"github.com/ghuser/bookcatalog/services/catalog/infrastructure/persistence/memory"
)

type published struct {
	topic string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishJSON(_ context.Context, topic, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, event: event})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.topic
	}
	return out
}

type memoryCache struct {
	mu            sync.Mutex
	gen           int64
	entries       map[string][]cache.CachedBook
	hits, misses  int
	invalidations int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]cache.CachedBook{}}
}

func key(gen int64, id uuid.UUID) string {
	return fmt.Sprintf("%d:%s", gen, id)
}

func (c *memoryCache) Get(_ context.Context, authorID uuid.UUID) ([]cache.CachedBook, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	books, ok := c.entries[key(c.gen, authorID)]
	if !ok {
		c.misses++
		return nil, c.gen, redis.Nil
	}
	c.hits++
	return books, c.gen, nil
}

func (c *memoryCache) Set(_ context.Context, gen int64, authorID uuid.UUID, books []cache.CachedBook) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(gen, authorID)] = books
	return nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidations++
	return nil
}

type fixture struct {
	svcs   *services.Services
	events *recordingPublisher
	cache  *memoryCache
}

func newFixture() *fixture {
	store := memory.NewStore()
	pub := &recordingPublisher{}
	c := newMemoryCache()
	return &fixture{
		svcs: services.NewWithDeps(services.Deps{
			Tx:      store,
			Authors: memory.NewAuthorRepository(store),
			Books:   memory.NewBookRepository(store),
			Events:  pub,
			Cache:   c,
			Clock:   clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)),
		}),
		events: pub,
		cache:  c,
	}
}

var birth = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestAuthorService_RegisterPublishesEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.svcs.Author.Register(ctx, services.AuthorInput{Name: "Jane Doe", BirthDate: birth})
	require.NoError(t, err)

	require.Equal(t, []string{events.TopicAuthorRegistered}, f.events.topics())
	ev, ok := f.events.events[0].event.(events.AuthorEvent)
	require.True(t, ok)
	assert.Equal(t, a.ID().UUID(), ev.AuthorID)
	assert.Equal(t, "Jane Doe", ev.Name)
	assert.Equal(t, "1980-01-01", ev.BirthDate)
	assert.Equal(t, 1, f.cache.invalidations)
}

func TestAuthorService_RegisterRejectsFutureBirthDate(t *testing.T) {
	f := newFixture()

	_, err := f.svcs.Author.Register(context.Background(), services.AuthorInput{
		Name:      "Jane Doe",
		BirthDate: time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Empty(t, f.events.topics())
	assert.Zero(t, f.cache.invalidations)
}

func TestAuthorService_UpdateLinksBooks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.svcs.Author.Register(ctx, services.AuthorInput{Name: "Jane Doe", BirthDate: birth})
	require.NoError(t, err)
	other, err := f.svcs.Author.Register(ctx, services.AuthorInput{Name: "John Roe", BirthDate: birth})
	require.NoError(t, err)
	b, err := f.svcs.Book.Register(ctx, services.BookInput{
		Title:     "Go in Action",
		Price:     decimal.RequireFromString("29.99"),
		AuthorIDs: []models.AuthorID{other.ID()},
	})
	require.NoError(t, err)

	updated, err := f.svcs.Author.Update(ctx, a.ID(), services.AuthorInput{
		Name:      "Jane Q. Doe",
		BirthDate: birth,
		BookIDs:   []models.BookID{b.ID()},
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Q. Doe", updated.Name())

	got, err := f.svcs.Book.Get(ctx, b.ID())
	require.NoError(t, err)
	assert.True(t, got.HasAuthor(a.ID()))
	assert.True(t, got.HasAuthor(other.ID()))
	assert.Equal(t, events.TopicAuthorUpdated, f.events.topics()[3])
}

func TestAuthorService_GetNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svcs.Author.Get(context.Background(), models.NewAuthorID())
	require.ErrorIs(t, err, domain.ErrAuthorNotFound)
}

func TestBookService_RegisterMissingAuthors(t *testing.T) {
	f := newFixture()
	missing := models.NewAuthorID()

	_, err := f.svcs.Book.Register(context.Background(), services.BookInput{
		Title:     "Go in Action",
		Price:     decimal.RequireFromString("29.99"),
		AuthorIDs: []models.AuthorID{missing},
	})
	require.ErrorIs(t, err, domain.ErrMissingAuthors)
	assert.Equal(t, []uuid.UUID{missing.UUID()}, domain.MissingIDs(err))
	assert.Empty(t, f.events.topics())
}

func TestBookService_UpdateRejectsUnpublish(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.svcs.Author.Register(ctx, services.AuthorInput{Name: "Jane Doe", BirthDate: birth})
	require.NoError(t, err)
	b, err := f.svcs.Book.Register(ctx, services.BookInput{
		Title:     "Go in Action",
		Price:     decimal.RequireFromString("29.99"),
		AuthorIDs: []models.AuthorID{a.ID()},
		Status:    models.StatusPublished,
	})
	require.NoError(t, err)
	invalidations := f.cache.invalidations

	_, err = f.svcs.Book.Update(ctx, b.ID(), services.BookInput{
		Title:     "Go in Action, 2nd ed.",
		Price:     decimal.RequireFromString("39.99"),
		AuthorIDs: []models.AuthorID{a.ID()},
		Status:    models.StatusUnpublished,
	})
	require.ErrorIs(t, err, domain.ErrInvariantViolation)
	assert.Equal(t, invalidations, f.cache.invalidations)

	got, err := f.svcs.Book.Get(ctx, b.ID())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, got.Status())
	assert.Equal(t, "Go in Action", got.Title())
}

func TestBookService_ListByAuthorReadThrough(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.svcs.Author.Register(ctx, services.AuthorInput{Name: "Jane Doe", BirthDate: birth})
	require.NoError(t, err)
	_, err = f.svcs.Book.Register(ctx, services.BookInput{
		Title:     "Go in Action",
		Price:     decimal.RequireFromString("29.99"),
		AuthorIDs: []models.AuthorID{a.ID()},
	})
	require.NoError(t, err)

	first, err := f.svcs.Book.ListByAuthor(ctx, a.ID())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, f.cache.misses)

	second, err := f.svcs.Book.ListByAuthor(ctx, a.ID())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, f.cache.hits)
	assert.Equal(t, first[0].ID(), second[0].ID())
	assert.True(t, first[0].Price().Equal(second[0].Price()))
	assert.Equal(t, models.StatusUnpublished, second[0].Status())

	_, err = f.svcs.Book.Register(ctx, services.BookInput{
		Title:     "Concurrency in Go",
		Price:     decimal.RequireFromString("35.00"),
		AuthorIDs: []models.AuthorID{a.ID()},
	})
	require.NoError(t, err)

	third, err := f.svcs.Book.ListByAuthor(ctx, a.ID())
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Equal(t, 2, f.cache.misses)
}

func TestBookService_ListByAuthorWithoutCache(t *testing.T) {
	store := memory.NewStore()
	svcs := services.NewWithDeps(services.Deps{
		Tx:      store,
		Authors: memory.NewAuthorRepository(store),
		Books:   memory.NewBookRepository(store),
	})

	books, err := svcs.Book.ListByAuthor(context.Background(), models.NewAuthorID())
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

type failingPublisher struct{}

func (failingPublisher) PublishJSON(context.Context, string, string, any) error {
	return errors.New("outbox unavailable")
}

func TestBookService_PublishFailureRollsBack(t *testing.T) {
	store := memory.NewStore()
	authors := memory.NewAuthorRepository(store)
	books := memory.NewBookRepository(store)
	plain := services.NewWithDeps(services.Deps{Tx: store, Authors: authors, Books: books})
	failing := services.NewWithDeps(services.Deps{Tx: store, Authors: authors, Books: books, Events: failingPublisher{}})
	ctx := context.Background()

	a, err := plain.Author.Register(ctx, services.AuthorInput{Name: "Jane Doe", BirthDate: birth})
	require.NoError(t, err)

	_, err = failing.Book.Register(ctx, services.BookInput{
		Title:     "Go in Action",
		Price:     decimal.RequireFromString("29.99"),
		AuthorIDs: []models.AuthorID{a.ID()},
	})
	require.Error(t, err)

	listed, err := plain.Book.ListByAuthor(ctx, a.ID())
	require.NoError(t, err)
	assert.Empty(t, listed)
}
