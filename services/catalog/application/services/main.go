package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"

	"github.com/ghuser/bookcatalog/pkg/app"
	"github.com/ghuser/bookcatalog/pkg/cache"
	"github.com/ghuser/bookcatalog/pkg/logger"
	"github.com/ghuser/bookcatalog/pkg/telemetry"
	"github.com/ghuser/bookcatalog/services/catalog/domain/repositories"
	"github.com/ghuser/bookcatalog/services/catalog/infrastructure/persistence/memory"
	"github.com/ghuser/bookcatalog/services/catalog/infrastructure/persistence/postgres"
)

const instrumentationName = "github.com/ghuser/bookcatalog/services/catalog"

// TxRunner opens the unit of work every catalog operation runs in.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher writes domain events, to the outbox when ctx carries a transaction.
type EventPublisher interface {
	PublishJSON(ctx context.Context, topic, eventID string, event any) error
}

// BookListCache is the books-by-author read model.
type BookListCache interface {
	Get(ctx context.Context, authorID uuid.UUID) ([]cache.CachedBook, int64, error)
	Set(ctx context.Context, gen int64, authorID uuid.UUID, books []cache.CachedBook) error
	Invalidate(ctx context.Context) error
}

// Deps are the infrastructure dependencies of the catalog services.
// Events, Cache, Metrics and Clock are optional.
type Deps struct {
	Tx      TxRunner
	Authors repositories.AuthorRepository
	Books   repositories.BookRepository
	Events  EventPublisher
	Cache   BookListCache
	Metrics *telemetry.CatalogMetrics
	Clock   clockwork.Clock
	Logger  logger.Logger
}

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Author *AuthorService
	Book   *BookService
}

// New wires all catalog application services with infrastructure from the
// Application container. The storage driver selects PostgreSQL or the
// in-memory store.
func New(a *app.Application) (*Services, error) {
	metrics, err := telemetry.NewCatalogMetrics(otel.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("catalog metrics: %w", err)
	}

	deps := Deps{Metrics: metrics, Logger: a.Logger}
	if a.Config != nil && !a.Config.UsesPostgres() {
		store := memory.NewStore()
		deps.Tx = store
		deps.Authors = memory.NewAuthorRepository(store)
		deps.Books = memory.NewBookRepository(store)
	} else {
		if a.Db == nil {
			return nil, fmt.Errorf("catalog services: postgres storage selected without a database")
		}
		deps.Tx = a.Db
		deps.Authors = postgres.NewAuthorRepository(a.Db)
		deps.Books = postgres.NewBookRepository(a.Db)
	}
	if a.EventBus != nil {
		deps.Events = a.EventBus
	}
	if a.Redis != nil {
		ttl := cache.DefaultBookListTTL
		if a.Config != nil {
			ttl = a.Config.BooksCacheTTL
		}
		deps.Cache = cache.NewBookListCache(a.Redis, ttl)
	}
	return NewWithDeps(deps), nil
}

// NewWithDeps wires the services from explicit dependencies.
func NewWithDeps(d Deps) *Services {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	c := &core{
		tx:      d.Tx,
		events:  d.Events,
		cache:   d.Cache,
		metrics: d.Metrics,
		clock:   d.Clock,
		log:     d.Logger,
	}
	return &Services{
		Author: newAuthorService(c, d.Authors, d.Books),
		Book:   newBookService(c, d.Books, d.Authors),
	}
}
