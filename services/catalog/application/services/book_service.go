package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ghuser/bookcatalog/pkg/cache"
	"github.com/ghuser/bookcatalog/services/catalog/domain/events"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
	"github.com/ghuser/bookcatalog/services/catalog/domain/repositories"
	domainsvcs "github.com/ghuser/bookcatalog/services/catalog/domain/services"
)

// BookInput carries the fields of a book registration or update. An empty
// Status registers the book as unpublished.
type BookInput struct {
	Title     string
	Price     decimal.Decimal
	AuthorIDs []models.AuthorID
	Status    models.BookStatus
}

// BookService registers, updates and reads books.
// Lists by author are served from the Redis cache when one is configured.
type BookService struct {
	*core
	books        repositories.BookLoader
	registration *domainsvcs.BookRegistrationService
	query        *domainsvcs.BookQueryService
}

func newBookService(c *core, books repositories.BookRepository, authors repositories.AuthorRepository) *BookService {
	return &BookService{
		core:         c,
		books:        books,
		registration: domainsvcs.NewBookRegistrationService(books, authors),
		query:        domainsvcs.NewBookQueryService(books),
	}
}

// Register creates a book whose authors must all exist.
func (s *BookService) Register(ctx context.Context, in BookInput) (*models.Book, error) {
	var book *models.Book
	err := s.write(ctx, "book", "register", func(ctx context.Context) error {
		var err error
		book, err = s.registration.Register(ctx, domainsvcs.RegisterBookCommand{
			Title:     in.Title,
			Price:     in.Price,
			AuthorIDs: in.AuthorIDs,
			Status:    in.Status,
		})
		if err != nil {
			return err
		}
		return s.publishBook(ctx, events.TopicBookRegistered, book)
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "book registered", "book_id", book.ID(), "authors", len(book.AuthorIDs()))
	return book, nil
}

// Update replaces the book's fields, authors and status.
func (s *BookService) Update(ctx context.Context, id models.BookID, in BookInput) (*models.Book, error) {
	var book *models.Book
	err := s.write(ctx, "book", "update", func(ctx context.Context) error {
		var err error
		book, err = s.registration.Update(ctx, domainsvcs.UpdateBookCommand{
			BookID:    id,
			Title:     in.Title,
			Price:     in.Price,
			AuthorIDs: in.AuthorIDs,
			Status:    in.Status,
		})
		if err != nil {
			return err
		}
		return s.publishBook(ctx, events.TopicBookUpdated, book)
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "book updated", "book_id", book.ID(), "status", book.Status())
	return book, nil
}

// Get returns the book with the given id or domain.ErrBookNotFound.
func (s *BookService) Get(ctx context.Context, id models.BookID) (*models.Book, error) {
	ctx, span := s.start(ctx, "book.get")
	defer span.End()

	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		s.fail(span, err)
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// ListByAuthor returns the author's books using a read-through cache:
//  1. Check Redis first.
//  2. On a miss (or cache error), query storage.
//  3. Fill the cache under the generation observed in step 1.
func (s *BookService) ListByAuthor(ctx context.Context, authorID models.AuthorID) ([]*models.Book, error) {
	ctx, span := s.start(ctx, "book.list_by_author")
	defer span.End()

	var (
		gen  int64
		fill bool
	)
	if s.cache != nil {
		cached, g, err := s.cache.Get(ctx, authorID.UUID())
		switch {
		case err == nil:
			books, convErr := fromCached(cached)
			if convErr == nil {
				s.metrics.RecordCacheLookup(ctx, true)
				return books, nil
			}
			s.log.WarnContext(ctx, "catalog: discarding unreadable cache entry", "author_id", authorID, "error", convErr)
			gen, fill = g, true
		case errors.Is(err, redis.Nil):
			gen, fill = g, true
		default:
			s.log.WarnContext(ctx, "catalog: cache lookup failed", "author_id", authorID, "error", err)
		}
		s.metrics.RecordCacheLookup(ctx, false)
	}

	books, err := s.query.FindByAuthor(ctx, authorID)
	if err != nil {
		s.fail(span, err)
		return nil, err
	}

	if fill {
		if err := s.cache.Set(ctx, gen, authorID.UUID(), toCached(books)); err != nil {
			s.log.WarnContext(ctx, "catalog: cache fill failed", "author_id", authorID, "error", err)
		}
	}
	return books, nil
}

func (s *BookService) publishBook(ctx context.Context, topic string, b *models.Book) error {
	eventID := uuid.New()
	err := s.publish(ctx, topic, eventID.String(), events.BookEvent{
		EventID:    eventID,
		Version:    1,
		BookID:     b.ID().UUID(),
		Title:      b.Title(),
		Price:      b.Price().StringFixed(2),
		Status:     b.Status().String(),
		AuthorIDs:  models.AuthorUUIDs(b.AuthorIDs()),
		OccurredAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func toCached(books []*models.Book) []cache.CachedBook {
	out := make([]cache.CachedBook, len(books))
	for i, b := range books {
		out[i] = cache.CachedBook{
			ID:        b.ID().UUID(),
			Title:     b.Title(),
			Price:     b.Price().String(),
			AuthorIDs: models.AuthorUUIDs(b.AuthorIDs()),
			Status:    b.Status().String(),
		}
	}
	return out
}

func fromCached(cached []cache.CachedBook) ([]*models.Book, error) {
	out := make([]*models.Book, len(cached))
	for i, c := range cached {
		price, err := decimal.NewFromString(c.Price)
		if err != nil {
			return nil, fmt.Errorf("cached price of book %s: %w", c.ID, err)
		}
		status, err := models.ParseBookStatus(c.Status)
		if err != nil {
			return nil, fmt.Errorf("cached status of book %s: %w", c.ID, err)
		}
		authorIDs := make([]models.AuthorID, len(c.AuthorIDs))
		for j, id := range c.AuthorIDs {
			authorIDs[j] = models.AuthorID(id)
		}
		out[i] = models.RestoreBook(models.BookID(c.ID), c.Title, price, authorIDs, status)
	}
	return out, nil
}
