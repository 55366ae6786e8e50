package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/bookcatalog/services/catalog/domain/events"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
	"github.com/ghuser/bookcatalog/services/catalog/domain/repositories"
	domainsvcs "github.com/ghuser/bookcatalog/services/catalog/domain/services"
)

// AuthorInput carries the fields of an author registration or update.
type AuthorInput struct {
	Name      string
	BirthDate time.Time
	BookIDs   []models.BookID
}

// AuthorService registers, updates and reads authors. Each write runs in a
// single transaction together with its outbox event.
type AuthorService struct {
	*core
	authors      repositories.AuthorLoader
	registration *domainsvcs.AuthorRegistrationService
}

func newAuthorService(c *core, authors repositories.AuthorRepository, books repositories.BookRepository) *AuthorService {
	return &AuthorService{
		core:         c,
		authors:      authors,
		registration: domainsvcs.NewAuthorRegistrationService(authors, books),
	}
}

// Register creates an author and links it to the referenced books.
func (s *AuthorService) Register(ctx context.Context, in AuthorInput) (*models.Author, error) {
	var author *models.Author
	err := s.write(ctx, "author", "register", func(ctx context.Context) error {
		var err error
		author, err = s.registration.Register(ctx, domainsvcs.RegisterAuthorCommand{
			Name:      in.Name,
			BirthDate: in.BirthDate,
			BookIDs:   in.BookIDs,
			Clock:     s.clock,
		})
		if err != nil {
			return err
		}
		return s.publishAuthor(ctx, events.TopicAuthorRegistered, author)
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "author registered", "author_id", author.ID(), "books", len(author.BookIDs()))
	return author, nil
}

// Update replaces the author's fields and reconciles its books.
func (s *AuthorService) Update(ctx context.Context, id models.AuthorID, in AuthorInput) (*models.Author, error) {
	var author *models.Author
	err := s.write(ctx, "author", "update", func(ctx context.Context) error {
		var err error
		author, err = s.registration.Update(ctx, domainsvcs.UpdateAuthorCommand{
			AuthorID:  id,
			Name:      in.Name,
			BirthDate: in.BirthDate,
			BookIDs:   in.BookIDs,
			Clock:     s.clock,
		})
		if err != nil {
			return err
		}
		return s.publishAuthor(ctx, events.TopicAuthorUpdated, author)
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "author updated", "author_id", author.ID())
	return author, nil
}

// Get returns the author with the given id or domain.ErrAuthorNotFound.
func (s *AuthorService) Get(ctx context.Context, id models.AuthorID) (*models.Author, error) {
	ctx, span := s.start(ctx, "author.get")
	defer span.End()

	author, err := s.authors.FindByID(ctx, id)
	if err != nil {
		s.fail(span, err)
		return nil, fmt.Errorf("get author: %w", err)
	}
	return author, nil
}

func (s *AuthorService) publishAuthor(ctx context.Context, topic string, a *models.Author) error {
	eventID := uuid.New()
	err := s.publish(ctx, topic, eventID.String(), events.AuthorEvent{
		EventID:    eventID,
		Version:    1,
		AuthorID:   a.ID().UUID(),
		Name:       a.Name(),
		BirthDate:  a.BirthDate().Format(models.DateLayout),
		BookIDs:    models.BookUUIDs(a.BookIDs()),
		OccurredAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
