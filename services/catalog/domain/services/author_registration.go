// Package services contains the domain services of the catalog bounded context.
// They coordinate the Author and Book aggregates through repository ports and
// are the only place where the author/book association is reconciled.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ghuser/bookcatalog/services/catalog/domain"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
	"github.com/ghuser/bookcatalog/services/catalog/domain/repositories"
)

// RegisterAuthorCommand requests a new author. AuthorID and Clock are optional.
type RegisterAuthorCommand struct {
	Name      string
	BirthDate time.Time
	BookIDs   []models.BookID
	AuthorID  *models.AuthorID
	Clock     clockwork.Clock
}

// UpdateAuthorCommand replaces an author's name, birth date and book set.
type UpdateAuthorCommand struct {
	AuthorID  models.AuthorID
	Name      string
	BirthDate time.Time
	BookIDs   []models.BookID
	Clock     clockwork.Clock
}

// AuthorRegistrationService registers and updates authors and keeps the
// books they reference pointing back at them.
type AuthorRegistrationService struct {
	authors interface {
		repositories.AuthorLoader
		repositories.AuthorSaver
	}
	books interface {
		repositories.BookLoader
		repositories.BookSaver
	}
}

// NewAuthorRegistrationService wires the service to its ports.
func NewAuthorRegistrationService(authors repositories.AuthorRepository, books repositories.BookRepository) *AuthorRegistrationService {
	return &AuthorRegistrationService{authors: authors, books: books}
}

// Register creates an author whose books must all exist, then adds the author
// to every referenced book that does not list it yet.
func (s *AuthorRegistrationService) Register(ctx context.Context, cmd RegisterAuthorCommand) (*models.Author, error) {
	books, err := s.resolveBooks(ctx, cmd.BookIDs)
	if err != nil {
		return nil, err
	}

	opts := []models.AuthorOption{}
	if cmd.AuthorID != nil {
		opts = append(opts, models.WithAuthorID(*cmd.AuthorID))
	}
	if cmd.Clock != nil {
		opts = append(opts, models.WithClock(cmd.Clock))
	}
	author, err := models.NewAuthor(cmd.Name, cmd.BirthDate, cmd.BookIDs, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.authors.Save(ctx, author); err != nil {
		return nil, fmt.Errorf("save author %s: %w", author.ID(), err)
	}

	for _, book := range books {
		if book.HasAuthor(author.ID()) {
			continue
		}
		book.AddAuthor(author.ID())
		if err := s.books.Save(ctx, book); err != nil {
			return nil, fmt.Errorf("save book %s: %w", book.ID(), err)
		}
	}

	return author, nil
}

// Update replaces an existing author and reconciles the affected books:
// books newly referenced gain the author, books no longer referenced lose it.
// Removing the author from a book it is the sole author of fails with
// domain.ErrInvariantViolation. Books that vanished meanwhile are skipped.
func (s *AuthorRegistrationService) Update(ctx context.Context, cmd UpdateAuthorCommand) (*models.Author, error) {
	if _, err := s.resolveBooks(ctx, cmd.BookIDs); err != nil {
		return nil, err
	}

	existing, err := s.authors.FindByID(ctx, cmd.AuthorID)
	if err != nil {
		return nil, err
	}

	opts := []models.AuthorOption{models.WithAuthorID(existing.ID())}
	if cmd.Clock != nil {
		opts = append(opts, models.WithClock(cmd.Clock))
	}
	updated, err := models.NewAuthor(cmd.Name, cmd.BirthDate, cmd.BookIDs, opts...)
	if err != nil {
		return nil, err
	}

	var toAdd, toRemove []models.BookID
	for _, id := range updated.BookIDs() {
		if !existing.HasBook(id) {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range existing.BookIDs() {
		if !updated.HasBook(id) {
			toRemove = append(toRemove, id)
		}
	}

	if err := s.authors.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("save author %s: %w", updated.ID(), err)
	}

	for _, id := range toAdd {
		book, err := s.loadBook(ctx, id)
		if err != nil {
			return nil, err
		}
		if book == nil || book.HasAuthor(updated.ID()) {
			continue
		}
		book.AddAuthor(updated.ID())
		if err := s.books.Save(ctx, book); err != nil {
			return nil, fmt.Errorf("save book %s: %w", id, err)
		}
	}

	for _, id := range toRemove {
		book, err := s.loadBook(ctx, id)
		if err != nil {
			return nil, err
		}
		if book == nil || !book.HasAuthor(updated.ID()) {
			continue
		}
		if err := book.RemoveAuthor(updated.ID()); err != nil {
			return nil, err
		}
		if err := s.books.Save(ctx, book); err != nil {
			return nil, fmt.Errorf("save book %s: %w", id, err)
		}
	}

	return updated, nil
}

// resolveBooks loads every requested book, one lookup per distinct id.
// Returns *domain.MissingBooksError listing the ids that do not exist.
func (s *AuthorRegistrationService) resolveBooks(ctx context.Context, ids []models.BookID) ([]*models.Book, error) {
	var (
		books   []*models.Book
		missing []models.BookID
	)
	for _, id := range distinct(ids) {
		book, err := s.loadBook(ctx, id)
		if err != nil {
			return nil, err
		}
		if book == nil {
			missing = append(missing, id)
			continue
		}
		books = append(books, book)
	}
	if len(missing) > 0 {
		return nil, &domain.MissingBooksError{IDs: models.BookUUIDs(missing)}
	}
	return books, nil
}

// loadBook returns nil without error when the book does not exist.
func (s *AuthorRegistrationService) loadBook(ctx context.Context, id models.BookID) (*models.Book, error) {
	book, err := s.books.FindByID(ctx, id)
	if errors.Is(err, domain.ErrBookNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load book %s: %w", id, err)
	}
	return book, nil
}

// distinct drops repeated ids, keeping first occurrences in order.
func distinct[T comparable](ids []T) []T {
	seen := make(map[T]struct{}, len(ids))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
