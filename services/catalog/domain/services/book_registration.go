package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ghuser/bookcatalog/services/catalog/domain"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
	"github.com/ghuser/bookcatalog/services/catalog/domain/repositories"
)

// RegisterBookCommand requests a new book. BookID is optional and Status
// defaults to models.StatusUnpublished when empty.
type RegisterBookCommand struct {
	Title     string
	Price     decimal.Decimal
	AuthorIDs []models.AuthorID
	BookID    *models.BookID
	Status    models.BookStatus
}

// UpdateBookCommand replaces a book's title, price, authors and status.
type UpdateBookCommand struct {
	BookID    models.BookID
	Title     string
	Price     decimal.Decimal
	AuthorIDs []models.AuthorID
	Status    models.BookStatus
}

// BookRegistrationService registers and updates books. Every referenced
// author must exist; the book repository persists the association.
type BookRegistrationService struct {
	books   repositories.BookRepository
	authors repositories.AuthorsLoader
}

func NewBookRegistrationService(books repositories.BookRepository, authors repositories.AuthorRepository) *BookRegistrationService {
	return &BookRegistrationService{books: books, authors: authors}
}

func (s *BookRegistrationService) Register(ctx context.Context, cmd RegisterBookCommand) (*models.Book, error) {
	if err := s.ensureAuthors(ctx, cmd.AuthorIDs); err != nil {
		return nil, err
	}

	var opts []models.BookOption
	if cmd.BookID != nil {
		opts = append(opts, models.WithBookID(*cmd.BookID))
	}
	if cmd.Status != "" {
		opts = append(opts, models.WithStatus(cmd.Status))
	}
	book, err := models.NewBook(cmd.Title, cmd.Price, cmd.AuthorIDs, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.books.Save(ctx, book); err != nil {
		return nil, fmt.Errorf("save book %s: %w", book.ID(), err)
	}
	return book, nil
}

// Update applies title, price and authors in that order, then the status
// transition if the status differs. Any failure leaves storage untouched.
func (s *BookRegistrationService) Update(ctx context.Context, cmd UpdateBookCommand) (*models.Book, error) {
	if err := s.ensureAuthors(ctx, cmd.AuthorIDs); err != nil {
		return nil, err
	}

	book, err := s.books.FindByID(ctx, cmd.BookID)
	if err != nil {
		return nil, err
	}

	if err := book.UpdateTitle(cmd.Title); err != nil {
		return nil, err
	}
	if err := book.UpdatePrice(cmd.Price); err != nil {
		return nil, err
	}
	if err := book.ReplaceAuthors(cmd.AuthorIDs); err != nil {
		return nil, err
	}
	if book.Status() != cmd.Status {
		if err := book.ChangeStatus(cmd.Status); err != nil {
			return nil, err
		}
	}

	if err := s.books.Save(ctx, book); err != nil {
		return nil, fmt.Errorf("save book %s: %w", book.ID(), err)
	}
	return book, nil
}

// ensureAuthors loads the requested authors in one batch and returns
// *domain.MissingAuthorsError for ids that do not exist.
func (s *BookRegistrationService) ensureAuthors(ctx context.Context, ids []models.AuthorID) error {
	requested := distinct(ids)
	if len(requested) == 0 {
		return nil
	}

	found, err := s.authors.FindAllByIDs(ctx, requested)
	if err != nil {
		return fmt.Errorf("load authors: %w", err)
	}
	existing := make(map[models.AuthorID]struct{}, len(found))
	for _, a := range found {
		existing[a.ID()] = struct{}{}
	}

	var missing []models.AuthorID
	for _, id := range requested {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &domain.MissingAuthorsError{IDs: models.AuthorUUIDs(missing)}
	}
	return nil
}
