package repositories

import (
	"context"

	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
)

// AuthorLoader loads a single author. Returns domain.ErrAuthorNotFound when absent.
type AuthorLoader interface {
	FindByID(ctx context.Context, id models.AuthorID) (*models.Author, error)
}

// AuthorsLoader loads authors in bulk. Missing ids are simply absent from the result.
type AuthorsLoader interface {
	FindAllByIDs(ctx context.Context, ids []models.AuthorID) ([]*models.Author, error)
}

// AuthorSaver inserts or updates an author by id.
type AuthorSaver interface {
	Save(ctx context.Context, author *models.Author) error
}

// AuthorRepository is the persistence interface for the Author aggregate.
// The domain layer owns this interface; infrastructure implements it.
type AuthorRepository interface {
	AuthorLoader
	AuthorsLoader
	AuthorSaver
}

// BookLoader loads a single book. Returns domain.ErrBookNotFound when absent.
type BookLoader interface {
	FindByID(ctx context.Context, id models.BookID) (*models.Book, error)
}

// BookQuerier lists books associated with an author.
type BookQuerier interface {
	FindByAuthorID(ctx context.Context, authorID models.AuthorID) ([]*models.Book, error)
}

// BookSaver inserts or updates a book by id, reconciling its author
// associations so that the stored set equals the book's set.
type BookSaver interface {
	Save(ctx context.Context, book *models.Book) error
}

// BookRepository is the persistence interface for the Book aggregate.
type BookRepository interface {
	BookLoader
	BookQuerier
	BookSaver
}
