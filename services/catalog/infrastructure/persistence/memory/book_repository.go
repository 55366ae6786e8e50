package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ghuser/bookcatalog/services/catalog/domain"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
	"github.com/ghuser/bookcatalog/services/catalog/domain/repositories"
)

// BookRepository persists books and reconciles their book_authors rows.
type BookRepository struct {
	store *Store
}

var _ repositories.BookRepository = (*BookRepository)(nil)

func NewBookRepository(store *Store) *BookRepository {
	return &BookRepository{store: store}
}

func (r *BookRepository) FindByID(ctx context.Context, id models.BookID) (*models.Book, error) {
	var book *models.Book
	r.store.read(ctx, func(t *tables) {
		if row, ok := t.books[id]; ok {
			book = restoreBook(t, id, row)
		}
	})
	if book == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrBookNotFound, id)
	}
	return book, nil
}

// FindByAuthorID returns books ordered by title, then id.
func (r *BookRepository) FindByAuthorID(ctx context.Context, authorID models.AuthorID) ([]*models.Book, error) {
	out := []*models.Book{}
	r.store.read(ctx, func(t *tables) {
		for l := range t.links {
			if l.author != authorID {
				continue
			}
			if row, ok := t.books[l.book]; ok {
				out = append(out, restoreBook(t, l.book, row))
			}
		}
	})
	slices.SortFunc(out, func(a, b *models.Book) int {
		if c := strings.Compare(a.Title(), b.Title()); c != 0 {
			return c
		}
		return strings.Compare(a.ID().String(), b.ID().String())
	})
	return out, nil
}

// Save upserts the book and makes its book_authors rows equal to its author
// set. Unknown authors are rejected like a foreign key violation.
func (r *BookRepository) Save(ctx context.Context, book *models.Book) error {
	return r.store.write(ctx, func(t *tables) error {
		desired := book.AuthorIDs()
		for _, a := range desired {
			if _, ok := t.authors[a]; !ok {
				return fmt.Errorf("%w: book %s references unknown author %s", domain.ErrInvalidArgument, book.ID(), a)
			}
		}

		t.books[book.ID()] = bookRow{title: book.Title(), price: book.Price(), status: book.Status()}

		for l := range t.links {
			if l.book == book.ID() && !book.HasAuthor(l.author) {
				delete(t.links, l)
			}
		}
		for _, a := range desired {
			t.links[link{book: book.ID(), author: a}] = struct{}{}
		}
		return nil
	})
}

func restoreBook(t *tables, id models.BookID, row bookRow) *models.Book {
	var authors []models.AuthorID
	for l := range t.links {
		if l.book == id {
			authors = append(authors, l.author)
		}
	}
	return models.RestoreBook(id, row.title, row.price, authors, row.status)
}
