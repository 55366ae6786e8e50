package memory

import (
	"context"
	"fmt"

	"github.com/ghuser/bookcatalog/services/catalog/domain"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
	"github.com/ghuser/bookcatalog/services/catalog/domain/repositories"
)

// AuthorRepository writes author scalars only; the association is owned by
// BookRepository and read back on load.
type AuthorRepository struct {
	store *Store
}

var _ repositories.AuthorRepository = (*AuthorRepository)(nil)

func NewAuthorRepository(store *Store) *AuthorRepository {
	return &AuthorRepository{store: store}
}

func (r *AuthorRepository) FindByID(ctx context.Context, id models.AuthorID) (*models.Author, error) {
	var author *models.Author
	r.store.read(ctx, func(t *tables) {
		if row, ok := t.authors[id]; ok {
			author = restoreAuthor(t, id, row)
		}
	})
	if author == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAuthorNotFound, id)
	}
	return author, nil
}

func (r *AuthorRepository) FindAllByIDs(ctx context.Context, ids []models.AuthorID) ([]*models.Author, error) {
	out := make([]*models.Author, 0, len(ids))
	r.store.read(ctx, func(t *tables) {
		seen := make(map[models.AuthorID]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if row, ok := t.authors[id]; ok {
				out = append(out, restoreAuthor(t, id, row))
			}
		}
	})
	return out, nil
}

func (r *AuthorRepository) Save(ctx context.Context, author *models.Author) error {
	return r.store.write(ctx, func(t *tables) error {
		t.authors[author.ID()] = authorRow{name: author.Name(), birthDate: author.BirthDate()}
		return nil
	})
}

func restoreAuthor(t *tables, id models.AuthorID, row authorRow) *models.Author {
	var books []models.BookID
	for l := range t.links {
		if l.author == id {
			books = append(books, l.book)
		}
	}
	return models.RestoreAuthor(id, row.name, row.birthDate, books)
}
