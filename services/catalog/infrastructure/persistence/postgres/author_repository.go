package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"

	"github.com/ghuser/bookcatalog/pkg/database"
	"github.com/ghuser/bookcatalog/services/catalog/domain"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
	"github.com/ghuser/bookcatalog/services/catalog/domain/repositories"
)

type authorRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	BirthDate time.Time `db:"birth_date"`
}

// AuthorRepository implements repositories.AuthorRepository against PostgreSQL.
// Save writes the authors row only; book_authors is owned by BookRepository
// and read back when an author is loaded.
type AuthorRepository struct {
	db *database.Database
}

var _ repositories.AuthorRepository = (*AuthorRepository)(nil)

func NewAuthorRepository(db *database.Database) *AuthorRepository {
	return &AuthorRepository{db: db}
}

// FindByID returns domain.ErrAuthorNotFound if the author does not exist.
func (r *AuthorRepository) FindByID(ctx context.Context, id models.AuthorID) (*models.Author, error) {
	q := r.db.Conn(ctx)

	query, args, err := psql.Select("id", "name", "birth_date").
		From(tableAuthors).
		Where(squirrel.Eq{"id": id.UUID()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row authorRow
	if err := sqlscan.Get(ctx, q, &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAuthorNotFound, id)
		}
		return nil, mapError(err, "author", id)
	}

	links, err := r.links(ctx, []uuid.UUID{row.ID})
	if err != nil {
		return nil, mapError(err, "author", id)
	}
	return toAuthor(row, links[row.ID]), nil
}

// FindAllByIDs returns the authors that exist among ids, in no particular order.
func (r *AuthorRepository) FindAllByIDs(ctx context.Context, ids []models.AuthorID) ([]*models.Author, error) {
	if len(ids) == 0 {
		return []*models.Author{}, nil
	}
	raw := models.AuthorUUIDs(ids)

	query, args, err := psql.Select("id", "name", "birth_date").
		From(tableAuthors).
		Where(squirrel.Eq{"id": raw}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []authorRow
	if err := sqlscan.Select(ctx, r.db.Conn(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select authors: %w", err)
	}

	found := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		found[i] = row.ID
	}
	links, err := r.links(ctx, found)
	if err != nil {
		return nil, fmt.Errorf("select author books: %w", err)
	}

	out := make([]*models.Author, len(rows))
	for i, row := range rows {
		out[i] = toAuthor(row, links[row.ID])
	}
	return out, nil
}

// Save upserts the author's scalar fields.
func (r *AuthorRepository) Save(ctx context.Context, author *models.Author) error {
	insert := psql.Insert(tableAuthors).
		Columns("id", "name", "birth_date").
		Values(author.ID().UUID(), author.Name(), author.BirthDate()).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, birth_date = EXCLUDED.birth_date, updated_at = now()")

	return mapError(exec(ctx, r.db.Conn(ctx), insert), "author", author.ID())
}

// links returns book ids per author id.
func (r *AuthorRepository) links(ctx context.Context, authorIDs []uuid.UUID) (map[uuid.UUID][]models.BookID, error) {
	out := make(map[uuid.UUID][]models.BookID, len(authorIDs))
	if len(authorIDs) == 0 {
		return out, nil
	}

	query, args, err := psql.Select("book_id", "author_id").
		From(tableBookAuthors).
		Where(squirrel.Eq{"author_id": authorIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []linkRow
	if err := sqlscan.Select(ctx, r.db.Conn(ctx), &rows, query, args...); err != nil {
		return nil, err
	}
	for _, l := range rows {
		out[l.AuthorID] = append(out[l.AuthorID], models.BookID(l.BookID))
	}
	return out, nil
}

func toAuthor(row authorRow, books []models.BookID) *models.Author {
	return models.RestoreAuthor(models.AuthorID(row.ID), row.Name, row.BirthDate, books)
}
