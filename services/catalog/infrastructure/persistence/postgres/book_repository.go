package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/bookcatalog/pkg/database"
	"github.com/ghuser/bookcatalog/services/catalog/domain"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
	"github.com/ghuser/bookcatalog/services/catalog/domain/repositories"
)

type bookRow struct {
	ID     uuid.UUID       `db:"id"`
	Title  string          `db:"title"`
	Price  decimal.Decimal `db:"price"`
	Status string          `db:"status"`
}

var bookColumns = []string{"b.id", "b.title", "b.price", "b.status"}

// BookRepository implements repositories.BookRepository against PostgreSQL.
// It is the only writer of book_authors.
type BookRepository struct {
	db *database.Database
}

var _ repositories.BookRepository = (*BookRepository)(nil)

func NewBookRepository(db *database.Database) *BookRepository {
	return &BookRepository{db: db}
}

// FindByID returns domain.ErrBookNotFound if the book does not exist.
func (r *BookRepository) FindByID(ctx context.Context, id models.BookID) (*models.Book, error) {
	query, args, err := psql.Select(bookColumns...).
		From(tableBooks + " b").
		Where(squirrel.Eq{"b.id": id.UUID()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row bookRow
	if err := sqlscan.Get(ctx, r.db.Conn(ctx), &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBookNotFound, id)
		}
		return nil, mapError(err, "book", id)
	}

	links, err := r.authorLinks(ctx, []uuid.UUID{row.ID})
	if err != nil {
		return nil, mapError(err, "book", id)
	}
	return toBook(row, links[row.ID]), nil
}

// FindByAuthorID returns the author's books ordered by title, then id.
func (r *BookRepository) FindByAuthorID(ctx context.Context, authorID models.AuthorID) ([]*models.Book, error) {
	query, args, err := psql.Select(bookColumns...).
		From(tableBooks + " b").
		Join(tableBookAuthors + " ba ON ba.book_id = b.id").
		Where(squirrel.Eq{"ba.author_id": authorID.UUID()}).
		OrderBy("b.title", "b.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []bookRow
	if err := sqlscan.Select(ctx, r.db.Conn(ctx), &rows, query, args...); err != nil {
		return nil, mapError(err, "author", authorID)
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	links, err := r.authorLinks(ctx, ids)
	if err != nil {
		return nil, mapError(err, "author", authorID)
	}

	out := make([]*models.Book, len(rows))
	for i, row := range rows {
		out[i] = toBook(row, links[row.ID])
	}
	return out, nil
}

// Save upserts the book row and reconciles book_authors: rows for authors no
// longer listed are deleted, missing rows are inserted. Unchanged rows are
// left alone.
func (r *BookRepository) Save(ctx context.Context, book *models.Book) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.Conn(ctx)

		upsert := psql.Insert(tableBooks).
			Columns("id", "title", "price", "status").
			Values(book.ID().UUID(), book.Title(), book.Price(), book.Status().String()).
			Suffix("ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, price = EXCLUDED.price, status = EXCLUDED.status, updated_at = now()")
		if err := exec(ctx, q, upsert); err != nil {
			return mapError(err, "book", book.ID())
		}

		current, err := r.authorLinks(ctx, []uuid.UUID{book.ID().UUID()})
		if err != nil {
			return mapError(err, "book", book.ID())
		}

		var stale []uuid.UUID
		present := make(map[models.AuthorID]struct{}, len(current[book.ID().UUID()]))
		for _, a := range current[book.ID().UUID()] {
			present[a] = struct{}{}
			if !book.HasAuthor(a) {
				stale = append(stale, a.UUID())
			}
		}

		if len(stale) > 0 {
			del := psql.Delete(tableBookAuthors).
				Where(squirrel.Eq{"book_id": book.ID().UUID(), "author_id": stale})
			if err := exec(ctx, q, del); err != nil {
				return mapError(err, "book", book.ID())
			}
		}

		insert := psql.Insert(tableBookAuthors).Columns("book_id", "author_id")
		missing := 0
		for _, a := range book.AuthorIDs() {
			if _, ok := present[a]; ok {
				continue
			}
			insert = insert.Values(book.ID().UUID(), a.UUID())
			missing++
		}
		if missing > 0 {
			insert = insert.Suffix("ON CONFLICT (book_id, author_id) DO NOTHING")
			if err := exec(ctx, q, insert); err != nil {
				return mapError(err, "book", book.ID())
			}
		}
		return nil
	})
}

// authorLinks returns author ids per book id.
func (r *BookRepository) authorLinks(ctx context.Context, bookIDs []uuid.UUID) (map[uuid.UUID][]models.AuthorID, error) {
	out := make(map[uuid.UUID][]models.AuthorID, len(bookIDs))
	if len(bookIDs) == 0 {
		return out, nil
	}

	query, args, err := psql.Select("book_id", "author_id").
		From(tableBookAuthors).
		Where(squirrel.Eq{"book_id": bookIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []linkRow
	if err := sqlscan.Select(ctx, r.db.Conn(ctx), &rows, query, args...); err != nil {
		return nil, err
	}
	for _, l := range rows {
		out[l.BookID] = append(out[l.BookID], models.AuthorID(l.AuthorID))
	}
	return out, nil
}

func toBook(row bookRow, authors []models.AuthorID) *models.Book {
	return models.RestoreBook(models.BookID(row.ID), row.Title, row.Price, authors, models.BookStatus(row.Status))
}
