// Package postgres implements the catalog repositories on PostgreSQL.
// Queries are built with squirrel and scanned with scany; every statement runs
// on the transaction carried by the context when there is one.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/bookcatalog/services/catalog/domain"
)

const (
	tableAuthors     = "authors"
	tableBooks       = "books"
	tableBookAuthors = "book_authors"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type linkRow struct {
	BookID   uuid.UUID `db:"book_id"`
	AuthorID uuid.UUID `db:"author_id"`
}

// mapError converts driver errors to domain errors. Context errors pass through.
func mapError(err error, entity string, id fmt.Stringer) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s %s references a missing row: %s", domain.ErrInvalidArgument, entity, id, pgErr.Detail)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s %s violates %s", domain.ErrInvalidArgument, entity, id, pgErr.ConstraintName)
		case "22003": // numeric_value_out_of_range
			return fmt.Errorf("%w: %s %s has a value out of range", domain.ErrInvalidArgument, entity, id)
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s %s already exists", domain.ErrInvariantViolation, entity, id)
		}
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}

func exec(ctx context.Context, q interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = q.ExecContext(ctx, query, args...)
	return err
}
