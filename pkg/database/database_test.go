package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/bookcatalog/pkg/database"
	"github.com/ghuser/bookcatalog/pkg/database/dbtest"
)

func countAuthors(t *testing.T, db *database.Database, id uuid.UUID) int {
	t.Helper()
	var n int
	err := db.DB().QueryRowContext(context.Background(), "SELECT count(*) FROM authors WHERE id = $1", id).Scan(&n)
	require.NoError(t, err)
	return n
}

func insertAuthor(ctx context.Context, db *database.Database, id uuid.UUID) error {
	_, err := db.Conn(ctx).ExecContext(ctx,
		"INSERT INTO authors (id, name, birth_date) VALUES ($1, 'Jane Doe', '1980-01-02')", id)
	return err
}

func TestWithTx(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		id := uuid.New()
		err := db.WithTx(ctx, func(ctx context.Context) error {
			_, ok := database.TxFromContext(ctx)
			assert.True(t, ok)
			return insertAuthor(ctx, db, id)
		})
		require.NoError(t, err)
		assert.Equal(t, 1, countAuthors(t, db, id))
	})

	t.Run("rolls back on error, including nested calls", func(t *testing.T) {
		id := uuid.New()
		boom := errors.New("boom")
		err := db.WithTx(ctx, func(ctx context.Context) error {
			if err := insertAuthor(ctx, db, id); err != nil {
				return err
			}
			return db.WithTx(ctx, func(context.Context) error { return boom })
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, countAuthors(t, db, id))
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		id := uuid.New()
		assert.Panics(t, func() {
			_ = db.WithTx(ctx, func(ctx context.Context) error {
				if err := insertAuthor(ctx, db, id); err != nil {
					return err
				}
				panic("boom")
			})
		})
		assert.Equal(t, 0, countAuthors(t, db, id))
	})
}

func TestTxFromContext_Empty(t *testing.T) {
	_, ok := database.TxFromContext(context.Background())
	assert.False(t, ok)
}
