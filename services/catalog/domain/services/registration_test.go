package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/bookcatalog/services/catalog/domain"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
	"github.com/ghuser/bookcatalog/services/catalog/domain/services"
	"github.com/ghuser/bookcatalog/services/catalog/infrastructure/persistence/memory"
)

type fixture struct {
	store   *memory.Store
	authors *memory.AuthorRepository
	books   *memory.BookRepository
	authorS *services.AuthorRegistrationService
	bookS   *services.BookRegistrationService
	query   *services.BookQueryService
	clock   clockwork.Clock
}

func newFixture() *fixture {
	store := memory.NewStore()
	authors := memory.NewAuthorRepository(store)
	books := memory.NewBookRepository(store)
	return &fixture{
		store:   store,
		authors: authors,
		books:   books,
		authorS: services.NewAuthorRegistrationService(authors, books),
		bookS:   services.NewBookRegistrationService(books, authors),
		query:   services.NewBookQueryService(books),
		clock:   clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)),
	}
}

func (f *fixture) registerAuthor(t *testing.T, name string, books ...models.BookID) *models.Author {
	t.Helper()
	a, err := f.authorS.Register(context.Background(), services.RegisterAuthorCommand{
		Name:      name,
		BirthDate: time.Date(1980, time.January, 2, 0, 0, 0, 0, time.UTC),
		BookIDs:   books,
		Clock:     f.clock,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) registerBook(t *testing.T, title string, authors ...models.AuthorID) *models.Book {
	t.Helper()
	b, err := f.bookS.Register(context.Background(), services.RegisterBookCommand{
		Title:     title,
		Price:     decimal.RequireFromString("10.00"),
		AuthorIDs: authors,
	})
	require.NoError(t, err)
	return b
}

func TestAuthorRegistration_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("author without books", func(t *testing.T) {
		f := newFixture()
		a, err := f.authorS.Register(ctx, services.RegisterAuthorCommand{
			Name:      "Jane Doe",
			BirthDate: time.Date(1980, time.January, 2, 0, 0, 0, 0, time.UTC),
			Clock:     f.clock,
		})
		require.NoError(t, err)
		assert.Empty(t, a.BookIDs())

		stored, err := f.authors.FindByID(ctx, a.ID())
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", stored.Name())
		assert.Empty(t, stored.BookIDs())
	})

	t.Run("uses supplied id", func(t *testing.T) {
		f := newFixture()
		id := models.NewAuthorID()
		a, err := f.authorS.Register(ctx, services.RegisterAuthorCommand{
			Name:      "Jane Doe",
			BirthDate: time.Date(1980, time.January, 2, 0, 0, 0, 0, time.UTC),
			AuthorID:  &id,
			Clock:     f.clock,
		})
		require.NoError(t, err)
		assert.Equal(t, id, a.ID())
	})

	t.Run("adds author to referenced books", func(t *testing.T) {
		f := newFixture()
		first := f.registerAuthor(t, "First Author")
		book := f.registerBook(t, "Go in Action", first.ID())

		second := f.registerAuthor(t, "Second Author", book.ID())

		stored, err := f.books.FindByID(ctx, book.ID())
		require.NoError(t, err)
		assert.ElementsMatch(t, []models.AuthorID{first.ID(), second.ID()}, stored.AuthorIDs())

		reloaded, err := f.authors.FindByID(ctx, second.ID())
		require.NoError(t, err)
		assert.Equal(t, []models.BookID{book.ID()}, reloaded.BookIDs())
	})

	t.Run("missing books are reported and nothing is saved", func(t *testing.T) {
		f := newFixture()
		owner := f.registerAuthor(t, "Owner")
		b1 := f.registerBook(t, "Existing", owner.ID())
		b2 := models.NewBookID()
		id := models.NewAuthorID()

		_, err := f.authorS.Register(ctx, services.RegisterAuthorCommand{
			Name:      "Jane Doe",
			BirthDate: time.Date(1980, time.January, 2, 0, 0, 0, 0, time.UTC),
			BookIDs:   []models.BookID{b1.ID(), b2, b2},
			AuthorID:  &id,
			Clock:     f.clock,
		})

		var missing *domain.MissingBooksError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []uuid.UUID{b2.UUID()}, missing.IDs)

		_, err = f.authors.FindByID(ctx, id)
		assert.ErrorIs(t, err, domain.ErrAuthorNotFound)

		stored, err := f.books.FindByID(ctx, b1.ID())
		require.NoError(t, err)
		assert.Equal(t, []models.AuthorID{owner.ID()}, stored.AuthorIDs())
	})

	t.Run("invalid birth date", func(t *testing.T) {
		f := newFixture()
		_, err := f.authorS.Register(ctx, services.RegisterAuthorCommand{
			Name:      "Jane Doe",
			BirthDate: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
			Clock:     f.clock,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("registering twice does not duplicate associations", func(t *testing.T) {
		f := newFixture()
		owner := f.registerAuthor(t, "Owner")
		book := f.registerBook(t, "Go in Action", owner.ID())
		id := models.NewAuthorID()

		for range 2 {
			_, err := f.authorS.Register(ctx, services.RegisterAuthorCommand{
				Name:      "Jane Doe",
				BirthDate: time.Date(1980, time.January, 2, 0, 0, 0, 0, time.UTC),
				BookIDs:   []models.BookID{book.ID()},
				AuthorID:  &id,
				Clock:     f.clock,
			})
			require.NoError(t, err)
		}

		stored, err := f.books.FindByID(ctx, book.ID())
		require.NoError(t, err)
		assert.Len(t, stored.AuthorIDs(), 2)

		byAuthor, err := f.query.FindByAuthor(ctx, id)
		require.NoError(t, err)
		assert.Len(t, byAuthor, 1)
	})
}

func TestAuthorRegistration_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("scenario: author joins and leaves books", func(t *testing.T) {
		f := newFixture()
		owner := f.registerAuthor(t, "Owner")
		b1 := f.registerBook(t, "First", owner.ID())
		b2 := f.registerBook(t, "Second", owner.ID())
		jane := f.registerAuthor(t, "Jane Doe", b1.ID())

		updated, err := f.authorS.Update(ctx, services.UpdateAuthorCommand{
			AuthorID:  jane.ID(),
			Name:      " Jane Smith ",
			BirthDate: time.Date(1981, time.March, 4, 0, 0, 0, 0, time.UTC),
			BookIDs:   []models.BookID{b2.ID()},
			Clock:     f.clock,
		})
		require.NoError(t, err)
		assert.Equal(t, "Jane Smith", updated.Name())

		first, err := f.books.FindByID(ctx, b1.ID())
		require.NoError(t, err)
		assert.Equal(t, []models.AuthorID{owner.ID()}, first.AuthorIDs())

		second, err := f.books.FindByID(ctx, b2.ID())
		require.NoError(t, err)
		assert.ElementsMatch(t, []models.AuthorID{owner.ID(), jane.ID()}, second.AuthorIDs())

		stored, err := f.authors.FindByID(ctx, jane.ID())
		require.NoError(t, err)
		assert.Equal(t, []models.BookID{b2.ID()}, stored.BookIDs())
		assert.Equal(t, time.Date(1981, time.March, 4, 0, 0, 0, 0, time.UTC), stored.BirthDate())
	})

	t.Run("unknown author", func(t *testing.T) {
		f := newFixture()
		_, err := f.authorS.Update(ctx, services.UpdateAuthorCommand{
			AuthorID:  models.NewAuthorID(),
			Name:      "Jane",
			BirthDate: time.Date(1980, time.January, 2, 0, 0, 0, 0, time.UTC),
			Clock:     f.clock,
		})
		assert.ErrorIs(t, err, domain.ErrAuthorNotFound)
	})

	t.Run("missing books checked before the author", func(t *testing.T) {
		f := newFixture()
		missing := models.NewBookID()
		_, err := f.authorS.Update(ctx, services.UpdateAuthorCommand{
			AuthorID:  models.NewAuthorID(),
			Name:      "Jane",
			BirthDate: time.Date(1980, time.January, 2, 0, 0, 0, 0, time.UTC),
			BookIDs:   []models.BookID{missing},
			Clock:     f.clock,
		})
		assert.ErrorIs(t, err, domain.ErrMissingBooks)
		assert.Equal(t, []uuid.UUID{missing.UUID()}, domain.MissingIDs(err))
	})

	t.Run("removing the last author of a book fails", func(t *testing.T) {
		f := newFixture()
		jane := f.registerAuthor(t, "Jane Doe")
		book := f.registerBook(t, "Solo", jane.ID())

		err := f.store.WithTx(ctx, func(ctx context.Context) error {
			_, err := f.authorS.Update(ctx, services.UpdateAuthorCommand{
				AuthorID:  jane.ID(),
				Name:      "Renamed",
				BirthDate: time.Date(1980, time.January, 2, 0, 0, 0, 0, time.UTC),
				Clock:     f.clock,
			})
			return err
		})
		require.ErrorIs(t, err, domain.ErrInvariantViolation)

		stored, err := f.authors.FindByID(ctx, jane.ID())
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", stored.Name(), "unit of work must roll back the author rename")
		assert.Equal(t, []models.BookID{book.ID()}, stored.BookIDs())
	})
}

func TestBookRegistration(t *testing.T) {
	ctx := context.Background()

	t.Run("scenario: register Go in Action", func(t *testing.T) {
		f := newFixture()
		a := f.registerAuthor(t, "Jane Doe")
		id := models.NewBookID()

		book, err := f.bookS.Register(ctx, services.RegisterBookCommand{
			Title:     "Go in Action",
			Price:     decimal.RequireFromString("29.99"),
			AuthorIDs: []models.AuthorID{a.ID()},
			BookID:    &id,
		})
		require.NoError(t, err)
		assert.Equal(t, id, book.ID())
		assert.Equal(t, models.StatusUnpublished, book.Status())

		byAuthor, err := f.query.FindByAuthor(ctx, a.ID())
		require.NoError(t, err)
		require.Len(t, byAuthor, 1)
		assert.Equal(t, "Go in Action", byAuthor[0].Title())

		author, err := f.authors.FindByID(ctx, a.ID())
		require.NoError(t, err)
		assert.Equal(t, []models.BookID{id}, author.BookIDs())
	})

	t.Run("missing authors", func(t *testing.T) {
		f := newFixture()
		a := f.registerAuthor(t, "Jane Doe")
		ghost := models.NewAuthorID()

		_, err := f.bookS.Register(ctx, services.RegisterBookCommand{
			Title:     "Go in Action",
			Price:     decimal.RequireFromString("29.99"),
			AuthorIDs: []models.AuthorID{a.ID(), ghost},
		})
		var missing *domain.MissingAuthorsError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []uuid.UUID{ghost.UUID()}, missing.IDs)
	})

	t.Run("no authors", func(t *testing.T) {
		f := newFixture()
		_, err := f.bookS.Register(ctx, services.RegisterBookCommand{Title: "T", Price: decimal.Zero})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("scenario: swap authors", func(t *testing.T) {
		f := newFixture()
		a := f.registerAuthor(t, "Author A")
		b := f.registerAuthor(t, "Author B")
		book := f.registerBook(t, "Swapped", a.ID())

		updated, err := f.bookS.Update(ctx, services.UpdateBookCommand{
			BookID:    book.ID(),
			Title:     "Swapped",
			Price:     decimal.RequireFromString("12.50"),
			AuthorIDs: []models.AuthorID{b.ID()},
			Status:    models.StatusPublished,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPublished, updated.Status())

		byA, err := f.query.FindByAuthor(ctx, a.ID())
		require.NoError(t, err)
		assert.Empty(t, byA)

		byB, err := f.query.FindByAuthor(ctx, b.ID())
		require.NoError(t, err)
		require.Len(t, byB, 1)
		assert.Equal(t, book.ID(), byB[0].ID())
	})

	t.Run("scenario: published book cannot be unpublished", func(t *testing.T) {
		f := newFixture()
		a := f.registerAuthor(t, "Jane Doe")
		published := models.StatusPublished
		book, err := f.bookS.Register(ctx, services.RegisterBookCommand{
			Title:     "Released",
			Price:     decimal.RequireFromString("20"),
			AuthorIDs: []models.AuthorID{a.ID()},
			Status:    published,
		})
		require.NoError(t, err)

		err = f.store.WithTx(ctx, func(ctx context.Context) error {
			_, err := f.bookS.Update(ctx, services.UpdateBookCommand{
				BookID:    book.ID(),
				Title:     "Renamed",
				Price:     decimal.RequireFromString("20"),
				AuthorIDs: []models.AuthorID{a.ID()},
				Status:    models.StatusUnpublished,
			})
			return err
		})
		require.ErrorIs(t, err, domain.ErrInvariantViolation)

		stored, err := f.books.FindByID(ctx, book.ID())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPublished, stored.Status())
		assert.Equal(t, "Released", stored.Title())
	})

	t.Run("update unknown book", func(t *testing.T) {
		f := newFixture()
		a := f.registerAuthor(t, "Jane Doe")
		_, err := f.bookS.Update(ctx, services.UpdateBookCommand{
			BookID:    models.NewBookID(),
			Title:     "T",
			Price:     decimal.Zero,
			AuthorIDs: []models.AuthorID{a.ID()},
			Status:    models.StatusUnpublished,
		})
		assert.ErrorIs(t, err, domain.ErrBookNotFound)
	})
}

type failingBooks struct {
	*memory.BookRepository
	err error
}

func (f failingBooks) FindByID(context.Context, models.BookID) (*models.Book, error) {
	return nil, f.err
}

func (f failingBooks) FindByAuthorID(context.Context, models.AuthorID) ([]*models.Book, error) {
	return nil, f.err
}

func TestRegistration_PropagatesStorageErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	boom := errors.New("connection reset")
	books := failingBooks{BookRepository: memory.NewBookRepository(store), err: boom}

	svc := services.NewAuthorRegistrationService(memory.NewAuthorRepository(store), books)
	_, err := svc.Register(ctx, services.RegisterAuthorCommand{
		Name:      "Jane",
		BirthDate: time.Date(1980, time.January, 2, 0, 0, 0, 0, time.UTC),
		BookIDs:   []models.BookID{models.NewBookID()},
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrMissingBooks)

	_, err = services.NewBookQueryService(books).FindByAuthor(ctx, models.NewAuthorID())
	assert.ErrorIs(t, err, boom)
}

func TestBookQuery_EmptyResultIsNotNil(t *testing.T) {
	f := newFixture()
	books, err := f.query.FindByAuthor(context.Background(), models.NewAuthorID())
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}
