// Package memory implements the catalog repositories on in-process maps.
// It mirrors the relational layout (authors, books, book_authors) so both
// adapters share the same association semantics.
//
// Isolation is read committed: a unit of work writes to a private copy of the
// tables that becomes visible to other readers only when the unit succeeds.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
)

type authorRow struct {
	name      string
	birthDate time.Time
}

type bookRow struct {
	title  string
	price  decimal.Decimal
	status models.BookStatus
}

type link struct {
	book   models.BookID
	author models.AuthorID
}

type tables struct {
	authors map[models.AuthorID]authorRow
	books   map[models.BookID]bookRow
	links   map[link]struct{}
}

func (t *tables) clone() *tables {
	return &tables{
		authors: maps.Clone(t.authors),
		books:   maps.Clone(t.books),
		links:   maps.Clone(t.links),
	}
}

type txKey struct{}

// Store holds every table. WithTx serialises units of work; a write outside
// a unit of work is its own single-statement unit.
type Store struct {
	txMu sync.Mutex

	mu        sync.RWMutex
	committed *tables
}

func NewStore() *Store {
	return &Store{committed: &tables{
		authors: make(map[models.AuthorID]authorRow),
		books:   make(map[models.BookID]bookRow),
		links:   make(map[link]struct{}),
	}}
}

// WithTx runs fn as one unit of work. Nested calls join the outer unit.
// The working copy replaces the committed tables only when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*tables); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, work)); err != nil {
		return err
	}

	s.mu.Lock()
	s.committed = work
	s.mu.Unlock()
	return nil
}

// read calls fn with the tables visible to ctx.
func (s *Store) read(ctx context.Context, fn func(t *tables)) {
	if work, ok := ctx.Value(txKey{}).(*tables); ok {
		fn(work)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.committed)
}

// write calls fn with the working copy of the unit of work in ctx, or runs it
// as its own unit when there is none.
func (s *Store) write(ctx context.Context, fn func(t *tables) error) error {
	if work, ok := ctx.Value(txKey{}).(*tables); ok {
		return fn(work)
	}
	return s.WithTx(ctx, func(ctx context.Context) error {
		return fn(ctx.Value(txKey{}).(*tables))
	})
}

// linkCount reports the number of committed association rows. Used by tests.
func (s *Store) linkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.committed.links)
}
