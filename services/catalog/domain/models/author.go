package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ghuser/bookcatalog/services/catalog/domain"
)

// DateLayout is the wire and storage layout of calendar dates.
const DateLayout = "2006-01-02"

// Author is an aggregate root. Its book set is a cache of the book_authors
// association; registration services keep it consistent with books.
type Author struct {
	id        AuthorID
	name      string
	birthDate time.Time
	bookIDs   idSet[BookID]
}

// AuthorOption customises NewAuthor.
type AuthorOption func(*authorOptions)

type authorOptions struct {
	id    *AuthorID
	clock clockwork.Clock
}

// WithAuthorID uses id instead of a random identifier.
func WithAuthorID(id AuthorID) AuthorOption {
	return func(o *authorOptions) { o.id = &id }
}

// WithClock sets the clock that defines "today" for birth date validation.
func WithClock(c clockwork.Clock) AuthorOption {
	return func(o *authorOptions) { o.clock = c }
}

// NewAuthor constructs a valid Author. The name must not be blank and the
// birth date must be strictly before today according to the clock.
func NewAuthor(name string, birthDate time.Time, bookIDs []BookID, opts ...AuthorOption) (*Author, error) {
	o := authorOptions{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := validateName(name); err != nil {
		return nil, err
	}
	date := toDate(birthDate)
	if !date.Before(toDate(o.clock.Now())) {
		return nil, fmt.Errorf("%w: birth date %s must be before today", domain.ErrInvalidArgument, date.Format(DateLayout))
	}

	id := NewAuthorID()
	if o.id != nil {
		id = *o.id
	}

	return &Author{
		id:        id,
		name:      strings.TrimSpace(name),
		birthDate: date,
		bookIDs:   newIDSet(bookIDs),
	}, nil
}

// RestoreAuthor rebuilds an Author from persisted state without re-running
// the clock-dependent checks.
func RestoreAuthor(id AuthorID, name string, birthDate time.Time, bookIDs []BookID) *Author {
	return &Author{id: id, name: name, birthDate: toDate(birthDate), bookIDs: newIDSet(bookIDs)}
}

func (a *Author) ID() AuthorID         { return a.id }
func (a *Author) Name() string         { return a.name }
func (a *Author) BirthDate() time.Time { return a.birthDate }

// BookIDs returns a snapshot of the author's books.
func (a *Author) BookIDs() []BookID { return a.bookIDs.snapshot() }

// HasBook reports whether the author lists the book.
func (a *Author) HasBook(id BookID) bool { return a.bookIDs.has(id) }

// Rename replaces the name. The name is left unchanged on error.
func (a *Author) Rename(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	a.name = strings.TrimSpace(name)
	return nil
}

// AddBook is idempotent.
func (a *Author) AddBook(id BookID) { a.bookIDs[id] = struct{}{} }

// RemoveBook is a no-op when the book is absent.
func (a *Author) RemoveBook(id BookID) { delete(a.bookIDs, id) }

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: author name must not be blank", domain.ErrInvalidArgument)
	}
	return nil
}

// toDate truncates t to its calendar date at UTC midnight.
func toDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
