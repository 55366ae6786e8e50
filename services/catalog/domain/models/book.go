package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ghuser/bookcatalog/services/catalog/domain"
)

// BookStatus is the publication state of a book.
type BookStatus string

const (
	StatusUnpublished BookStatus = "UNPUBLISHED"
	StatusPublished   BookStatus = "PUBLISHED"
)

// ParseBookStatus validates s as a BookStatus.
func ParseBookStatus(s string) (BookStatus, error) {
	switch st := BookStatus(s); st {
	case StatusUnpublished, StatusPublished:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown book status %q", domain.ErrInvalidArgument, s)
	}
}

func (s BookStatus) String() string { return string(s) }

// Book is an aggregate root. It always has at least one author and a
// published book can never become unpublished again.
type Book struct {
	id        BookID
	title     string
	price     decimal.Decimal
	authorIDs idSet[AuthorID]
	status    BookStatus
}

// BookOption customises NewBook.
type BookOption func(*Book)

// WithBookID uses id instead of a random identifier.
func WithBookID(id BookID) BookOption {
	return func(b *Book) { b.id = id }
}

// WithStatus sets the initial status. Defaults to StatusUnpublished.
func WithStatus(s BookStatus) BookOption {
	return func(b *Book) { b.status = s }
}

// NewBook constructs a valid Book.
func NewBook(title string, price decimal.Decimal, authorIDs []AuthorID, opts ...BookOption) (*Book, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	if err := validateAuthors(authorIDs); err != nil {
		return nil, err
	}

	b := &Book{
		id:        NewBookID(),
		title:     strings.TrimSpace(title),
		price:     price,
		authorIDs: newIDSet(authorIDs),
		status:    StatusUnpublished,
	}
	for _, opt := range opts {
		opt(b)
	}
	if _, err := ParseBookStatus(string(b.status)); err != nil {
		return nil, err
	}
	return b, nil
}

// RestoreBook rebuilds a Book from persisted state.
func RestoreBook(id BookID, title string, price decimal.Decimal, authorIDs []AuthorID, status BookStatus) *Book {
	return &Book{id: id, title: title, price: price, authorIDs: newIDSet(authorIDs), status: status}
}

func (b *Book) ID() BookID             { return b.id }
func (b *Book) Title() string          { return b.title }
func (b *Book) Price() decimal.Decimal { return b.price }
func (b *Book) Status() BookStatus     { return b.status }

// AuthorIDs returns a snapshot of the book's authors.
func (b *Book) AuthorIDs() []AuthorID { return b.authorIDs.snapshot() }

// HasAuthor reports whether the book lists the author.
func (b *Book) HasAuthor(id AuthorID) bool { return b.authorIDs.has(id) }

func (b *Book) UpdateTitle(title string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	b.title = strings.TrimSpace(title)
	return nil
}

func (b *Book) UpdatePrice(price decimal.Decimal) error {
	if err := validatePrice(price); err != nil {
		return err
	}
	b.price = price
	return nil
}

// ReplaceAuthors swaps the whole author set.
func (b *Book) ReplaceAuthors(ids []AuthorID) error {
	if err := validateAuthors(ids); err != nil {
		return err
	}
	b.authorIDs = newIDSet(ids)
	return nil
}

// AddAuthor is idempotent.
func (b *Book) AddAuthor(id AuthorID) { b.authorIDs[id] = struct{}{} }

// RemoveAuthor is a no-op when the author is absent and fails when the
// author is the only one left.
func (b *Book) RemoveAuthor(id AuthorID) error {
	if !b.authorIDs.has(id) {
		return nil
	}
	if len(b.authorIDs) == 1 {
		return fmt.Errorf("%w: book %s must keep at least one author", domain.ErrInvariantViolation, b.id)
	}
	delete(b.authorIDs, id)
	return nil
}

// ChangeStatus moves the book to s. PUBLISHED to UNPUBLISHED is rejected.
func (b *Book) ChangeStatus(s BookStatus) error {
	if _, err := ParseBookStatus(string(s)); err != nil {
		return err
	}
	if b.status == StatusPublished && s == StatusUnpublished {
		return fmt.Errorf("%w: published book %s cannot be unpublished", domain.ErrInvariantViolation, b.id)
	}
	b.status = s
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: book title must not be blank", domain.ErrInvalidArgument)
	}
	return nil
}

// Prices are stored as NUMERIC(12, 2).
const priceScale = 2

var maxPrice = decimal.New(1, 10)

func validatePrice(price decimal.Decimal) error {
	switch {
	case price.IsNegative():
		return fmt.Errorf("%w: book price must not be negative", domain.ErrInvalidArgument)
	case price.Exponent() < -priceScale && !price.Equal(price.Truncate(priceScale)):
		return fmt.Errorf("%w: book price %s has more than %d decimal places", domain.ErrInvalidArgument, price, priceScale)
	case price.GreaterThanOrEqual(maxPrice):
		return fmt.Errorf("%w: book price must be less than %s", domain.ErrInvalidArgument, maxPrice)
	}
	return nil
}

func validateAuthors(ids []AuthorID) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: book must have at least one author", domain.ErrInvalidArgument)
	}
	return nil
}
