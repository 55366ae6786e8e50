package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors for the catalog domain. Use errors.Is() to check these.
var (
	// ErrInvalidArgument indicates an input violates a field-level rule
	// (blank name or title, negative price, empty author set, future birth date).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvariantViolation indicates a requested transition would break an
	// aggregate invariant, e.g. removing the last author of a book.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrAuthorNotFound indicates the requested author does not exist.
	ErrAuthorNotFound = errors.New("author not found")

	// ErrBookNotFound indicates the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrMissingBooks indicates referenced books do not exist. Concrete errors
	// are *MissingBooksError values carrying the offending ids.
	ErrMissingBooks = errors.New("missing books")

	// ErrMissingAuthors indicates referenced authors do not exist. Concrete errors
	// are *MissingAuthorsError values carrying the offending ids.
	ErrMissingAuthors = errors.New("missing authors")
)

// MissingBooksError lists the requested book ids that were not found.
type MissingBooksError struct {
	IDs []uuid.UUID
}

func (e *MissingBooksError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingBooks, joinIDs(e.IDs))
}

// Is makes errors.Is(err, ErrMissingBooks) match.
func (e *MissingBooksError) Is(target error) bool {
	return target == ErrMissingBooks
}

// MissingAuthorsError lists the requested author ids that were not found.
type MissingAuthorsError struct {
	IDs []uuid.UUID
}

func (e *MissingAuthorsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingAuthors, joinIDs(e.IDs))
}

// Is makes errors.Is(err, ErrMissingAuthors) match.
func (e *MissingAuthorsError) Is(target error) bool {
	return target == ErrMissingAuthors
}

// MissingIDs extracts the offending ids from a missing-reference error,
// or returns nil if err is not one.
func MissingIDs(err error) []uuid.UUID {
	var books *MissingBooksError
	if errors.As(err, &books) {
		return books.IDs
	}
	var authors *MissingAuthorsError
	if errors.As(err, &authors) {
		return authors.IDs
	}
	return nil
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
