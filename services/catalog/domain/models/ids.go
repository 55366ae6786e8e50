package models

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/ghuser/bookcatalog/services/catalog/domain"
)

// AuthorID identifies an Author. Comparable, usable as a map key.
type AuthorID uuid.UUID

// BookID identifies a Book. Comparable, usable as a map key.
type BookID uuid.UUID

// NewAuthorID returns a random AuthorID.
func NewAuthorID() AuthorID { return AuthorID(uuid.New()) }

// NewBookID returns a random BookID.
func NewBookID() BookID { return BookID(uuid.New()) }

// ParseAuthorID parses the canonical textual form of an AuthorID.
func ParseAuthorID(s string) (AuthorID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AuthorID{}, fmt.Errorf("%w: author id %q: %w", domain.ErrInvalidArgument, s, err)
	}
	return AuthorID(id), nil
}

// ParseBookID parses the canonical textual form of a BookID.
func ParseBookID(s string) (BookID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return BookID{}, fmt.Errorf("%w: book id %q: %w", domain.ErrInvalidArgument, s, err)
	}
	return BookID(id), nil
}

func (id AuthorID) UUID() uuid.UUID { return uuid.UUID(id) }
func (id AuthorID) String() string  { return uuid.UUID(id).String() }
func (id BookID) UUID() uuid.UUID   { return uuid.UUID(id) }
func (id BookID) String() string    { return uuid.UUID(id).String() }

// AuthorUUIDs converts ids to their raw UUID values, preserving order.
func AuthorUUIDs(ids []AuthorID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		out[i] = id.UUID()
	}
	return out
}

// BookUUIDs converts ids to their raw UUID values, preserving order.
func BookUUIDs(ids []BookID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		out[i] = id.UUID()
	}
	return out
}

// idSet is an unordered set of identifiers with deterministic snapshots.
type idSet[T interface {
	comparable
	fmt.Stringer
}] map[T]struct{}

func newIDSet[T interface {
	comparable
	fmt.Stringer
}](ids []T) idSet[T] {
	s := make(idSet[T], len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s idSet[T]) has(id T) bool {
	_, ok := s[id]
	return ok
}

// snapshot returns a copy of the set ordered by textual form.
func (s idSet[T]) snapshot() []T {
	out := make([]T, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b T) int {
		switch as, bs := a.String(), b.String(); {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	})
	return out
}
