package events

import (
	"time"

	"github.com/google/uuid"
)

// Watermill topics for the catalog bounded context.
const (
	TopicAuthorRegistered = "catalog.author.registered"
	TopicAuthorUpdated    = "catalog.author.updated"
	TopicBookRegistered   = "catalog.book.registered"
	TopicBookUpdated      = "catalog.book.updated"
)

// Topics lists every catalog topic, in publish order of the API.
var Topics = []string{TopicAuthorRegistered, TopicAuthorUpdated, TopicBookRegistered, TopicBookUpdated}

// AuthorEvent is published after an author is registered or updated.
// BookIDs is the author's book set after the operation.
type AuthorEvent struct {
	EventID    uuid.UUID   `json:"event_id"` // Unique publish-time identifier for deduplication
	Version    int         `json:"version"`  // Schema version; increment on breaking changes
	AuthorID   uuid.UUID   `json:"author_id"`
	Name       string      `json:"name"`
	BirthDate  string      `json:"birth_date"`
	BookIDs    []uuid.UUID `json:"book_ids"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// BookEvent is published after a book is registered or updated.
type BookEvent struct {
	EventID    uuid.UUID   `json:"event_id"`
	Version    int         `json:"version"`
	BookID     uuid.UUID   `json:"book_id"`
	Title      string      `json:"title"`
	Price      string      `json:"price"`
	Status     string      `json:"status"`
	AuthorIDs  []uuid.UUID `json:"author_ids"`
	OccurredAt time.Time   `json:"occurred_at"`
}
