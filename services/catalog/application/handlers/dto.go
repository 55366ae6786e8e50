package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appsvcs "github.com/ghuser/bookcatalog/services/catalog/application/services"
	"github.com/ghuser/bookcatalog/services/catalog/domain"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
)

// AuthorRequest is the request body for POST /authors and PUT /authors/{id}.
type AuthorRequest struct {
	Name      string   `json:"name" validate:"required,max=255" example:"Jane Doe"`
	BirthDate string   `json:"birthDate" validate:"required,datetime=2006-01-02" example:"1980-01-01"`
	BookIDs   []string `json:"bookIds" validate:"omitempty,dive,uuid" example:"123e4567-e89b-12d3-a456-426614174000"`
} // @name AuthorRequest

// AuthorResponse is the serialized Author.
type AuthorResponse struct {
	ID        uuid.UUID   `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name      string      `json:"name" example:"Jane Doe"`
	BirthDate string      `json:"birthDate" example:"1980-01-01"`
	BookIDs   []uuid.UUID `json:"bookIds"`
} // @name AuthorResponse

// CreateBookRequest is the request body for POST /books. Status defaults to UNPUBLISHED.
type CreateBookRequest struct {
	Title     string           `json:"title" validate:"required,max=255" example:"Go in Action"`
	Price     *decimal.Decimal `json:"price" validate:"required" swaggertype:"number" example:"29.99"`
	AuthorIDs []string         `json:"authorIds" validate:"omitempty,dive,uuid"`
	Status    string           `json:"status" validate:"omitempty,oneof=UNPUBLISHED PUBLISHED" example:"UNPUBLISHED"`
} // @name CreateBookRequest

// UpdateBookRequest is the request body for PUT /books/{id}.
type UpdateBookRequest struct {
	Title     string           `json:"title" validate:"required,max=255" example:"Go in Action"`
	Price     *decimal.Decimal `json:"price" validate:"required" swaggertype:"number" example:"29.99"`
	AuthorIDs []string         `json:"authorIds" validate:"omitempty,dive,uuid"`
	Status    string           `json:"status" validate:"required,oneof=UNPUBLISHED PUBLISHED" example:"PUBLISHED"`
} // @name UpdateBookRequest

// BookResponse is the serialized Book.
type BookResponse struct {
	ID        uuid.UUID   `json:"id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Title     string      `json:"title" example:"Go in Action"`
	Price     json.Number `json:"price" swaggertype:"number" example:"29.99"`
	AuthorIDs []uuid.UUID `json:"authorIds"`
	Status    string      `json:"status" example:"UNPUBLISHED"`
} // @name BookResponse

// ErrorResponse is returned on all error responses. MissingIDs is set when
// referenced authors or books do not exist.
type ErrorResponse struct {
	Error      string      `json:"error" example:"missing books: 123e4567-e89b-12d3-a456-426614174000"`
	MissingIDs []uuid.UUID `json:"missingIds,omitempty"`
} // @name ErrorResponse

// ValidationErrorResponse is returned when the request body fails validation.
type ValidationErrorResponse struct {
	Error  string            `json:"error" example:"Validation failed"`
	Fields map[string]string `json:"fields"`
} // @name ValidationErrorResponse

func toAuthorResponse(a *models.Author) AuthorResponse {
	return AuthorResponse{
		ID:        a.ID().UUID(),
		Name:      a.Name(),
		BirthDate: a.BirthDate().Format(models.DateLayout),
		BookIDs:   models.BookUUIDs(a.BookIDs()),
	}
}

func toBookResponse(b *models.Book) BookResponse {
	return BookResponse{
		ID:        b.ID().UUID(),
		Title:     b.Title(),
		Price:     json.Number(b.Price().StringFixed(2)),
		AuthorIDs: models.AuthorUUIDs(b.AuthorIDs()),
		Status:    b.Status().String(),
	}
}

func (r *AuthorRequest) toInput() (appsvcs.AuthorInput, error) {
	birthDate, err := parseBirthDate(r.BirthDate)
	if err != nil {
		return appsvcs.AuthorInput{}, err
	}
	bookIDs, err := parseBookIDs(r.BookIDs)
	if err != nil {
		return appsvcs.AuthorInput{}, err
	}
	return appsvcs.AuthorInput{Name: r.Name, BirthDate: birthDate, BookIDs: bookIDs}, nil
}

func (r *CreateBookRequest) toInput() (appsvcs.BookInput, error) {
	return bookInput(r.Title, r.Price, r.AuthorIDs, r.Status)
}

func (r *UpdateBookRequest) toInput() (appsvcs.BookInput, error) {
	return bookInput(r.Title, r.Price, r.AuthorIDs, r.Status)
}

func bookInput(title string, price *decimal.Decimal, authors []string, status string) (appsvcs.BookInput, error) {
	authorIDs, err := parseAuthorIDs(authors)
	if err != nil {
		return appsvcs.BookInput{}, err
	}
	in := appsvcs.BookInput{Title: title, Price: *price, AuthorIDs: authorIDs}
	if status != "" {
		if in.Status, err = models.ParseBookStatus(status); err != nil {
			return appsvcs.BookInput{}, err
		}
	}
	return in, nil
}

func parseBirthDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: birthDate must be YYYY-MM-DD", domain.ErrInvalidArgument)
	}
	return t, nil
}

func parseBookIDs(ids []string) ([]models.BookID, error) {
	out := make([]models.BookID, 0, len(ids))
	for _, s := range ids {
		id, err := models.ParseBookID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func parseAuthorIDs(ids []string) ([]models.AuthorID, error) {
	out := make([]models.AuthorID, 0, len(ids))
	for _, s := range ids {
		id, err := models.ParseAuthorID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
