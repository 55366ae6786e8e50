package services

import (
	"context"
	"fmt"

	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
	"github.com/ghuser/bookcatalog/services/catalog/domain/repositories"
)

// BookQueryService answers read-only questions about books.
type BookQueryService struct {
	books repositories.BookQuerier
}

func NewBookQueryService(books repositories.BookQuerier) *BookQueryService {
	return &BookQueryService{books: books}
}

// FindByAuthor returns the books listing the author; never nil.
func (s *BookQueryService) FindByAuthor(ctx context.Context, authorID models.AuthorID) ([]*models.Book, error) {
	books, err := s.books.FindByAuthorID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("find books by author %s: %w", authorID, err)
	}
	if books == nil {
		books = []*models.Book{}
	}
	return books, nil
}
