package handlers

import (
	"fmt"
	"net/http"

	"github.com/ghuser/bookcatalog/pkg/errhttp"
	"github.com/ghuser/bookcatalog/pkg/httpx"
	appsvcs "github.com/ghuser/bookcatalog/services/catalog/application/services"
	"github.com/ghuser/bookcatalog/services/catalog/domain"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
)

// ListBooksHandler handles GET /books?authorId= requests.
type ListBooksHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

func NewListBooksHandler(svc *appsvcs.Services, errs *errhttp.Writer) *ListBooksHandler {
	return &ListBooksHandler{svc: svc, errs: errs}
}

// Execute lists the books of one author, ordered by title.
//
//	@Summary	List books by author
//	@Tags		books
//	@Produce	json
//	@Param		authorId	query		string	true	"Author ID"	format(uuid)
//	@Success	200			{array}		BookResponse
//	@Failure	400			{object}	ErrorResponse
//	@Router		/books [get]
func (h *ListBooksHandler) Execute(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("authorId")
	if raw == "" {
		h.errs.Write(w, r, fmt.Errorf("%w: authorId query parameter is required", domain.ErrInvalidArgument))
		return
	}
	authorID, err := models.ParseAuthorID(raw)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	books, err := h.svc.Book.ListByAuthor(r.Context(), authorID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	resp := make([]BookResponse, len(books))
	for i, b := range books {
		resp[i] = toBookResponse(b)
	}
	httpx.JSON(w, http.StatusOK, resp)
}
