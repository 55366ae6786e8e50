package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/bookcatalog/pkg/errhttp"
	"github.com/ghuser/bookcatalog/pkg/httpx"
	appsvcs "github.com/ghuser/bookcatalog/services/catalog/application/services"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
)

// GetBookHandler handles GET /books/{id} requests.
type GetBookHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

func NewGetBookHandler(svc *appsvcs.Services, errs *errhttp.Writer) *GetBookHandler {
	return &GetBookHandler{svc: svc, errs: errs}
}

// Execute returns one book.
//
//	@Summary	Get book
//	@Tags		books
//	@Produce	json
//	@Param		id	path		string	true	"Book ID"	format(uuid)
//	@Success	200	{object}	BookResponse
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/books/{id} [get]
func (h *GetBookHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseBookID(chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	book, err := h.svc.Book.Get(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, toBookResponse(book))
}
