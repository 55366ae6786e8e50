package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/bookcatalog/pkg/errhttp"
	"github.com/ghuser/bookcatalog/pkg/httpx"
	pkgvalidator "github.com/ghuser/bookcatalog/pkg/validator"
	appsvcs "github.com/ghuser/bookcatalog/services/catalog/application/services"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
)

// PutBookHandler handles PUT /books/{id} requests.
type PutBookHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

func NewPutBookHandler(svc *appsvcs.Services, errs *errhttp.Writer) *PutBookHandler {
	return &PutBookHandler{svc: svc, errs: errs}
}

// Execute replaces a book's fields, authors and status.
//
//	@Summary		Update book
//	@Description	Replaces title, price, authors and status. A published book cannot be unpublished.
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Book ID"	format(uuid)
//	@Param			request	body		UpdateBookRequest	true	"Book update request"
//	@Success		200		{object}	BookResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/books/{id} [put]
func (h *PutBookHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseBookID(chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	req, ok := pkgvalidator.ValidateRequest[UpdateBookRequest](w, r)
	if !ok {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	book, err := h.svc.Book.Update(r.Context(), id, in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, toBookResponse(book))
}
