package handlers

import (
	"net/http"

	"github.com/ghuser/bookcatalog/pkg/errhttp"
	"github.com/ghuser/bookcatalog/pkg/httpx"
	pkgvalidator "github.com/ghuser/bookcatalog/pkg/validator"
	appsvcs "github.com/ghuser/bookcatalog/services/catalog/application/services"
)

// PostBookHandler handles POST /books requests.
type PostBookHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

// NewPostBookHandler returns a PostBookHandler backed by the given services.
func NewPostBookHandler(svc *appsvcs.Services, errs *errhttp.Writer) *PostBookHandler {
	return &PostBookHandler{svc: svc, errs: errs}
}

// Execute registers a new book.
//
//	@Summary		Register book
//	@Description	Registers a book. Every referenced author must exist. Status defaults to UNPUBLISHED.
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateBookRequest	true	"Book registration request"
//	@Success		201		{object}	BookResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/books [post]
func (h *PostBookHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[CreateBookRequest](w, r)
	if !ok {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	book, err := h.svc.Book.Register(r.Context(), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, toBookResponse(book))
}
