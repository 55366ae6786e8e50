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

// PutAuthorHandler handles PUT /authors/{id} requests.
type PutAuthorHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

func NewPutAuthorHandler(svc *appsvcs.Services, errs *errhttp.Writer) *PutAuthorHandler {
	return &PutAuthorHandler{svc: svc, errs: errs}
}

// Execute replaces an author and reconciles its books.
//
//	@Summary		Update author
//	@Description	Replaces name, birth date and book set. Books gained or lost are updated to match.
//	@Tags			authors
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Author ID"	format(uuid)
//	@Param			request	body		AuthorRequest	true	"Author update request"
//	@Success		200		{object}	AuthorResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/authors/{id} [put]
func (h *PutAuthorHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseAuthorID(chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	req, ok := pkgvalidator.ValidateRequest[AuthorRequest](w, r)
	if !ok {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	author, err := h.svc.Author.Update(r.Context(), id, in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, toAuthorResponse(author))
}
