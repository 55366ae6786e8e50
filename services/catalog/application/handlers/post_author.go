package handlers

import (
	"net/http"

	"github.com/ghuser/bookcatalog/pkg/errhttp"
	"github.com/ghuser/bookcatalog/pkg/httpx"
	pkgvalidator "github.com/ghuser/bookcatalog/pkg/validator"
	appsvcs "github.com/ghuser/bookcatalog/services/catalog/application/services"
)

// PostAuthorHandler handles POST /authors requests.
type PostAuthorHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

// NewPostAuthorHandler returns a PostAuthorHandler backed by the given services.
func NewPostAuthorHandler(svc *appsvcs.Services, errs *errhttp.Writer) *PostAuthorHandler {
	return &PostAuthorHandler{svc: svc, errs: errs}
}

// Execute registers a new author.
//
//	@Summary		Register author
//	@Description	Registers an author. Every referenced book must exist; the author is added to each of them.
//	@Tags			authors
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AuthorRequest	true	"Author registration request"
//	@Success		201		{object}	AuthorResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/authors [post]
func (h *PostAuthorHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[AuthorRequest](w, r)
	if !ok {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	author, err := h.svc.Author.Register(r.Context(), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, toAuthorResponse(author))
}
