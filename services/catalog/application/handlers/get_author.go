package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/bookcatalog/pkg/errhttp"
	"github.com/ghuser/bookcatalog/pkg/httpx"
	appsvcs "github.com/ghuser/bookcatalog/services/catalog/application/services"
	"github.com/ghuser/bookcatalog/services/catalog/domain/models"
)

// GetAuthorHandler handles GET /authors/{id} requests.
type GetAuthorHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

func NewGetAuthorHandler(svc *appsvcs.Services, errs *errhttp.Writer) *GetAuthorHandler {
	return &GetAuthorHandler{svc: svc, errs: errs}
}

// Execute returns one author.
//
//	@Summary	Get author
//	@Tags		authors
//	@Produce	json
//	@Param		id	path		string	true	"Author ID"	format(uuid)
//	@Success	200	{object}	AuthorResponse
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/authors/{id} [get]
func (h *GetAuthorHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseAuthorID(chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	author, err := h.svc.Author.Get(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, toAuthorResponse(author))
}
