package api

import (
	"fmt"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/bookcatalog/pkg/app"
	"github.com/ghuser/bookcatalog/pkg/config"
	"github.com/ghuser/bookcatalog/pkg/errhttp"
	"github.com/ghuser/bookcatalog/services/catalog/application/handlers"
	appsvcs "github.com/ghuser/bookcatalog/services/catalog/application/services"
)

// CatalogRoutes wires the catalog services from a and registers the author
// and book endpoints on r.
func CatalogRoutes(r chi.Router, a *app.Application) error {
	svcs, err := appsvcs.New(a)
	if err != nil {
		return fmt.Errorf("catalog services: %w", err)
	}
	isProduction := a.Config != nil && a.Config.Environment == config.EnvProduction
	Mount(r, svcs, errhttp.NewWriter(a.Logger, isProduction))
	return nil
}

// Mount registers the catalog endpoints backed by svcs.
func Mount(r chi.Router, svcs *appsvcs.Services, errs *errhttp.Writer) {
	r.Group(func(r chi.Router) {
		r.Route("/authors", func(r chi.Router) {
			r.Post("/", handlers.NewPostAuthorHandler(svcs, errs).Execute)
			r.Get("/{id}", handlers.NewGetAuthorHandler(svcs, errs).Execute)
			r.Put("/{id}", handlers.NewPutAuthorHandler(svcs, errs).Execute)
		})
		r.Route("/books", func(r chi.Router) {
			r.Post("/", handlers.NewPostBookHandler(svcs, errs).Execute)
			r.Get("/", handlers.NewListBooksHandler(svcs, errs).Execute)
			r.Get("/{id}", handlers.NewGetBookHandler(svcs, errs).Execute)
			r.Put("/{id}", handlers.NewPutBookHandler(svcs, errs).Execute)
		})
	})
}
