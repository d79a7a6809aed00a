package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/arving/kbmirror/internal/index"
	"github.com/arving/kbmirror/internal/progress"
	"github.com/arving/kbmirror/internal/storage"
)

// NewRouter creates a chi router with the mirror's read-only routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(records *progress.Store, files storage.Provider, db *index.DB, authEnabled bool, token string) chi.Router {
	h := NewHandler(records, files, db)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/book", h.GetBook)
	r.Get("/toc", h.GetTOC)
	r.Get("/articles/*", h.GetArticle)
	r.Get("/search", h.Search)

	return r
}
