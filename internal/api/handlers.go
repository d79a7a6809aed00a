package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/arving/kbmirror/internal/apperr"
	"github.com/arving/kbmirror/internal/index"
	"github.com/arving/kbmirror/internal/models"
	"github.com/arving/kbmirror/internal/progress"
	"github.com/arving/kbmirror/internal/storage"
)

// Handler holds the read-only route handlers for a mirrored book.
type Handler struct {
	records *progress.Store
	files   storage.Provider
	db      *index.DB
}

// NewHandler creates a new Handler.
func NewHandler(records *progress.Store, files storage.Provider, db *index.DB) *Handler {
	return &Handler{records: records, files: files, db: db}
}

// tocEntry is one line of the table-of-contents response.
type tocEntry struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
	Depth int    `json:"depth"`
}

// GetBook handles GET /api/book: the mirrored book's identity and completion
// state.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.records.Book()
	if err != nil {
		slog.Error("read book meta failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	complete, err := h.records.IsComplete()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          book.ID,
		"slug":        book.Slug,
		"name":        book.Name,
		"description": book.Description,
		"url":         book.URL,
		"complete":    complete,
	})
}

// GetTOC handles GET /api/toc: every recorded entry in mirror order.
func (h *Handler) GetTOC(w http.ResponseWriter, r *http.Request) {
	recs, err := h.records.Load()
	if err != nil {
		slog.Error("load records failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	entries := make([]tocEntry, 0, len(recs))
	for _, rec := range recs {
		kind := "directory"
		if rec.Entry.SourceNode.Kind == models.KindLeaf || rec.Entry.SourceNode.TargetRef != "" {
			kind = "leaf"
		}
		entries = append(entries, tocEntry{
			ID:    rec.Entry.ID,
			Path:  rec.Entry.Path,
			Title: rec.Entry.SourceNode.Title,
			Kind:  kind,
			Depth: rec.Entry.Depth(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	})
}

// articlePath extracts the article path from the URL (everything after
// /articles/). Encoded slashes are supported.
func articlePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetArticle handles GET /api/articles/*: the raw markdown of one article.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	path := articlePath(r)
	if path == "" || !strings.HasSuffix(path, ".md") {
		writeJSON(w, http.StatusBadRequest, errorBody("article path required"))
		return
	}
	data, err := h.files.Read(path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("article not found"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid article path"))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Search handles GET /api/search?q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter q required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.db.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if hits == nil {
		hits = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": hits,
		"total":   len(hits),
	})
}
