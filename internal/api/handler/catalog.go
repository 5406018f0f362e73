package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/vidshelf/internal/usecase"
)

type RefreshResponse struct {
	Total int `json:"total"`
}

// CatalogHandler serves the cross-user catalog.
type CatalogHandler struct {
	catalog usecase.CatalogCache
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog usecase.CatalogCache) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Routes registers the catalog endpoints on r.
func (h *CatalogHandler) Routes(r chi.Router) {
	r.Get("/catalog", h.List)
	r.Get("/catalog/search", h.Search)
	r.Post("/catalog/refresh", h.Refresh)
}

func readOptions(r *http.Request) usecase.ReadOptions {
	q := r.URL.Query()
	shuffle, _ := strconv.ParseBool(q.Get("shuffle"))
	return usecase.ReadOptions{
		Limit:   usecase.ParseLimit(q.Get("limit")),
		Offset:  usecase.ParseOffset(q.Get("offset")),
		Shuffle: shuffle,
	}
}

// List handles GET /v1/catalog?limit=&offset=&shuffle=
//
// limit=0, a negative limit or one that does not parse returns every entry from
// offset on. A negative offset is treated as 0. shuffle=true reorders entries
// before paging, so pages are not stable across calls.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalog.Read(r.Context(), readOptions(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, page)
}

// Search handles GET /v1/catalog/search?q=&limit=&offset=
//
// Paging follows List, including limit=0 meaning no limit. Results are never shuffled.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	opts := readOptions(r)
	opts.Shuffle = false

	page, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"), opts)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, page)
}

// Refresh handles POST /v1/catalog/refresh
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.Rebuild(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, RefreshResponse{Total: len(entries)})
}
