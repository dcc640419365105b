package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// RunSync reconciles every syncable index with storage
func (h *CatalogHandler) RunSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RunSync(r.Context())
	if err != nil {
		h.writeError(w, r, "Sync failed", err)
		return
	}
	render.JSON(w, r, report)
}

// SyncMusic reconciles the music index only
func (h *CatalogHandler) SyncMusic(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.SyncType(r.Context(), simplecatalog.TypeMusic)
	if err != nil {
		h.writeError(w, r, "Music sync failed", err)
		return
	}
	render.JSON(w, r, report)
}

// Health reports per-type index counts
func (h *CatalogHandler) Health(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Health(r.Context())
	if err != nil {
		h.writeError(w, r, "Health check failed", err)
		return
	}
	render.JSON(w, r, report)
}

// ListFolder lists the objects directly under a storage folder. Query: folder.
func (h *CatalogHandler) ListFolder(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	if folder == "" {
		h.badRequest(w, r, "Missing folder parameter")
		return
	}

	listing, err := h.service.ListFolder(r.Context(), folder)
	if err != nil {
		h.writeError(w, r, "Failed to list folder", err)
		return
	}
	render.JSON(w, r, listing)
}
