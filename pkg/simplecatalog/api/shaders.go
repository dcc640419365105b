package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// ListShaders lists the shader catalog.
// Query: category, min_stars, sort_by (rating, date or name).
func (h *CatalogHandler) ListShaders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := simplecatalog.ShaderFilter{
		Category: q.Get("category"),
		SortBy:   simplecatalog.SortBy(q.Get("sort_by")),
	}
	if raw := q.Get("min_stars"); raw != "" {
		stars, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.badRequest(w, r, "Invalid min_stars")
			return
		}
		filter.MinStars = stars
	}

	shaders, err := h.service.ListShaders(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, "Failed to list shaders", err)
		return
	}
	render.JSON(w, r, shaders)
}

// Categories returns the shader category hierarchy
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Categories())
}

// ShaderMeta returns a shader's metadata document
func (h *CatalogHandler) ShaderMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.ShaderMeta(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Failed to load shader metadata", err)
		return
	}
	render.JSON(w, r, meta)
}

// ShaderCode returns a shader's program text
func (h *CatalogHandler) ShaderCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.ShaderCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Failed to load shader code", err)
		return
	}
	render.JSON(w, r, code)
}

// RateShader adds a vote. Form: stars (1 to 5).
func (h *CatalogHandler) RateShader(w http.ResponseWriter, r *http.Request) {
	stars, err := strconv.ParseFloat(r.FormValue("stars"), 64)
	if err != nil {
		h.badRequest(w, r, "Invalid stars")
		return
	}

	meta, err := h.service.Rate(r.Context(), chi.URLParam(r, "id"), stars)
	if err != nil {
		h.writeError(w, r, "Failed to rate shader", err)
		return
	}
	render.JSON(w, r, meta)
}

// UpdateShader edits a shader's description and tags. Form: description,
// tags (comma separated). Empty fields are left unchanged.
func (h *CatalogHandler) UpdateShader(w http.ResponseWriter, r *http.Request) {
	var description *string
	if d := r.FormValue("description"); d != "" {
		description = &d
	}
	var tags []string
	if raw := r.FormValue("tags"); raw != "" {
		tags = splitTags(raw)
	}

	meta, err := h.service.UpdateShader(r.Context(), chi.URLParam(r, "id"), description, tags)
	if err != nil {
		h.writeError(w, r, "Failed to update shader", err)
		return
	}
	render.JSON(w, r, meta)
}
