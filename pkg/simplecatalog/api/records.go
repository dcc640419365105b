package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// ListRecords lists index records.
// Query: type, sort_by, sort_desc (default true), genre, min_rating, limit, offset.
func (h *CatalogHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := simplecatalog.ListFilter{
		Type:     simplecatalog.TypeTag(q.Get("type")),
		SortBy:   simplecatalog.SortBy(q.Get("sort_by")),
		SortDesc: true,
		Genre:    q.Get("genre"),
	}
	if raw := q.Get("sort_desc"); raw != "" {
		desc, err := strconv.ParseBool(raw)
		if err != nil {
			h.badRequest(w, r, "Invalid sort_desc")
			return
		}
		filter.SortDesc = desc
	}

	var err error
	for name, dst := range map[string]*int{"min_rating": &filter.MinRating, "limit": &filter.Limit, "offset": &filter.Offset} {
		if *dst, _, err = queryInt(r, name); err != nil {
			h.badRequest(w, r, "Invalid "+name)
			return
		}
	}

	records, err := h.service.ListRecords(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, "Failed to list records", err)
		return
	}
	render.JSON(w, r, records)
}

// GetRecord returns the index entry of an item
func (h *CatalogHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.service.GetRecord(r.Context(), simplecatalog.TypeTag(r.URL.Query().Get("type")), id)
	if err != nil {
		h.writeError(w, r, "Failed to get record", err)
		return
	}
	render.JSON(w, r, rec)
}

// GetItemData returns the stored JSON document of an item verbatim
func (h *CatalogHandler) GetItemData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.service.GetItemData(r.Context(), simplecatalog.TypeTag(r.URL.Query().Get("type")), id)
	if err != nil {
		h.writeError(w, r, "Failed to get item data", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// UpsertRecord creates or replaces a structured item. On PUT the id comes
// from the path.
func (h *CatalogHandler) UpsertRecord(w http.ResponseWriter, r *http.Request) {
	var payload simplecatalog.ItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.badRequest(w, r, "Invalid request body: "+err.Error())
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		payload.ID = id
	}

	rec, err := h.service.UpsertRecord(r.Context(), payload)
	if err != nil {
		h.writeError(w, r, "Failed to upsert record", err)
		return
	}

	if r.Method == http.MethodPost {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, map[string]any{"success": true, "id": rec.ID, "record": rec})
}

// PatchRecord applies a partial update; the type comes from the query and
// defaults to the fallback type.
func (h *CatalogHandler) PatchRecord(w http.ResponseWriter, r *http.Request) {
	h.patch(w, r, simplecatalog.TypeTag(r.URL.Query().Get("type")))
}

func (h *CatalogHandler) patchTyped(t simplecatalog.TypeTag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.patch(w, r, t)
	}
}

func (h *CatalogHandler) patch(w http.ResponseWriter, r *http.Request, t simplecatalog.TypeTag) {
	var p simplecatalog.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.badRequest(w, r, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.service.PatchRecord(r.Context(), t, chi.URLParam(r, "id"), p)
	if err != nil {
		h.writeError(w, r, "Failed to patch record", err)
		return
	}
	render.JSON(w, r, res)
}

// RecordPlay stamps last_played on a sample
func (h *CatalogHandler) RecordPlay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.service.RecordPlay(r.Context(), simplecatalog.TypeSample, id)
	if err != nil {
		h.writeError(w, r, "Failed to record play", err)
		return
	}
	render.JSON(w, r, map[string]any{"success": true, "id": rec.ID, "last_played": rec.LastPlayed})
}
