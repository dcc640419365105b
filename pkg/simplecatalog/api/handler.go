package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// CatalogHandler serves the catalog HTTP API on top of a simplecatalog.Service
type CatalogHandler struct {
	service simplecatalog.Service
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service simplecatalog.Service, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{
		service: service,
		logger:  logger,
	}
}

// Routes returns the routes for the catalog, meant to be mounted at /api
func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/storage/files", h.ListFolder)

	r.Route("/songs", func(r chi.Router) {
		r.Get("/", h.ListRecords)
		r.Post("/", h.UpsertRecord)
		r.Put("/{id}", h.UpsertRecord)
		r.Patch("/{id}", h.PatchRecord)
		r.Get("/{id}", h.GetItemData)
		r.Get("/{id}/meta", h.GetRecord)
	})

	r.Route("/samples", func(r chi.Router) {
		r.Post("/", h.UploadSample)
		r.Get("/{id}", h.download(simplecatalog.TypeSample))
		r.Put("/{id}", h.patchTyped(simplecatalog.TypeSample))
		r.Post("/{id}/play", h.RecordPlay)
	})

	r.Route("/music", func(r chi.Router) {
		r.Get("/{id}", h.download(simplecatalog.TypeMusic))
		r.Put("/{id}", h.patchTyped(simplecatalog.TypeMusic))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/sync", h.RunSync)
		r.Post("/sync-music", h.SyncMusic)
	})

	r.Route("/shaders", func(r chi.Router) {
		r.Get("/", h.ListShaders)
		r.Get("/categories", h.Categories)
		r.Post("/upload", h.UploadShader)
		r.Get("/{id}", h.ShaderMeta)
		r.Get("/{id}/code", h.ShaderCode)
		r.Post("/{id}/rate", h.RateShader)
		r.Post("/{id}/update", h.UpdateShader)
	})

	return r
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, simplecatalog.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, simplecatalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, simplecatalog.ErrCorruptedIndex):
		return http.StatusInternalServerError
	case errors.Is(err, simplecatalog.ErrTransientIO), errors.Is(err, simplecatalog.ErrPoolClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *CatalogHandler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		h.logger.Debug(msg, "method", r.Method, "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}

func (h *CatalogHandler) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: msg})
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	return v, true, err
}

// splitTags parses a comma separated tag list, dropping empty entries
func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
