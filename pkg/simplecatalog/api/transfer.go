package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// maxFieldSize bounds a single non-file multipart field
const maxFieldSize = 64 << 10

// UploadSample streams a multipart audio upload into the sample folder.
// Form: file, author, description, rating, name, genre, tags.
func (h *CatalogHandler) UploadSample(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, simplecatalog.TypeSample, "")
}

// UploadShader streams a multipart .wgsl upload.
// Form: file, name, description, tags (comma separated), author.
func (h *CatalogHandler) UploadShader(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, simplecatalog.TypeShader, "Unknown")
}

// upload reads the multipart body part by part. Text fields must precede the
// file part; the file part is handed to the service without buffering.
func (h *CatalogHandler) upload(w http.ResponseWriter, r *http.Request, t simplecatalog.TypeTag, defaultAuthor string) {
	mr, err := r.MultipartReader()
	if err != nil {
		h.badRequest(w, r, "Expected multipart/form-data body")
		return
	}

	fields := map[string]string{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			h.badRequest(w, r, "Missing file part")
			return
		}
		if err != nil {
			h.badRequest(w, r, "Invalid multipart body: "+err.Error())
			return
		}

		if part.FileName() == "" {
			value, err := io.ReadAll(io.LimitReader(part, maxFieldSize))
			part.Close()
			if err != nil {
				h.badRequest(w, r, "Invalid multipart field: "+err.Error())
				return
			}
			fields[part.FormName()] = string(value)
			continue
		}

		if part.FormName() != "file" {
			part.Close()
			continue
		}

		meta, err := uploadMeta(part.FileName(), part.Header.Get("Content-Type"), fields)
		if err != nil {
			part.Close()
			h.badRequest(w, r, err.Error())
			return
		}
		if meta.Author == "" {
			meta.Author = defaultAuthor
		}
		if t == simplecatalog.TypeShader {
			// shader sources are always served as text
			meta.ContentType = ""
		}

		rec, err := h.service.StreamUpload(r.Context(), t, part, meta)
		part.Close()
		if err != nil {
			h.writeError(w, r, "Failed to upload file", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{"success": true, "id": rec.ID, "meta": rec})
		return
	}
}

func uploadMeta(filename, contentType string, fields map[string]string) (simplecatalog.UploadMeta, error) {
	meta := simplecatalog.UploadMeta{
		OriginalFilename: filename,
		Name:             fields["name"],
		Author:           fields["author"],
		Description:      fields["description"],
		Tags:             splitTags(fields["tags"]),
	}
	if contentType != "application/octet-stream" {
		meta.ContentType = contentType
	}
	if raw := fields["rating"]; raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			return meta, fmt.Errorf("invalid rating %q", raw)
		}
		meta.Rating = &rating
	}
	if genre, ok := fields["genre"]; ok && genre != "" {
		meta.Genre = &genre
	}
	return meta, nil
}

func (h *CatalogHandler) download(t simplecatalog.TypeTag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dl, err := h.service.StreamDownload(r.Context(), t, chi.URLParam(r, "id"))
		if err != nil {
			h.writeError(w, r, "Failed to open download", err)
			return
		}
		defer dl.Close()

		w.Header().Set("Content-Type", dl.ContentType)
		w.Header().Set("Content-Disposition", dl.Disposition)
		if dl.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
		}
		w.WriteHeader(http.StatusOK)

		if n, err := dl.WriteTo(w); err != nil {
			// headers are already sent; the client sees a truncated body
			h.logger.Error("Download interrupted", "type", t, "id", dl.Record.ID, "written", n, "error", err)
		}
	}
}
