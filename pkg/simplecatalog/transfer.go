package simplecatalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"

	"github.com/tendant/simple-catalog/pkg/simplecatalog/objectkey"
)

// ChunkSize is the piece size Download.WriteTo emits.
const ChunkSize = 1 << 20

var contentTypes = map[string]string{
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".json": "application/json",
	".wgsl": "text/plain; charset=utf-8",
}

// ContentTypeFor derives a content type from a filename's extension.
func ContentTypeFor(filename string) string {
	if ct, ok := contentTypes[objectkey.Ext(filename)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Transfer streams binary assets between callers and the backend without
// holding whole files in memory.
type Transfer struct {
	gw     *Gateway
	index  *IndexStore
	keys   objectkey.Generator
	newID  func() string
	logger *slog.Logger
}

// NewTransfer creates a Transfer storing blobs through gw and recording them
// in index.
func NewTransfer(gw *Gateway, index *IndexStore, logger *slog.Logger) *Transfer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transfer{
		gw:     gw,
		index:  index,
		keys:   objectkey.NewExtensionGenerator(),
		newID:  func() string { return uuid.New().String() },
		logger: logger,
	}
}

// Upload streams r into the folder of t under a fresh id, then records it in
// the index. The blob is written before the guard is taken; if the index
// write fails the blob stays behind as an orphan for the next sync.
func (tr *Transfer) Upload(ctx context.Context, t TypeTag, r io.Reader, meta UploadMeta) (*Record, error) {
	cfg, ok := t.Config()
	if !ok {
		return nil, validationErrorf("unknown type %q", t)
	}
	if err := validateStruct(meta); err != nil {
		return nil, err
	}
	ext := objectkey.Ext(meta.OriginalFilename)
	if len(cfg.UploadExtensions) > 0 && !slices.Contains(cfg.UploadExtensions, ext) {
		return nil, validationErrorf("%s uploads must have one of the extensions %v, got %q", t, cfg.UploadExtensions, ext)
	}

	id := tr.newID()
	filename := tr.keys.GenerateFilename(id, &objectkey.KeyMetadata{OriginalName: meta.OriginalFilename})
	contentType := meta.ContentType
	if contentType == "" {
		contentType = ContentTypeFor(filename)
	}
	if err := tr.gw.Put(ctx, objectkey.Key(cfg.Folder, filename), r, contentType); err != nil {
		return nil, &RecordError{Type: t, ID: id, Op: "upload", Err: err}
	}

	rec := Record{
		ID:          id,
		Name:        meta.Name,
		Author:      meta.Author,
		Type:        t,
		Description: meta.Description,
		Filename:    filename,
		Rating:      meta.Rating,
		Genre:       meta.Genre,
		Tags:        meta.Tags,
	}
	if rec.Name == "" {
		rec.Name = meta.OriginalFilename
	}
	if t == TypeShader {
		return tr.recordShader(ctx, cfg, rec)
	}
	return tr.index.Upsert(ctx, t, rec)
}

// recordShader writes the shader's metadata document and index entry under
// one guard acquisition.
func (tr *Transfer) recordShader(ctx context.Context, cfg TypeConfig, rec Record) (*Record, error) {
	stars, count := 0.0, 0
	rec.Stars = &stars
	rec.RatingCount = &count
	rec.Date = Today(tr.index.now())
	rec.Tags = normalizeTags(rec.Tags)

	if err := tr.index.guard.Lock(ctx); err != nil {
		return nil, err
	}
	defer tr.index.guard.Unlock()

	if err := writeShaderMeta(ctx, tr.gw, cfg, rec); err != nil {
		return nil, err
	}
	records, err := tr.index.load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	records = append([]Record{rec}, records...)
	if err := tr.index.save(ctx, cfg, records); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Download is an open blob stream plus the headers needed to serve it.
type Download struct {
	Body        io.ReadCloser
	Record      Record
	ContentType string
	Disposition string
	Size        int64
}

// Download looks up id in the index of t and opens its blob.
func (tr *Transfer) Download(ctx context.Context, t TypeTag, id string) (*Download, error) {
	cfg, ok := t.Config()
	if !ok {
		return nil, validationErrorf("unknown type %q", t)
	}
	rec, err := tr.index.Get(ctx, t, id)
	if err != nil {
		return nil, err
	}

	key := objectkey.Key(cfg.Folder, rec.Filename)
	meta, err := tr.gw.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &RecordError{Type: t, ID: id, Op: "download", Err: fmt.Errorf("blob missing: %w", err)}
		}
		return nil, err
	}
	body, err := tr.gw.OpenForRead(ctx, key)
	if err != nil {
		return nil, &RecordError{Type: t, ID: id, Op: "download", Err: err}
	}

	return &Download{
		Body:        body,
		Record:      *rec,
		ContentType: ContentTypeFor(rec.Filename),
		Disposition: fmt.Sprintf("%s; filename=%q", cfg.Disposition, rec.Name),
		Size:        meta.Size,
	}, nil
}

// WriteTo copies the blob to w in ChunkSize pieces, flushing w after each
// piece when it is an http.Flusher.
func (d *Download) WriteTo(w io.Writer) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, ChunkSize)
	var written int64
	for {
		n, rerr := io.ReadFull(d.Body, buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("%w: %v", ErrTransientIO, rerr)
		}
	}
}

// Close releases the underlying stream.
func (d *Download) Close() error {
	return d.Body.Close()
}

func writeShaderMeta(ctx context.Context, gw *Gateway, cfg TypeConfig, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return &RecordError{Type: cfg.Tag, ID: rec.ID, Op: "encode_meta", Err: err}
	}
	if err := gw.PutText(ctx, objectkey.ShaderMetaKey(cfg.Folder, rec.ID), data, "application/json"); err != nil {
		return &RecordError{Type: cfg.Tag, ID: rec.ID, Op: "save_meta", Err: err}
	}
	return nil
}
