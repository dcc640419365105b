package simplecatalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/tendant/simple-catalog/pkg/simplecatalog/objectkey"
)

const (
	syncStatusSynced  = "synced"
	orphanAuthor      = "Unknown"
	orphanDescription = "Auto-discovered via Sync"
)

// Reconciler brings index files back in line with the blobs actually stored.
// Entries whose blob is gone are dropped, and unindexed blobs get a
// synthesized entry. Blobs are never deleted.
type Reconciler struct {
	index    *IndexStore
	sniffers map[TypeTag]MetadataSniffer
	logger   *slog.Logger
	newID    func() string
}

// NewReconciler creates a Reconciler over index. A nil sniffers map uses
// DefaultSniffers.
func NewReconciler(index *IndexStore, sniffers map[TypeTag]MetadataSniffer, logger *slog.Logger) *Reconciler {
	if sniffers == nil {
		sniffers = DefaultSniffers()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		index:    index,
		sniffers: sniffers,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
	}
}

// RunSync reconciles every syncable type under a single guard acquisition.
// A failure in one type is recorded in its report entry and does not stop
// the others. The query cache is cleared afterwards.
func (r *Reconciler) RunSync(ctx context.Context) (SyncReport, error) {
	if err := r.index.guard.Lock(ctx); err != nil {
		return nil, err
	}
	defer r.index.guard.Unlock()

	report := make(SyncReport)
	for _, cfg := range typeTable {
		if !cfg.Syncable {
			continue
		}
		tr, err := r.syncLocked(ctx, cfg)
		if err != nil {
			r.logger.Error("sync failed", "type", cfg.Tag, "err", err)
			tr = TypeReport{Error: err.Error()}
		}
		r.index.metrics.observeSync(cfg.Tag, tr)
		report[cfg.Tag] = tr
	}

	r.index.cache.clear(ctx)
	return report, nil
}

// SyncType reconciles a single type.
func (r *Reconciler) SyncType(ctx context.Context, t TypeTag) (*TypeReport, error) {
	cfg, ok := t.Config()
	if !ok {
		return nil, validationErrorf("unknown type %q", t)
	}

	if err := r.index.guard.Lock(ctx); err != nil {
		return nil, err
	}
	defer r.index.guard.Unlock()

	tr, err := r.syncLocked(ctx, cfg)
	if err != nil {
		r.index.metrics.observeSync(t, TypeReport{Error: err.Error()})
		return nil, err
	}
	r.index.metrics.observeSync(t, tr)
	r.index.cache.invalidateType(ctx, t)
	return &tr, nil
}

// syncLocked runs one type's pass. The caller holds the guard.
func (r *Reconciler) syncLocked(ctx context.Context, cfg TypeConfig) (TypeReport, error) {
	objects, err := r.index.gw.ListByPrefix(ctx, cfg.Folder)
	if err != nil {
		return TypeReport{}, &IndexError{Type: cfg.Tag, Op: "sync", Err: err}
	}

	var blobs []ObjectMeta
	present := make(map[string]struct{}, len(objects))
	for _, obj := range objects {
		if obj.Key == cfg.IndexKey {
			continue
		}
		name, ok := objectkey.Strip(cfg.Folder, obj.Key)
		if !ok {
			continue
		}
		if len(cfg.ContentExtensions) > 0 && !slices.Contains(cfg.ContentExtensions, objectkey.Ext(name)) {
			continue
		}
		obj.Key = name
		blobs = append(blobs, obj)
		present[name] = struct{}{}
	}

	records, err := r.index.load(ctx, cfg)
	if err != nil {
		return TypeReport{}, err
	}

	var tr TypeReport
	indexed := make(map[string]struct{}, len(records))
	kept := make([]Record, 0, len(records))
	for _, rec := range records {
		indexed[rec.Filename] = struct{}{}
		if _, ok := present[rec.Filename]; ok {
			kept = append(kept, rec)
			continue
		}
		tr.Removed++
	}

	for _, blob := range blobs {
		if _, ok := indexed[blob.Key]; ok {
			continue
		}
		rec := r.orphanRecord(ctx, cfg, blob)
		kept = append([]Record{rec}, kept...)
		indexed[blob.Key] = struct{}{}
		tr.Added++
	}

	if tr.Added > 0 || tr.Removed > 0 {
		if err := r.index.save(ctx, cfg, kept); err != nil {
			return TypeReport{}, err
		}
	}
	tr.Total = len(kept)
	tr.Status = syncStatusSynced
	return tr, nil
}

func (r *Reconciler) orphanRecord(ctx context.Context, cfg TypeConfig, blob ObjectMeta) Record {
	rec := Record{
		ID:          r.newID(),
		Name:        blob.Key,
		Author:      orphanAuthor,
		Date:        Today(r.index.now()),
		Type:        cfg.Tag,
		Description: orphanDescription,
		Filename:    blob.Key,
		Tags:        []string{},
		Extra: map[string]json.RawMessage{
			"size": json.RawMessage(strconv.FormatInt(blob.Size, 10)),
		},
	}

	sniffer, ok := r.sniffers[cfg.Tag]
	if !ok {
		return rec
	}
	content, err := r.index.gw.GetText(ctx, objectkey.Key(cfg.Folder, blob.Key))
	if err != nil {
		r.logger.Debug("orphan sniff read failed", "type", cfg.Tag, "filename", blob.Key, "err", err)
		return rec
	}
	sniffed := rec.Clone()
	if err := sniffer.Sniff(ctx, blob.Key, content, &sniffed); err != nil {
		r.logger.Debug("orphan sniff failed", "type", cfg.Tag, "filename", blob.Key, "err", err)
		return rec
	}
	return sniffed
}
