// Package simplecatalog maintains per-type JSON index files describing assets
// (songs, patterns, samples, music, shaders, ...) stored in an object-storage
// backend under type-prefixed folders.
//
// The Service interface is the call surface used by HTTP handlers and tools.
// It is built from a BlobStore backend (memory, filesystem, S3 or GCS under
// storage/) and an optional Cache (memory or Redis under cache/).
//
// Consistency Model
//
// Each type has exactly one index file at a fixed key. The index is the source
// of truth for listing; the object store is the source of truth for existence.
// All index mutations (upsert, patch, rating, sync) go through one process-wide
// Guard, so read-modify-write cycles never interleave. Reads are not guarded
// and may be served from the cache until the next invalidation.
//
// Sync (the Reconciler) removes index entries whose blob is gone ("ghosts") and
// adds entries for blobs that are not indexed ("orphans"). It never deletes
// blobs.
package simplecatalog
