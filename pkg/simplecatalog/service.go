package simplecatalog

import (
	"context"
	"encoding/json"
	"io"
)

// Service defines the main interface for the simple-catalog library
type Service interface {
	// Index queries
	ListRecords(ctx context.Context, filter ListFilter) ([]Record, error)
	GetRecord(ctx context.Context, t TypeTag, id string) (*Record, error)
	GetItemData(ctx context.Context, t TypeTag, id string) (json.RawMessage, error)

	// Index mutations
	UpsertRecord(ctx context.Context, payload ItemPayload) (*Record, error)
	PatchRecord(ctx context.Context, t TypeTag, id string, patch Patch) (*PatchResult, error)
	RecordPlay(ctx context.Context, t TypeTag, id string) (*Record, error)

	// Binary transfer
	StreamUpload(ctx context.Context, t TypeTag, r io.Reader, meta UploadMeta) (*Record, error)
	StreamDownload(ctx context.Context, t TypeTag, id string) (*Download, error)

	// Reconciliation
	RunSync(ctx context.Context) (SyncReport, error)
	SyncType(ctx context.Context, t TypeTag) (*TypeReport, error)

	// Shader operations
	Rate(ctx context.Context, id string, vote float64) (*Record, error)
	ShaderMeta(ctx context.Context, id string) (*Record, error)
	UpdateShader(ctx context.Context, id string, description *string, tags []string) (*Record, error)
	ShaderCode(ctx context.Context, id string) (*ShaderCode, error)
	ListShaders(ctx context.Context, filter ShaderFilter) ([]Record, error)
	Categories() CategoryCatalog

	// Storage inspection
	ListFolder(ctx context.Context, folder string) (*FolderListing, error)
	Health(ctx context.Context) (*HealthReport, error)

	// Close drains in-flight backend calls and releases the cache
	Close(ctx context.Context) error
}
