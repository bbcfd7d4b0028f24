package domain

import "context"

// CuratedAssetRepository persists validated asset records keyed by
// (keyword, download_url). Insertion order within a keyword is preserved.
type CuratedAssetRepository interface {
	// Insert appends a record under keyword. It reports false when the
	// (keyword, download_url) pair already exists.
	Insert(ctx context.Context, keyword string, rec AssetRecord) (bool, error)
	ListByKeyword(ctx context.Context, keyword string) ([]AssetRecord, error)
}

// RejectionLogRepository appends to the write-once rejection log.
type RejectionLogRepository interface {
	Append(ctx context.Context, entry RejectionLogEntry) error
	ListRecent(ctx context.Context, keyword string, limit int) ([]RejectionLogEntry, error)
}

// ResolvedAssetRepository tracks background downloads of cached records.
type ResolvedAssetRepository interface {
	Create(ctx context.Context, asset *ResolvedAsset) error
	MarkStored(ctx context.Context, id, storageKey, mime, checksum string, bytes int64) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	GetByID(ctx context.Context, id string) (*ResolvedAsset, error)
	List(ctx context.Context, limit, offset int) ([]ResolvedAsset, error)
}
