package domain

import "time"

// SafetyFlags records the content-safety checks a candidate passed at the
// provider boundary. All three must be true before a record may be cached.
type SafetyFlags struct {
	NoSexual bool
	NoBrands bool
	NoCeleb  bool
}

// AllClear reports whether every safety flag is set.
func (f SafetyFlags) AllClear() bool {
	return f.NoSexual && f.NoBrands && f.NoCeleb
}

// AssetRecord is a validated metadata pointer to a reusable media item.
// It holds a link and licensing data only, never the binary content.
// Records are immutable once they enter the cache.
type AssetRecord struct {
	SourcePage    string
	DownloadURL   string
	License       string
	LicenseURL    string
	CommercialUse bool
	Attribution   string
	Safety        SafetyFlags
	Keywords      []string
	Provider      string
	Width         int
	Height        int
	CreatedAt     time.Time
}

// ResolvedStatus enumerates the lifecycle of a background download.
type ResolvedStatus string

const (
	ResolvedStatusPending ResolvedStatus = "pending"
	ResolvedStatusStored  ResolvedStatus = "stored"
	ResolvedStatusFailed  ResolvedStatus = "failed"
)

// ResolvedAsset tracks a single resolve request: which cached record was
// selected, where its bytes ended up, and how the download went.
type ResolvedAsset struct {
	ID           string
	Keyword      string
	DownloadURL  string
	Status       ResolvedStatus
	StorageKey   string
	MIME         string
	Bytes        int64
	Checksum     string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
