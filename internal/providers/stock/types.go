// Package stock implements read-only metadata search against external
// stock-media providers. Provider responses are normalized into a single
// Candidate shape at this boundary so downstream code never branches on
// provider-specific payloads.
package stock

import (
	"context"

	"framd/server/internal/domain"
)

// Candidate is the provider-neutral shape of one search result. It carries
// links and licensing metadata only; binary content is never fetched here.
type Candidate struct {
	SourcePage    string
	DownloadURL   string
	License       string
	LicenseURL    string
	Creator       string
	CommercialUse bool
	Safety        domain.SafetyFlags
	Width         int
	Height        int
	Provider      string
}

// Searcher is a ranked metadata source for the ingestion service.
type Searcher interface {
	Name() string
	Search(ctx context.Context, keyword string, limit int) ([]Candidate, error)
}
