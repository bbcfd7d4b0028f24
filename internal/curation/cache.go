// Package curation holds the asset cache and the ingestion service that
// fills it from external stock-media providers.
package curation

import (
	"context"
	"sync"

	"framd/server/internal/domain"
	"framd/server/internal/infra"
)

// Cache maps keywords to ordered sequences of validated asset records.
// Insertion order within a keyword is preserved so the first option can be
// auto-selected; entries are deduplicated by download URL.
//
// The map itself is guarded by mu; each keyword entry carries its own lock,
// so concurrent inserts for different keywords never contend.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry

	repo   domain.CuratedAssetRepository
	logger infra.Logger
}

type cacheEntry struct {
	mu      sync.Mutex
	loaded  bool
	records []domain.AssetRecord
	seen    map[string]struct{}
}

// NewCache constructs a cache backed by the given repository. The repo may
// be nil, in which case the cache is purely in-memory.
func NewCache(repo domain.CuratedAssetRepository, logger infra.Logger) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		repo:    repo,
		logger:  logger,
	}
}

func (c *Cache) entry(keyword string) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[keyword]
	if !ok {
		e = &cacheEntry{seen: make(map[string]struct{})}
		c.entries[keyword] = e
	}
	return e
}

// Lookup returns the cached records for keyword in insertion order. It never
// fails: repository errors are logged and treated as an empty entry. The
// returned slice is a copy.
func (c *Cache) Lookup(ctx context.Context, keyword string) []domain.AssetRecord {
	keyword = NormalizeKeyword(keyword)
	e := c.entry(keyword)
	e.mu.Lock()
	defer e.mu.Unlock()

	c.ensureLoadedLocked(ctx, keyword, e)

	out := make([]domain.AssetRecord, len(e.records))
	copy(out, e.records)
	return out
}

// Insert appends rec under keyword unless a record with the same download
// URL is already present. It reports whether the record was added. The
// backing repository is written first so the in-memory view never holds a
// record the durable cache rejected.
func (c *Cache) Insert(ctx context.Context, keyword string, rec domain.AssetRecord) bool {
	keyword = NormalizeKeyword(keyword)
	e := c.entry(keyword)
	e.mu.Lock()
	defer e.mu.Unlock()

	c.ensureLoadedLocked(ctx, keyword, e)

	if _, dup := e.seen[rec.DownloadURL]; dup {
		return false
	}

	if c.repo != nil {
		inserted, err := c.repo.Insert(ctx, keyword, rec)
		if err != nil {
			c.logger.Error().Err(err).
				Str("keyword", keyword).
				Str("download_url", rec.DownloadURL).
				Msg("cache: persist record failed")
			return false
		}
		if !inserted {
			// Another process already cached this pair; mirror it locally.
			e.seen[rec.DownloadURL] = struct{}{}
			return false
		}
	}

	e.records = append(e.records, rec)
	e.seen[rec.DownloadURL] = struct{}{}
	return true
}

// ensureLoadedLocked hydrates the entry from the repository on first touch.
// Callers must hold e.mu.
func (c *Cache) ensureLoadedLocked(ctx context.Context, keyword string, e *cacheEntry) {
	if e.loaded {
		return
	}
	e.loaded = true
	if c.repo == nil {
		return
	}
	records, err := c.repo.ListByKeyword(ctx, keyword)
	if err != nil {
		c.logger.Error().Err(err).Str("keyword", keyword).Msg("cache: warm load failed")
		return
	}
	for _, rec := range records {
		if _, dup := e.seen[rec.DownloadURL]; dup {
			continue
		}
		e.records = append(e.records, rec)
		e.seen[rec.DownloadURL] = struct{}{}
	}
}
