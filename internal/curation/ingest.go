package curation

import (
	"context"
	"time"

	"framd/server/internal/domain"
	"framd/server/internal/infra"
	"framd/server/internal/license"
	"framd/server/internal/providers/stock"
)

const (
	rejectionUnsafeContent = "unsafe_content"
	// overfetch asks providers for more candidates than requested since
	// some will be rejected by the validator.
	overfetchFactor = 2
)

// Service fills the cache from ranked external sources. Partial results are
// a degraded outcome, never an error: callers receive whatever validated
// subset accumulated.
type Service struct {
	cache      *Cache
	rejections domain.RejectionLogRepository
	providers  []stock.Searcher
	logger     infra.Logger
	now        func() time.Time
}

// NewService wires the ingestion service. Providers are consulted in the
// order given: the first is the primary source, the rest are fallbacks.
func NewService(cache *Cache, rejections domain.RejectionLogRepository, providers []stock.Searcher, logger infra.Logger) *Service {
	return &Service{
		cache:      cache,
		rejections: rejections,
		providers:  providers,
		logger:     logger,
		now:        time.Now,
	}
}

// Ingest returns up to desiredCount validated records for keyword,
// cache-first. On a cache miss it queries providers in priority order,
// validates every candidate, logs rejections, and caches acceptances.
// Fewer records than requested means the sources were exhausted.
func (s *Service) Ingest(ctx context.Context, keyword string, desiredCount int) ([]domain.AssetRecord, error) {
	if desiredCount <= 0 {
		desiredCount = 1
	}
	keyword = NormalizeKeyword(keyword)

	records := s.cache.Lookup(ctx, keyword)
	if len(records) >= desiredCount {
		return records[:desiredCount], nil
	}

	for _, provider := range s.providers {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		missing := desiredCount - len(records)
		if missing <= 0 {
			break
		}

		candidates, err := provider.Search(ctx, keyword, missing*overfetchFactor)
		if err != nil {
			// A failing source degrades the result, it does not abort
			// the request; the next-ranked provider may still deliver.
			s.logger.Warn().Err(err).
				Str("provider", provider.Name()).
				Str("keyword", keyword).
				Msg("ingest: source query failed")
			continue
		}

		// Every candidate in a fetched batch is evaluated, even once
		// desiredCount is met: rejections must be logged and surplus
		// acceptances warm the cache for later requests.
		for _, candidate := range candidates {
			rec, reason := s.admit(keyword, candidate)
			if reason != "" {
				s.logRejection(ctx, keyword, candidate.DownloadURL, reason)
				continue
			}
			if s.cache.Insert(ctx, keyword, rec) {
				records = append(records, rec)
			}
		}
	}

	if len(records) > desiredCount {
		records = records[:desiredCount]
	}
	if len(records) < desiredCount {
		s.logger.Info().
			Str("keyword", keyword).
			Int("requested", desiredCount).
			Int("returned", len(records)).
			Msg("ingest: sources exhausted, returning degraded result")
	}
	return records, nil
}

// admit normalizes a candidate into an AssetRecord, or returns the
// rejection reason. Safety flags are checked before the license so unsafe
// content never depends on license wording to be excluded.
func (s *Service) admit(keyword string, candidate stock.Candidate) (domain.AssetRecord, string) {
	if !candidate.Safety.AllClear() {
		return domain.AssetRecord{}, rejectionUnsafeContent
	}
	decision := license.Validate(candidate.License)
	if !decision.Accepted {
		return domain.AssetRecord{}, string(decision.Reason)
	}
	return domain.AssetRecord{
		SourcePage:    candidate.SourcePage,
		DownloadURL:   candidate.DownloadURL,
		License:       candidate.License,
		LicenseURL:    candidate.LicenseURL,
		CommercialUse: candidate.CommercialUse,
		Attribution:   attributionText(candidate.Creator, candidate.Provider, candidate.License),
		Safety:        candidate.Safety,
		Keywords:      []string{keyword},
		Provider:      candidate.Provider,
		Width:         candidate.Width,
		Height:        candidate.Height,
		CreatedAt:     s.now().UTC(),
	}, ""
}

func (s *Service) logRejection(ctx context.Context, keyword, sourceURL, reason string) {
	entry := domain.RejectionLogEntry{
		SourceURL: sourceURL,
		Keyword:   keyword,
		Reason:    reason,
		At:        s.now().UTC(),
	}
	if err := s.rejections.Append(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("source_url", sourceURL).
			Str("reason", reason).
			Msg("ingest: append rejection failed")
	}
}
