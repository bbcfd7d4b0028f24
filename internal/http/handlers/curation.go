package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"framd/server/internal/curation"
	"framd/server/internal/domain"

	"github.com/go-chi/chi/v5"
)

type curationSearchRequest struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

const (
	defaultSearchCount = 4
	maxSearchCount     = 20
)

// CurationSearch runs the ingestion flow: cache first, then the stock
// providers, validating licenses and logging every rejection.
func (a *App) CurationSearch(w http.ResponseWriter, r *http.Request) {
	var req curationSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	keyword := curation.NormalizeKeyword(req.Keyword)
	if keyword == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "keyword required")
		return
	}
	count := req.Count
	if count <= 0 {
		count = defaultSearchCount
	}
	if count > maxSearchCount {
		count = maxSearchCount
	}

	records, err := a.Curator.Ingest(r.Context(), keyword, count)
	if err != nil {
		a.Logger.Error().Err(err).Str("keyword", keyword).Msg("curation search failed")
		a.error(w, http.StatusBadGateway, "provider_failure", "asset providers unavailable")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"keyword":   keyword,
		"requested": count,
		"count":     len(records),
		"degraded":  len(records) < count,
		"items":     recordViews(records),
	})
}

// CurationCached returns the cached records for a keyword without touching
// the providers.
func (a *App) CurationCached(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "keyword")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	keyword := curation.NormalizeKeyword(raw)
	if keyword == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "keyword required")
		return
	}
	records := a.Cache.Lookup(r.Context(), keyword)
	a.json(w, http.StatusOK, map[string]any{
		"keyword": keyword,
		"count":   len(records),
		"items":   recordViews(records),
	})
}

func recordViews(records []domain.AssetRecord) []map[string]any {
	items := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		items = append(items, recordView(rec))
	}
	return items
}

func recordView(rec domain.AssetRecord) map[string]any {
	return map[string]any{
		"source_page":    rec.SourcePage,
		"download_url":   rec.DownloadURL,
		"license":        rec.License,
		"license_url":    rec.LicenseURL,
		"commercial_use": rec.CommercialUse,
		"attribution":    rec.Attribution,
		"keywords":       rec.Keywords,
		"provider":       rec.Provider,
		"width":          rec.Width,
		"height":         rec.Height,
		"safety": map[string]bool{
			"no_sexual": rec.Safety.NoSexual,
			"no_brands": rec.Safety.NoBrands,
			"no_celeb":  rec.Safety.NoCeleb,
		},
		"created_at": rec.CreatedAt,
	}
}
