package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"framd/server/internal/curation"
	"framd/server/internal/domain"
	"framd/server/internal/license"
	"framd/server/pkg/zip"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type assetResolveRequest struct {
	Keyword     string `json:"keyword"`
	DownloadURL string `json:"download_url"`
}

// AssetResolve starts a background download for a curated record. Only
// records present in the cache can be resolved; the download pipeline
// re-validates the license before any bytes are fetched.
func (a *App) AssetResolve(w http.ResponseWriter, r *http.Request) {
	var req assetResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	keyword := curation.NormalizeKeyword(req.Keyword)
	if keyword == "" || req.DownloadURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "keyword and download_url required")
		return
	}

	var selected *domain.AssetRecord
	for _, rec := range a.Cache.Lookup(r.Context(), keyword) {
		if rec.DownloadURL == req.DownloadURL {
			rec := rec
			selected = &rec
			break
		}
	}
	if selected == nil {
		a.error(w, http.StatusNotFound, "not_found", "no curated record for that url")
		return
	}
	if d := license.Validate(selected.License); !d.Accepted {
		a.error(w, http.StatusUnprocessableEntity, "license_violation", "record license is no longer acceptable")
		return
	}

	id, err := a.Downloader.Start(r.Context(), keyword, *selected)
	if err != nil {
		a.Logger.Error().Err(err).Str("keyword", keyword).Msg("resolve start failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to start download")
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"id":     id,
		"status": string(domain.ResolvedStatusPending),
	})
}

// AssetStatus returns the state of one resolve request.
func (a *App) AssetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "id must be a uuid")
		return
	}
	asset, err := a.Resolved.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "asset not found")
			return
		}
		a.Logger.Error().Err(err).Str("id", id).Msg("asset status failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to fetch asset")
		return
	}
	a.json(w, http.StatusOK, resolvedView(asset))
}

// AssetList returns resolve requests, newest first.
func (a *App) AssetList(w http.ResponseWriter, r *http.Request) {
	limit, offset := 20, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "offset must be non-negative")
			return
		}
		offset = n
	}

	assets, err := a.Resolved.List(r.Context(), limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Msg("asset list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list assets")
		return
	}
	items := make([]map[string]any, 0, len(assets))
	for i := range assets {
		items = append(items, resolvedView(&assets[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"count": len(items), "items": items})
}

// AssetBundle serves the most recent stored assets as a single zip download.
func (a *App) AssetBundle(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	assets, err := a.Resolved.List(r.Context(), limit, 0)
	if err != nil {
		a.Logger.Error().Err(err).Msg("asset bundle list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list assets")
		return
	}

	var entries []zip.Asset
	for _, asset := range assets {
		if asset.Status != domain.ResolvedStatusStored || asset.StorageKey == "" {
			continue
		}
		data, err := a.Store.Read(r.Context(), asset.StorageKey)
		if err != nil {
			a.Logger.Warn().Err(err).Str("key", asset.StorageKey).Msg("bundle entry unreadable")
			continue
		}
		entries = append(entries, zip.Asset{
			Filename: path.Base(asset.StorageKey),
			MIME:     asset.MIME,
			Data:     data,
		})
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no stored assets to bundle")
		return
	}

	archive, err := zip.ArchiveAssets(entries)
	if err != nil {
		a.Logger.Error().Err(err).Msg("asset bundle archive failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build bundle")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="assets.zip"`)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(archive)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func resolvedView(asset *domain.ResolvedAsset) map[string]any {
	v := map[string]any{
		"id":           asset.ID,
		"keyword":      asset.Keyword,
		"download_url": asset.DownloadURL,
		"status":       string(asset.Status),
		"created_at":   asset.CreatedAt,
		"updated_at":   asset.UpdatedAt,
	}
	switch asset.Status {
	case domain.ResolvedStatusStored:
		v["storage_key"] = asset.StorageKey
		v["mime"] = asset.MIME
		v["bytes"] = asset.Bytes
		v["checksum"] = asset.Checksum
	case domain.ResolvedStatusFailed:
		v["error"] = asset.ErrorMessage
	}
	return v
}
