package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"framd/server/internal/domain"
	"framd/server/internal/genqueue"
	"framd/server/internal/infra"
	"framd/server/internal/storage"
)

// Curator runs the ingestion flow for a keyword.
type Curator interface {
	Ingest(ctx context.Context, keyword string, desiredCount int) ([]domain.AssetRecord, error)
}

// AssetCache exposes read access to the curated cache.
type AssetCache interface {
	Lookup(ctx context.Context, keyword string) []domain.AssetRecord
}

// Downloader starts a background download for a curated record.
type Downloader interface {
	Start(ctx context.Context, keyword string, rec domain.AssetRecord) (string, error)
}

// GenerationQueue is the queue surface the API needs.
type GenerationQueue interface {
	Enqueue(payload json.RawMessage) genqueue.Snapshot
	Status(jobID string) (genqueue.Snapshot, error)
	Cancel(jobID string) error
}

// Pinger reports database liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Curator    Curator
	Cache      AssetCache
	Downloader Downloader
	Queue      GenerationQueue
	Rejections domain.RejectionLogRepository
	Resolved   domain.ResolvedAssetRepository
	Store      *storage.FileStore
	DB         Pinger
	Logger     infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}
