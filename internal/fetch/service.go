package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"framd/server/internal/domain"
	"framd/server/internal/infra"
	"framd/server/internal/storage"
)

// Service runs downloads off the request path. Start records a pending
// ResolvedAsset and returns immediately; a background goroutine fetches the
// bytes, writes them to the file store, and updates the record. Callers
// observe completion by polling the record.
type Service struct {
	resolver *Resolver
	store    *storage.FileStore
	repo     domain.ResolvedAssetRepository
	logger   infra.Logger
	timeout  time.Duration

	wg sync.WaitGroup
}

// NewService wires the download service.
func NewService(resolver *Resolver, store *storage.FileStore, repo domain.ResolvedAssetRepository, logger infra.Logger) *Service {
	return &Service{
		resolver: resolver,
		store:    store,
		repo:     repo,
		logger:   logger,
		timeout:  5 * time.Minute,
	}
}

// Start begins resolving rec in the background and returns the tracking id.
func (s *Service) Start(ctx context.Context, keyword string, rec domain.AssetRecord) (string, error) {
	asset := &domain.ResolvedAsset{
		ID:          uuid.NewString(),
		Keyword:     keyword,
		DownloadURL: rec.DownloadURL,
		Status:      domain.ResolvedStatusPending,
	}
	if err := s.repo.Create(ctx, asset); err != nil {
		return "", fmt.Errorf("create resolved asset: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Detached from the request context: the download outlives the
		// HTTP request that triggered it.
		dlCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.download(dlCtx, asset.ID, keyword, rec)
	}()

	return asset.ID, nil
}

// Wait blocks until all in-flight downloads finish. Used on shutdown and
// in tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) download(ctx context.Context, id, keyword string, rec domain.AssetRecord) {
	data, mime, err := s.resolver.Resolve(ctx, rec)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("resolved_id", id).
			Str("download_url", rec.DownloadURL).
			Msg("download: resolve failed")
		if markErr := s.repo.MarkFailed(ctx, id, err.Error()); markErr != nil {
			s.logger.Error().Err(markErr).Str("resolved_id", id).Msg("download: mark failed errored")
		}
		return
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	key := storageKey(keyword, id, mime)

	savedKey, err := s.store.Write(ctx, key, data)
	if err != nil {
		s.logger.Error().Err(err).Str("resolved_id", id).Msg("download: persist bytes failed")
		if markErr := s.repo.MarkFailed(ctx, id, err.Error()); markErr != nil {
			s.logger.Error().Err(markErr).Str("resolved_id", id).Msg("download: mark failed errored")
		}
		return
	}

	if err := s.repo.MarkStored(ctx, id, savedKey, mime, checksum, int64(len(data))); err != nil {
		s.logger.Error().Err(err).Str("resolved_id", id).Msg("download: mark stored errored")
		return
	}
	s.logger.Info().
		Str("resolved_id", id).
		Str("storage_key", savedKey).
		Int("bytes", len(data)).
		Msg("download: stored")
}

func storageKey(keyword, id, mime string) string {
	slug := strings.ReplaceAll(strings.TrimSpace(keyword), " ", "-")
	if slug == "" {
		slug = "untagged"
	}
	return fmt.Sprintf("resolved/%s/%s%s", slug, id, extensionForMIME(mime))
}

func extensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ".bin"
	}
}
