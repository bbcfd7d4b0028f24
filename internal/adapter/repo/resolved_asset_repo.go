package repo

import (
	"context"

	"framd/server/internal/domain"
	"framd/server/internal/infra"
	"framd/server/internal/sqlinline"
)

// ResolvedAssetRepositoryPG implements domain.ResolvedAssetRepository.
type ResolvedAssetRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewResolvedAssetRepository constructs the repository.
func NewResolvedAssetRepository(sql infra.SQLExecutor) *ResolvedAssetRepositoryPG {
	return &ResolvedAssetRepositoryPG{sql: sql}
}

// Create inserts a pending download record.
func (r *ResolvedAssetRepositoryPG) Create(ctx context.Context, asset *domain.ResolvedAsset) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertResolvedAsset,
		asset.ID, asset.Keyword, asset.DownloadURL, string(asset.Status))
	return err
}

// MarkStored records a completed download.
func (r *ResolvedAssetRepositoryPG) MarkStored(ctx context.Context, id, storageKey, mime, checksum string, bytes int64) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkResolvedStored, id, storageKey, mime, checksum, bytes)
	return err
}

// MarkFailed records a failed download with its reason.
func (r *ResolvedAssetRepositoryPG) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkResolvedFailed, id, errMsg)
	return err
}

// GetByID fetches one download record.
func (r *ResolvedAssetRepositoryPG) GetByID(ctx context.Context, id string) (*domain.ResolvedAsset, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectResolvedByID, id)
	var asset domain.ResolvedAsset
	if err := row.Scan(
		&asset.ID,
		&asset.Keyword,
		&asset.DownloadURL,
		&asset.Status,
		&asset.StorageKey,
		&asset.MIME,
		&asset.Bytes,
		&asset.Checksum,
		&asset.ErrorMessage,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// List returns download records, newest first.
func (r *ResolvedAssetRepositoryPG) List(ctx context.Context, limit, offset int) ([]domain.ResolvedAsset, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListResolved, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.ResolvedAsset
	for rows.Next() {
		var asset domain.ResolvedAsset
		if err := rows.Scan(
			&asset.ID,
			&asset.Keyword,
			&asset.DownloadURL,
			&asset.Status,
			&asset.StorageKey,
			&asset.MIME,
			&asset.Bytes,
			&asset.Checksum,
			&asset.ErrorMessage,
			&asset.CreatedAt,
			&asset.UpdatedAt,
		); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

var _ domain.ResolvedAssetRepository = (*ResolvedAssetRepositoryPG)(nil)
