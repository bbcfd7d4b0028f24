package repo

import (
	"context"

	"framd/server/internal/domain"
	"framd/server/internal/infra"
	"framd/server/internal/sqlinline"
)

// CuratedAssetRepositoryPG implements domain.CuratedAssetRepository using
// PostgreSQL. The (keyword, download_url) unique constraint makes inserts
// idempotent; a serial position column preserves insertion order.
type CuratedAssetRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewCuratedAssetRepository constructs the repository.
func NewCuratedAssetRepository(sql infra.SQLExecutor) *CuratedAssetRepositoryPG {
	return &CuratedAssetRepositoryPG{sql: sql}
}

// Insert appends a record under keyword, reporting false on conflict.
func (r *CuratedAssetRepositoryPG) Insert(ctx context.Context, keyword string, rec domain.AssetRecord) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QInsertCuratedAsset,
		keyword,
		rec.SourcePage,
		rec.DownloadURL,
		rec.License,
		rec.LicenseURL,
		rec.CommercialUse,
		rec.Attribution,
		rec.Safety.NoSexual,
		rec.Safety.NoBrands,
		rec.Safety.NoCeleb,
		rec.Provider,
		rec.Width,
		rec.Height,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByKeyword returns the keyword's records in insertion order.
func (r *CuratedAssetRepositoryPG) ListByKeyword(ctx context.Context, keyword string) ([]domain.AssetRecord, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListCuratedByKeyword, keyword)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.AssetRecord
	for rows.Next() {
		var rec domain.AssetRecord
		if err := rows.Scan(
			&rec.SourcePage,
			&rec.DownloadURL,
			&rec.License,
			&rec.LicenseURL,
			&rec.CommercialUse,
			&rec.Attribution,
			&rec.Safety.NoSexual,
			&rec.Safety.NoBrands,
			&rec.Safety.NoCeleb,
			&rec.Provider,
			&rec.Width,
			&rec.Height,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Keywords = []string{keyword}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

var _ domain.CuratedAssetRepository = (*CuratedAssetRepositoryPG)(nil)
