package repo

import (
	"context"

	"framd/server/internal/domain"
	"framd/server/internal/infra"
	"framd/server/internal/sqlinline"
)

// RejectionLogRepositoryPG implements domain.RejectionLogRepository. The
// underlying table is append-only; rows are never updated or deleted.
type RejectionLogRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRejectionLogRepository constructs the repository.
func NewRejectionLogRepository(sql infra.SQLExecutor) *RejectionLogRepositoryPG {
	return &RejectionLogRepositoryPG{sql: sql}
}

// Append writes one rejection entry.
func (r *RejectionLogRepositoryPG) Append(ctx context.Context, entry domain.RejectionLogEntry) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertRejection,
		entry.SourceURL, entry.Keyword, entry.Reason, entry.At)
	return err
}

// ListRecent returns the newest entries, optionally filtered by keyword.
func (r *RejectionLogRepositoryPG) ListRecent(ctx context.Context, keyword string, limit int) ([]domain.RejectionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListRejections, keyword, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.RejectionLogEntry
	for rows.Next() {
		var entry domain.RejectionLogEntry
		if err := rows.Scan(&entry.SourceURL, &entry.Keyword, &entry.Reason, &entry.At); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ domain.RejectionLogRepository = (*RejectionLogRepositoryPG)(nil)
