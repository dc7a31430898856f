package repo

import (
	"context"

	"mediacore/internal/domain"
	"mediacore/internal/infra"
)

// HostedAssetRepositoryPG persists rehosted media records in PostgreSQL.
type HostedAssetRepositoryPG struct {
	db infra.SQLExecutor
}

// NewHostedAssetRepository constructs a hosted asset repository.
func NewHostedAssetRepository(db infra.SQLExecutor) *HostedAssetRepositoryPG {
	return &HostedAssetRepositoryPG{db: db}
}

// GetBySource returns the record for a (owner, source URL) pair, the dedup
// key for rehosting.
func (r *HostedAssetRepositoryPG) GetBySource(ctx context.Context, ownerID, sourceURL string) (*domain.HostedAssetRecord, error) {
	var rec domain.HostedAssetRecord
	err := r.db.QueryRow(ctx, `
SELECT id, owner_id, name, source_url, hosted_url, COALESCE(thumbnail_url, ''), kind, vendor, prompt, model_key, task_id, created_at, updated_at
FROM hosted_assets
WHERE owner_id = $1 AND source_url = $2;
`, ownerID, sourceURL).Scan(
		&rec.ID, &rec.OwnerID, &rec.Name, &rec.SourceURL, &rec.HostedURL, &rec.ThumbnailURL,
		&rec.Kind, &rec.Vendor, &rec.Prompt, &rec.ModelKey, &rec.TaskID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if infra.IsNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert writes the record, replacing the hosted copy on re-host.
func (r *HostedAssetRepositoryPG) Upsert(ctx context.Context, record *domain.HostedAssetRecord) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO hosted_assets (id, owner_id, name, source_url, hosted_url, thumbnail_url, kind, vendor, prompt, model_key, task_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
ON CONFLICT (owner_id, source_url)
DO UPDATE SET name = EXCLUDED.name,
              hosted_url = EXCLUDED.hosted_url,
              thumbnail_url = EXCLUDED.thumbnail_url,
              kind = EXCLUDED.kind,
              vendor = EXCLUDED.vendor,
              prompt = EXCLUDED.prompt,
              model_key = EXCLUDED.model_key,
              task_id = EXCLUDED.task_id,
              updated_at = now();
`, record.ID, record.OwnerID, record.Name, record.SourceURL, record.HostedURL, record.ThumbnailURL,
		record.Kind, record.Vendor, record.Prompt, record.ModelKey, record.TaskID)
	return err
}

var _ domain.HostedAssetRepository = (*HostedAssetRepositoryPG)(nil)
