// Package repo implements the domain persistence interfaces on PostgreSQL
// via pgx. Queries are inline; schemas live in the deployment's migration
// set.
package repo

import (
	"context"

	"mediacore/internal/domain"
	"mediacore/internal/infra"
)

// TaskRefRepositoryPG persists vendor task refs in PostgreSQL.
type TaskRefRepositoryPG struct {
	db infra.SQLExecutor
}

// NewTaskRefRepository constructs a task ref repository.
func NewTaskRefRepository(db infra.SQLExecutor) *TaskRefRepositoryPG {
	return &TaskRefRepositoryPG{db: db}
}

// Upsert writes the ref, updating vendor and external pid on re-launch of
// the same (caller, kind, task) triple.
func (r *TaskRefRepositoryPG) Upsert(ctx context.Context, ref *domain.VendorTaskRef) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO vendor_task_refs (caller_id, kind, task_id, vendor, external_pid, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (caller_id, kind, task_id)
DO UPDATE SET vendor = EXCLUDED.vendor,
              external_pid = EXCLUDED.external_pid,
              updated_at = now();
`, ref.CallerID, ref.Kind, ref.TaskID, ref.Vendor, ref.ExternalPID)
	return err
}

// Get returns the ref for a (caller, kind, task) triple.
func (r *TaskRefRepositoryPG) Get(ctx context.Context, callerID string, kind domain.RefKind, taskID string) (*domain.VendorTaskRef, error) {
	var ref domain.VendorTaskRef
	err := r.db.QueryRow(ctx, `
SELECT caller_id, kind, task_id, vendor, external_pid, created_at, updated_at
FROM vendor_task_refs
WHERE caller_id = $1 AND kind = $2 AND task_id = $3;
`, callerID, kind, taskID).Scan(&ref.CallerID, &ref.Kind, &ref.TaskID, &ref.Vendor, &ref.ExternalPID, &ref.CreatedAt, &ref.UpdatedAt)
	if infra.IsNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

var _ domain.TaskRefRepository = (*TaskRefRepositoryPG)(nil)
