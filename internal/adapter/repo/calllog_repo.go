package repo

import (
	"context"

	"mediacore/internal/domain"
	"mediacore/internal/infra"
)

// CallLogRepositoryPG persists the vendor call audit log in PostgreSQL.
type CallLogRepositoryPG struct {
	db infra.SQLExecutor
}

// NewCallLogRepository constructs a call log repository.
func NewCallLogRepository(db infra.SQLExecutor) *CallLogRepositoryPG {
	return &CallLogRepositoryPG{db: db}
}

// Upsert writes one audit row keyed by (caller, vendor, task). A row
// transitions started -> succeeded|failed; started_at survives the update.
func (r *CallLogRepositoryPG) Upsert(ctx context.Context, entry *domain.VendorCallLogEntry) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO vendor_call_log (caller_id, vendor, task_id, task_kind, status, error_message, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), $7)
ON CONFLICT (caller_id, vendor, task_id)
DO UPDATE SET status = EXCLUDED.status,
              task_kind = EXCLUDED.task_kind,
              error_message = EXCLUDED.error_message,
              finished_at = EXCLUDED.finished_at;
`, entry.CallerID, entry.Vendor, entry.TaskID, entry.TaskKind, entry.Status, entry.ErrorMessage, entry.FinishedAt)
	return err
}

// Get returns the audit row for one vendor call.
func (r *CallLogRepositoryPG) Get(ctx context.Context, callerID, vendor, taskID string) (*domain.VendorCallLogEntry, error) {
	var entry domain.VendorCallLogEntry
	err := r.db.QueryRow(ctx, `
SELECT caller_id, vendor, task_id, task_kind, status, COALESCE(error_message, ''), started_at, finished_at
FROM vendor_call_log
WHERE caller_id = $1 AND vendor = $2 AND task_id = $3;
`, callerID, vendor, taskID).Scan(&entry.CallerID, &entry.Vendor, &entry.TaskID, &entry.TaskKind, &entry.Status, &entry.ErrorMessage, &entry.StartedAt, &entry.FinishedAt)
	if infra.IsNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

var _ domain.CallLogRepository = (*CallLogRepositoryPG)(nil)
