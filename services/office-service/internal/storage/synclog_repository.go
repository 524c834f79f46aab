package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
)

type SyncLogRepository struct {
	pool *db.Pool
}

func NewSyncLogRepository(pool *db.Pool) *SyncLogRepository {
	return &SyncLogRepository{pool: pool}
}

// Start records a run as in_progress before anything else happens, so a
// crashed run is visible as such.
func (r *SyncLogRepository) Start(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sync_logs (id, status, message)
		VALUES ($1, 'in_progress', 'Synchronisierung läuft')
	`, id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishSuccess finalizes a run inside the same transaction that applied
// the reconciliation plan.
func (r *SyncLogRepository) FinishSuccess(ctx context.Context, tx pgx.Tx, id string, counts model.SyncResult, message string) error {
	_, err := tx.Exec(ctx, `
		UPDATE sync_logs
		SET finished_at = now(),
			status = 'success',
			message = $2,
			imported = $3,
			updated = $4,
			deleted = $5
		WHERE id = $1
	`, id, message, counts.Imported, counts.Updated, counts.Deleted)
	return err
}

// FinishError runs outside any transaction: the failure record must stick
// even though the plan rolled back.
func (r *SyncLogRepository) FinishError(ctx context.Context, id string, message string, detail string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sync_logs
		SET finished_at = now(),
			status = 'error',
			message = $2,
			error_detail = $3
		WHERE id = $1
	`, id, message, detail)
	return err
}

func (r *SyncLogRepository) Latest(ctx context.Context) (model.SyncLog, error) {
	var log model.SyncLog
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, started_at, finished_at, status, message,
			imported, updated, deleted, COALESCE(error_detail, '')
		FROM sync_logs
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(
		&log.ID,
		&log.StartedAt,
		&log.FinishedAt,
		&log.Status,
		&log.Message,
		&log.Imported,
		&log.Updated,
		&log.Deleted,
		&log.ErrorDetail,
	)
	return log, err
}
