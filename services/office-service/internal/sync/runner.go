package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/metrics"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/outbox"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/outlook"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/storage"
)

// ErrAlreadyRunning means another sync run holds the advisory lock.
var ErrAlreadyRunning = errors.New("sync already running")

// advisoryLockKey identifies the calendar sync job in pg_try_advisory_lock.
// Arbitrary but stable; all instances of the service must agree on it.
const advisoryLockKey = 732001

// Fetcher is the slice of the Outlook client the runner needs.
type Fetcher interface {
	FetchEvents(ctx context.Context, start, end time.Time) ([]outlook.Event, error)
}

type syncLogStore interface {
	Start(ctx context.Context) (string, error)
	FinishSuccess(ctx context.Context, tx pgx.Tx, id string, counts model.SyncResult, message string) error
	FinishError(ctx context.Context, id string, message string, detail string) error
}

type eventStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Runner struct {
	pool         *db.Pool // advisory lock connection; transactions go through db
	db           txBeginner
	fetcher      Fetcher
	appointments *storage.AppointmentRepository
	syncLogs     syncLogStore
	outbox       eventStore
	logger       *slog.Logger

	lookBehind time.Duration
	lookAhead  time.Duration
}

type RunnerConfig struct {
	LookBehind time.Duration
	LookAhead  time.Duration
}

func NewRunner(pool *db.Pool, fetcher Fetcher, appointments *storage.AppointmentRepository, syncLogs *storage.SyncLogRepository, ob *outbox.Repository, logger *slog.Logger, cfg RunnerConfig) *Runner {
	if cfg.LookBehind <= 0 {
		cfg.LookBehind = 7 * 24 * time.Hour
	}
	if cfg.LookAhead <= 0 {
		cfg.LookAhead = 60 * 24 * time.Hour
	}
	return &Runner{
		pool:         pool,
		db:           pool,
		fetcher:      fetcher,
		appointments: appointments,
		syncLogs:     syncLogs,
		outbox:       ob,
		logger:       logger,
		lookBehind:   cfg.LookBehind,
		lookAhead:    cfg.LookAhead,
	}
}

// Run executes one full sync: fetch the calendar window, reconcile against
// local appointments, and apply the plan in a single transaction together
// with the log finalization and the completion event. The SyncLog row is
// created first and finalized exactly once whatever happens.
//
// An advisory lock serializes runs across all service instances; a
// concurrent caller gets ErrAlreadyRunning and no log row is written for it.
func (r *Runner) Run(ctx context.Context) (model.SyncResult, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return model.SyncResult{}, err
	}
	defer conn.Release()

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, advisoryLockKey).Scan(&locked); err != nil {
		return model.SyncResult{}, err
	}
	if !locked {
		return model.SyncResult{}, ErrAlreadyRunning
	}
	defer func() {
		// Unlock on the same connection that took the lock. Use a fresh
		// context so cancellation does not leak the lock.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = conn.Exec(unlockCtx, `SELECT pg_advisory_unlock($1)`, advisoryLockKey)
	}()

	logID, err := r.syncLogs.Start(ctx)
	if err != nil {
		return model.SyncResult{}, err
	}

	started := time.Now()
	result, err := r.run(ctx, logID)
	metrics.SyncDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.SyncRuns.WithLabelValues(model.SyncError).Inc()
		r.finishError(logID, err)
		return model.SyncResult{}, err
	}
	metrics.SyncRuns.WithLabelValues(model.SyncSuccess).Inc()
	return result, nil
}

func (r *Runner) run(ctx context.Context, logID string) (model.SyncResult, error) {
	now := time.Now()
	remote, err := r.fetcher.FetchEvents(ctx, now.Add(-r.lookBehind), now.Add(r.lookAhead))
	if err != nil {
		return model.SyncResult{}, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.SyncResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	local, err := r.appointments.ListActiveOutlook(ctx, tx)
	if err != nil {
		return model.SyncResult{}, err
	}

	plan := Reconcile(remote, local)
	for _, evt := range plan.Insert {
		if _, err := r.appointments.InsertFromEvent(ctx, tx, evt); err != nil {
			return model.SyncResult{}, fmt.Errorf("insert %s: %w", evt.ID, err)
		}
	}
	for _, upd := range plan.Update {
		if err := r.appointments.UpdateFromEvent(ctx, tx, upd.AppointmentID, upd.Event); err != nil {
			return model.SyncResult{}, fmt.Errorf("update %s: %w", upd.AppointmentID, err)
		}
	}
	if err := r.appointments.SoftDelete(ctx, tx, plan.SoftDelete); err != nil {
		return model.SyncResult{}, fmt.Errorf("soft delete: %w", err)
	}

	counts := plan.Counts()
	message := fmt.Sprintf("%d importiert, %d aktualisiert, %d entfernt", counts.Imported, counts.Updated, counts.Deleted)
	if err := r.syncLogs.FinishSuccess(ctx, tx, logID, counts, message); err != nil {
		return model.SyncResult{}, err
	}

	payload, err := json.Marshal(map[string]any{
		"sync_log_id": logID,
		"result":      counts,
	})
	if err != nil {
		return model.SyncResult{}, err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "sync_run",
		AggregateID:   logID,
		EventType:     outbox.EventSyncCompleted,
		Payload:       payload,
	}); err != nil {
		return model.SyncResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.SyncResult{}, err
	}

	metrics.SyncActions.WithLabelValues("imported").Add(float64(counts.Imported))
	metrics.SyncActions.WithLabelValues("updated").Add(float64(counts.Updated))
	metrics.SyncActions.WithLabelValues("deleted").Add(float64(counts.Deleted))

	r.logger.Info("calendar sync completed",
		"sync_log_id", logID,
		"remote_events", len(remote),
		"imported", counts.Imported,
		"updated", counts.Updated,
		"deleted", counts.Deleted)
	return counts, nil
}

// finishError finalizes the log outside the rolled-back transaction and
// emits the failure event in its own small transaction. The German message
// is what the office UI shows; the raw error lands in error_detail.
//
// The run may have died with its own context (client disconnect, graceful
// shutdown), so finalization uses a detached context. The row must never
// stay in_progress after a run terminates.
func (r *Runner) finishError(logID string, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	message := "Synchronisierung fehlgeschlagen"
	switch {
	case errors.Is(runErr, outlook.ErrNotConfigured):
		message = "Outlook-Anbindung ist nicht konfiguriert"
	case errors.Is(runErr, outlook.ErrUpstream):
		message = "Outlook-Kalender hat ungültige Daten geliefert"
	}

	if err := r.syncLogs.FinishError(ctx, logID, message, runErr.Error()); err != nil {
		r.logger.Error("finalizing failed sync log", "sync_log_id", logID, "err", err)
	}

	payload, err := json.Marshal(map[string]any{
		"sync_log_id": logID,
		"message":     message,
		"error":       runErr.Error(),
	})
	if err != nil {
		return
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.Error("opening tx for sync failure event", "err", err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "sync_run",
		AggregateID:   logID,
		EventType:     outbox.EventSyncFailed,
		Payload:       payload,
	}); err != nil {
		r.logger.Error("writing sync failure event", "err", err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("committing sync failure event", "err", err)
	}

	r.logger.Error("calendar sync failed", "sync_log_id", logID, "err", runErr)
}
