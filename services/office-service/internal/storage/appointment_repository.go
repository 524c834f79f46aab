package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/outlook"
)

const appointmentColumns = `id::text, outlook_id, change_key, subject, start_time, end_time,
	COALESCE(location, ''), status, deleted_at, created_at, updated_at`

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.OutlookID,
		&appt.ChangeKey,
		&appt.Subject,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Location,
		&appt.Status,
		&appt.DeletedAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	return appt, err
}

// ListActiveOutlook returns all non-deleted appointments that came from
// Outlook; this is the local side of a reconciliation run.
func (r *AppointmentRepository) ListActiveOutlook(ctx context.Context, tx pgx.Tx) ([]model.Appointment, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE deleted_at IS NULL AND outlook_id IS NOT NULL
		ORDER BY start_time ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// InsertFromEvent creates a fresh pending appointment for a first-seen
// Outlook event.
func (r *AppointmentRepository) InsertFromEvent(ctx context.Context, tx pgx.Tx, evt outlook.Event) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments (id, outlook_id, change_key, subject, start_time, end_time, location, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
	`, id, evt.ID, evt.ChangeKey, evt.Subject, evt.Start, evt.End, evt.Location)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateFromEvent applies remote fields to an existing appointment. Status
// and any confirmation linkage stay untouched so human decisions survive
// remote edits.
func (r *AppointmentRepository) UpdateFromEvent(ctx context.Context, tx pgx.Tx, appointmentID string, evt outlook.Event) error {
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET change_key = $2,
			subject = $3,
			start_time = $4,
			end_time = $5,
			location = $6,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, appointmentID, evt.ChangeKey, evt.Subject, evt.Start, evt.End, evt.Location)
	return err
}

// SoftDelete marks appointments whose Outlook events disappeared. Income
// entries are not touched: financial records survive operational
// corrections.
func (r *AppointmentRepository) SoftDelete(ctx context.Context, tx pgx.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET deleted_at = now(),
			updated_at = now()
		WHERE id = ANY($1) AND deleted_at IS NULL
	`, ids)
	return err
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
}

func (r *AppointmentRepository) SetStatus(ctx context.Context, tx pgx.Tx, id string, status string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListPending returns the confirmation queue, earliest appointment first.
func (r *AppointmentRepository) ListPending(ctx context.Context) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE deleted_at IS NULL AND status = 'pending'
		ORDER BY start_time ASC
	`)
}

// ListUpcoming returns future pending/confirmed appointments, nearest first.
func (r *AppointmentRepository) ListUpcoming(ctx context.Context, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE deleted_at IS NULL
			AND status IN ('pending', 'confirmed')
			AND start_time >= now()
		ORDER BY start_time ASC
		LIMIT $1
	`, limit)
}

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
