package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
)

const incomeColumns = `id::text, appointment_id::text, customer_id::text, treatment_type_id::text,
	amount_cents, payment_method, COALESCE(payment_reference, ''), paid_at, deleted_at, created_at`

type IncomeRepository struct {
	pool *db.Pool
}

func NewIncomeRepository(pool *db.Pool) *IncomeRepository {
	return &IncomeRepository{pool: pool}
}

func (r *IncomeRepository) Insert(ctx context.Context, tx pgx.Tx, entry model.IncomeEntry) (model.IncomeEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO income_entries (id, appointment_id, customer_id, treatment_type_id, amount_cents, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, entry.ID, entry.AppointmentID, entry.CustomerID, entry.TreatmentTypeID, entry.AmountCents, entry.PaymentMethod).
		Scan(&entry.CreatedAt)
	if err != nil {
		return model.IncomeEntry{}, err
	}
	return entry, nil
}

func scanIncome(row pgx.Row) (model.IncomeEntry, error) {
	var e model.IncomeEntry
	err := row.Scan(
		&e.ID,
		&e.AppointmentID,
		&e.CustomerID,
		&e.TreatmentTypeID,
		&e.AmountCents,
		&e.PaymentMethod,
		&e.PaymentReference,
		&e.PaidAt,
		&e.DeletedAt,
		&e.CreatedAt,
	)
	return e, err
}

func (r *IncomeRepository) GetByID(ctx context.Context, id string) (model.IncomeEntry, error) {
	return scanIncome(r.pool.QueryRow(ctx, `
		SELECT `+incomeColumns+`
		FROM income_entries
		WHERE id = $1 AND deleted_at IS NULL
	`, id))
}

// GetByAppointment also returns soft-deleted appointments' entries; the
// financial record outlives the appointment row.
func (r *IncomeRepository) GetByAppointment(ctx context.Context, appointmentID string) (model.IncomeEntry, error) {
	return scanIncome(r.pool.QueryRow(ctx, `
		SELECT `+incomeColumns+`
		FROM income_entries
		WHERE appointment_id = $1 AND deleted_at IS NULL
	`, appointmentID))
}

func (r *IncomeRepository) ListRange(ctx context.Context, from, to time.Time, limit int) ([]model.IncomeEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+incomeColumns+`
		FROM income_entries
		WHERE deleted_at IS NULL
			AND created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.IncomeEntry
	for rows.Next() {
		e, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

// MarkPaid records an external payment (Stripe deposit) against an entry.
func (r *IncomeRepository) MarkPaid(ctx context.Context, tx pgx.Tx, id string, reference string, paidAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE income_entries
		SET payment_reference = $2,
			paid_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`, id, reference, paidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
