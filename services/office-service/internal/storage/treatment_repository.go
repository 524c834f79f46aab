package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
)

type TreatmentRepository struct {
	pool *db.Pool
}

func NewTreatmentRepository(pool *db.Pool) *TreatmentRepository {
	return &TreatmentRepository{pool: pool}
}

func (r *TreatmentRepository) Create(ctx context.Context, t model.TreatmentType) (model.TreatmentType, error) {
	t.ID = uuid.NewString()
	t.Active = true
	err := r.pool.QueryRow(ctx, `
		INSERT INTO treatment_types (id, name, duration_minutes, price_cents, description, active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING created_at
	`, t.ID, t.Name, t.DurationMinutes, t.PriceCents, t.Description).Scan(&t.CreatedAt)
	if err != nil {
		return model.TreatmentType{}, err
	}
	return t, nil
}

func (r *TreatmentRepository) Update(ctx context.Context, t model.TreatmentType) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE treatment_types
		SET name = $2,
			duration_minutes = $3,
			price_cents = $4,
			description = $5,
			active = $6
		WHERE id = $1
	`, t.ID, t.Name, t.DurationMinutes, t.PriceCents, t.Description, t.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *TreatmentRepository) GetByID(ctx context.Context, id string) (model.TreatmentType, error) {
	var t model.TreatmentType
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, duration_minutes, price_cents, COALESCE(description, ''), active, created_at
		FROM treatment_types
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.DurationMinutes, &t.PriceCents, &t.Description, &t.Active, &t.CreatedAt)
	return t, err
}

func (r *TreatmentRepository) List(ctx context.Context, activeOnly bool) ([]model.TreatmentType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, duration_minutes, price_cents, COALESCE(description, ''), active, created_at
		FROM treatment_types
		WHERE NOT $1 OR active
		ORDER BY name ASC
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []model.TreatmentType
	for rows.Next() {
		var t model.TreatmentType
		if err := rows.Scan(&t.ID, &t.Name, &t.DurationMinutes, &t.PriceCents, &t.Description, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return types, nil
}
