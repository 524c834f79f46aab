package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
)

const customerColumns = `id::text, first_name, last_name, COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(note, ''), deleted_at, created_at, updated_at`

type CustomerRepository struct {
	pool *db.Pool
}

func NewCustomerRepository(pool *db.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func scanCustomer(row pgx.Row) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.Note,
		&c.DeletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

func (r *CustomerRepository) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	c.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (id, first_name, last_name, email, phone, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Note).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

func (r *CustomerRepository) Update(ctx context.Context, c model.Customer) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET first_name = $2,
			last_name = $3,
			email = $4,
			phone = $5,
			note = $6,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (model.Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1 AND deleted_at IS NULL
	`, id))
}

func (r *CustomerRepository) List(ctx context.Context, search string, limit int) ([]model.Customer, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE deleted_at IS NULL
			AND ($1 = '' OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%')
		ORDER BY last_name ASC, first_name ASC
		LIMIT $2
	`, search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return customers, nil
}

func (r *CustomerRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET deleted_at = now(),
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
