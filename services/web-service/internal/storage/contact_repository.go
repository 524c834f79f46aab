package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/services/web-service/internal/model"
)

type ContactRepository struct {
	pool *db.Pool
}

func NewContactRepository(pool *db.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

func (r *ContactRepository) Insert(ctx context.Context, tx pgx.Tx, req model.ContactRequest) (model.ContactRequest, error) {
	req.ID = uuid.NewString()
	err := tx.QueryRow(ctx, `
		INSERT INTO contact_requests (id, name, email, phone, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, req.ID, req.Name, req.Email, req.Phone, req.Message).Scan(&req.CreatedAt)
	if err != nil {
		return model.ContactRequest{}, err
	}
	return req, nil
}
