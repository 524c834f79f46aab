package storage

import (
	"context"

	"github.com/katharina-voss/lashoffice/libs/db"
)

// SentMail is the audit row for every outbound email attempt.
type SentMail struct {
	EventType string
	Recipient string
	Subject   string
	Status    string
	Error     string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, m SentMail) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sent_mails (event_type, recipient, subject, status, error)
		VALUES ($1, $2, $3, $4, $5)
	`, m.EventType, m.Recipient, m.Subject, m.Status, m.Error)
	return err
}
