package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/services/web-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/web-service/internal/token"
)

type SubscriberRepository struct {
	pool *db.Pool
}

func NewSubscriberRepository(pool *db.Pool) *SubscriberRepository {
	return &SubscriberRepository{pool: pool}
}

func (r *SubscriberRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Subscribe upserts a signup. A repeated signup for a pending or
// unsubscribed address issues fresh tokens and resets the status to
// pending; a confirmed subscriber stays confirmed and keeps their tokens,
// so the double-opt-in mail is never sent twice to an active subscriber.
func (r *SubscriberRepository) Subscribe(ctx context.Context, tx pgx.Tx, email string) (model.Subscriber, error) {
	sub := model.Subscriber{
		ID:               uuid.NewString(),
		Email:            email,
		ConfirmToken:     token.New(),
		UnsubscribeToken: token.New(),
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO subscribers (id, email, status, confirm_token, unsubscribe_token)
		VALUES ($1, $2, 'pending', $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			status = CASE WHEN subscribers.status = 'confirmed' THEN subscribers.status ELSE 'pending' END,
			confirm_token = CASE WHEN subscribers.status = 'confirmed' THEN subscribers.confirm_token ELSE EXCLUDED.confirm_token END,
			unsubscribe_token = CASE WHEN subscribers.status = 'confirmed' THEN subscribers.unsubscribe_token ELSE EXCLUDED.unsubscribe_token END
		RETURNING id::text, status, confirm_token, unsubscribe_token, created_at, confirmed_at
	`, sub.ID, sub.Email, sub.ConfirmToken, sub.UnsubscribeToken).Scan(
		&sub.ID,
		&sub.Status,
		&sub.ConfirmToken,
		&sub.UnsubscribeToken,
		&sub.CreatedAt,
		&sub.ConfirmedAt,
	)
	if err != nil {
		return model.Subscriber{}, err
	}
	return sub, nil
}

// ConfirmByToken completes the double opt-in. Only pending signups can be
// confirmed; a reused or unknown token reports not found.
func (r *SubscriberRepository) ConfirmByToken(ctx context.Context, confirmToken string) (model.Subscriber, error) {
	var sub model.Subscriber
	err := r.pool.QueryRow(ctx, `
		UPDATE subscribers
		SET status = 'confirmed',
			confirmed_at = now()
		WHERE confirm_token = $1 AND status = 'pending'
		RETURNING id::text, email, status, confirm_token, unsubscribe_token, created_at, confirmed_at
	`, confirmToken).Scan(
		&sub.ID,
		&sub.Email,
		&sub.Status,
		&sub.ConfirmToken,
		&sub.UnsubscribeToken,
		&sub.CreatedAt,
		&sub.ConfirmedAt,
	)
	if err != nil {
		return model.Subscriber{}, err
	}
	return sub, nil
}

func (r *SubscriberRepository) UnsubscribeByToken(ctx context.Context, unsubscribeToken string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscribers
		SET status = 'unsubscribed'
		WHERE unsubscribe_token = $1 AND status != 'unsubscribed'
	`, unsubscribeToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
