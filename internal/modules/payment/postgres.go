package payment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectSQL = `
	SELECT id, amount, method, status, paypal_payment_id, paypal_order_id, created_at, updated_at
	FROM payments`

func (r *postgresRepo) Create(ctx context.Context, p *Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, amount, method, status, paypal_payment_id, paypal_order_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.Amount, p.Method, p.Status,
		nilIfEmpty(p.PayPalPaymentID), nilIfEmpty(p.PayPalOrderID))
	return errors.Wrap(err, "insert payment")
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return r.scan(r.db.QueryRowContext(ctx, selectSQL+" WHERE id=$1", id))
}

func (r *postgresRepo) GetByProviderRef(ctx context.Context, providerPaymentID string) (*Payment, error) {
	return r.scan(r.db.QueryRowContext(ctx, selectSQL+" WHERE paypal_payment_id=$1", providerPaymentID))
}

func (r *postgresRepo) UpdateProviderRef(ctx context.Context, id uuid.UUID, providerPaymentID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET paypal_payment_id=$1, updated_at=$2 WHERE id=$3`,
		providerPaymentID, time.Now(), id)
	return errors.Wrap(err, "update payment provider ref")
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now(), id)
	return errors.Wrap(err, "update payment status")
}

func (r *postgresRepo) Complete(ctx context.Context, id uuid.UUID, providerOrderID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status=$1, paypal_order_id=COALESCE(NULLIF($2,''), paypal_order_id), updated_at=$3
		WHERE id=$4`,
		StatusCompleted, providerOrderID, time.Now(), id)
	return errors.Wrap(err, "complete payment")
}

func (r *postgresRepo) scan(row *sql.Row) (*Payment, error) {
	p := &Payment{}
	var paypalPaymentID, paypalOrderID sql.NullString
	err := row.Scan(&p.ID, &p.Amount, &p.Method, &p.Status,
		&paypalPaymentID, &paypalOrderID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: payment", apperr.ErrNotFound)
		}
		return nil, errors.Wrap(err, "select payment")
	}
	if paypalPaymentID.Valid {
		p.PayPalPaymentID = paypalPaymentID.String
	}
	if paypalOrderID.Valid {
		p.PayPalOrderID = paypalOrderID.String
	}
	return p, nil
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
