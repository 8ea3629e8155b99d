package review

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, rev *Review) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rev.ID, rev.ProductID, rev.UserID, rev.Rating, rev.Comment, rev.CreatedAt)
	return errors.Wrap(err, "insert review")
}

func (r *postgresRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, user_id, rating, comment, created_at
		FROM reviews WHERE product_id=$1 ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, errors.Wrap(err, "query reviews")
	}
	defer rows.Close()

	var reviews []*Review
	for rows.Next() {
		rev := &Review{}
		var comment sql.NullString
		if err := rows.Scan(&rev.ID, &rev.ProductID, &rev.UserID,
			&rev.Rating, &comment, &rev.CreatedAt); err != nil {
			return nil, err
		}
		rev.Comment = comment.String
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

func (r *postgresRepo) HasDeliveredLine(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM order_lines l
			JOIN orders o ON o.id = l.order_id
			WHERE o.buyer_id=$1 AND l.product_id=$2 AND l.status='delivered'
		)`, userID, productID).Scan(&exists)
	return exists, errors.Wrap(err, "check delivered line")
}

func (r *postgresRepo) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id=$1 AND product_id=$2)`,
		userID, productID).Scan(&exists)
	return exists, errors.Wrap(err, "check existing review")
}
