package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderColumns = `id, buyer_id, total_amount, shipping_address, phone_number,
	payment_id, status, return_reason, return_request_date, created_at`

// Create inserts the order and all its lines inside a single transaction.
func (r *postgresRepo) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders
		  (id, buyer_id, total_amount, shipping_address, phone_number, payment_id, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.BuyerID, o.TotalAmount, o.ShippingAddress, o.PhoneNumber,
		o.PaymentID, o.Status, o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: payment already attached to an order", apperr.ErrValidation)
		}
		return errors.Wrap(err, "insert order")
	}

	for pos, l := range o.Lines {
		variations, err := json.Marshal(l.SelectedVariations)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines
			  (id, order_id, product_id, seller_id, quantity, price, selected_variations, status, line_pos)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			l.ID, o.ID, l.ProductID, l.SellerID, l.Quantity, l.Price,
			variations, l.Status, pos)
		if err != nil {
			return errors.Wrap(err, "insert order line")
		}
	}

	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := r.scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, id)
		}
		return nil, err
	}
	o.Lines, err = r.listLines(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE buyer_id=$1 ORDER BY created_at DESC`, buyerID)
}

func (r *postgresRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*Order, error) {
	return r.queryOrders(ctx, `
		SELECT DISTINCT o.id, o.buyer_id, o.total_amount, o.shipping_address, o.phone_number,
		       o.payment_id, o.status, o.return_reason, o.return_request_date, o.created_at
		FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		WHERE l.seller_id=$1
		ORDER BY o.created_at DESC`, sellerID)
}

func (r *postgresRepo) Update(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var returnDate interface{}
	if o.ReturnRequestDate != nil {
		returnDate = *o.ReturnRequestDate
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status=$1, return_reason=NULLIF($2,''), return_request_date=$3, updated_at=$4
		WHERE id=$5`,
		o.Status, o.ReturnReason, returnDate, time.Now(), o.ID)
	if err != nil {
		return errors.Wrap(err, "update order")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: order %s", apperr.ErrNotFound, o.ID)
	}

	for _, l := range o.Lines {
		_, err := tx.ExecContext(ctx,
			`UPDATE order_lines SET status=$1 WHERE id=$2 AND order_id=$3`,
			l.Status, l.ID, o.ID)
		if err != nil {
			return errors.Wrap(err, "update order line")
		}
	}

	return tx.Commit()
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scanOrder(row rowScanner) (*Order, error) {
	o := &Order{}
	var returnReason sql.NullString
	var returnDate sql.NullTime
	err := row.Scan(
		&o.ID, &o.BuyerID, &o.TotalAmount, &o.ShippingAddress, &o.PhoneNumber,
		&o.PaymentID, &o.Status, &returnReason, &returnDate, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if returnReason.Valid {
		o.ReturnReason = returnReason.String
	}
	if returnDate.Valid {
		t := returnDate.Time
		o.ReturnRequestDate = &t
	}
	return o, nil
}

func (r *postgresRepo) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.Lines, err = r.listLines(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *postgresRepo) listLines(ctx context.Context, orderID uuid.UUID) ([]*OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, seller_id, quantity, price, selected_variations, status
		FROM order_lines WHERE order_id=$1 ORDER BY line_pos ASC`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "query order lines")
	}
	defer rows.Close()

	var lines []*OrderLine
	for rows.Next() {
		l := &OrderLine{}
		var variations []byte
		if err := rows.Scan(&l.ID, &l.ProductID, &l.SellerID, &l.Quantity,
			&l.Price, &variations, &l.Status); err != nil {
			return nil, err
		}
		if len(variations) > 0 {
			if err := json.Unmarshal(variations, &l.SelectedVariations); err != nil {
				return nil, errors.Wrap(err, "decode selected variations")
			}
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
