package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const productColumns = `id, seller_id, name, description, category, images,
	pricing_mode, price, base_price, stock, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products
		  (id, seller_id, name, description, category, images, pricing_mode, price, base_price, stock)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.SellerID, p.Name, p.Description,
		pq.Array(p.Category), pq.Array(p.Images),
		p.Mode, p.Price, p.BasePrice, p.Stock)
	if err != nil {
		return errors.Wrap(err, "insert product")
	}

	if err := insertOptions(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func insertOptions(ctx context.Context, tx *sql.Tx, p *Product) error {
	for vi, v := range p.Variations {
		for oi, o := range v.Options {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO product_options
				  (product_id, variation_name, option_name, price_delta, stock, variation_pos, option_pos)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				p.ID, v.Name, o.Name, o.PriceDelta, o.Stock, vi, oi)
			if err != nil {
				return errors.Wrap(err, "insert product option")
			}
		}
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := r.scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: product %s", apperr.ErrNotFound, id)
		}
		return nil, err
	}
	p.Variations, err = r.loadVariations(ctx, p.ID)
	return p, err
}

func (r *postgresRepo) List(ctx context.Context, category string) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []interface{}{}
	if category != "" {
		query += ` WHERE $1 = ANY(category)`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`
	return r.queryProducts(ctx, query, args...)
}

func (r *postgresRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE seller_id=$1 ORDER BY created_at DESC`, sellerID)
}

func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name=$1, description=$2, category=$3, images=$4,
		    pricing_mode=$5, price=$6, base_price=$7, stock=$8, updated_at=$9
		WHERE id=$10`,
		p.Name, p.Description, pq.Array(p.Category), pq.Array(p.Images),
		p.Mode, p.Price, p.BasePrice, p.Stock, time.Now(), p.ID)
	if err != nil {
		return errors.Wrap(err, "update product")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %s", apperr.ErrNotFound, p.ID)
	}

	// Variations are replaced wholesale on edit.
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_options WHERE product_id=$1`, p.ID); err != nil {
		return errors.Wrap(err, "delete product options")
	}
	if err := insertOptions(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a product. Order lines reference products, so a product
// that has ever been ordered is kept for the order history and the delete
// is rejected as a validation error.
func (r *postgresRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: product has order history and cannot be deleted", apperr.ErrValidation)
		}
		return errors.Wrap(err, "delete product")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %s", apperr.ErrNotFound, id)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// Reserve performs the conditional decrement that keeps stock non-negative.
// The WHERE stock >= quantity guard is the only thing standing between two
// concurrent checkouts and a negative counter, so every stock mutation in
// this file goes through the same shape of statement.
func (r *postgresRepo) Reserve(ctx context.Context, productID uuid.UUID, quantity int, selection []Selection) error {
	if len(selection) == 0 {
		return r.adjustFlatStock(ctx, productID, -quantity)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, sel := range selection {
		res, err := tx.ExecContext(ctx, `
			UPDATE product_options SET stock = stock - $1
			WHERE product_id=$2 AND variation_name=$3 AND option_name=$4 AND stock >= $1`,
			quantity, productID, sel.Name, sel.Option)
		if err != nil {
			return errors.Wrap(err, "reserve option stock")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return r.classifyOptionFailure(ctx, productID, sel)
		}
	}

	// Keep the aggregate equal to the sum of option stocks.
	delta := quantity * len(selection)
	res, err := tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - $1, updated_at=$2 WHERE id=$3 AND stock >= $1`,
		delta, time.Now(), productID)
	if err != nil {
		return errors.Wrap(err, "reserve aggregate stock")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %s", apperr.ErrInsufficientStock, productID)
	}
	return tx.Commit()
}

func (r *postgresRepo) Restore(ctx context.Context, productID uuid.UUID, quantity int, selection []Selection) error {
	if len(selection) == 0 {
		return r.adjustFlatStock(ctx, productID, quantity)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, sel := range selection {
		_, err := tx.ExecContext(ctx, `
			UPDATE product_options SET stock = stock + $1
			WHERE product_id=$2 AND variation_name=$3 AND option_name=$4`,
			quantity, productID, sel.Name, sel.Option)
		if err != nil {
			return errors.Wrap(err, "restore option stock")
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products SET stock = stock + $1, updated_at=$2 WHERE id=$3`,
		quantity*len(selection), time.Now(), productID)
	if err != nil {
		return errors.Wrap(err, "restore aggregate stock")
	}
	return tx.Commit()
}

func (r *postgresRepo) SetFlatStock(ctx context.Context, productID uuid.UUID, stock int) error {
	if stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", apperr.ErrValidation)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET stock=$1, updated_at=$2 WHERE id=$3 AND pricing_mode='flat'`,
		stock, time.Now(), productID)
	if err != nil {
		return errors.Wrap(err, "set flat stock")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: flat product %s", apperr.ErrNotFound, productID)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *postgresRepo) adjustFlatStock(ctx context.Context, productID uuid.UUID, delta int) error {
	query := `UPDATE products SET stock = stock + $1, updated_at=$2 WHERE id=$3 AND pricing_mode='flat'`
	if delta < 0 {
		query += ` AND stock >= -$1`
	}
	res, err := r.db.ExecContext(ctx, query, delta, time.Now(), productID)
	if err != nil {
		return errors.Wrap(err, "adjust flat stock")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM products WHERE id=$1 AND pricing_mode='flat')`, productID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: product %s", apperr.ErrNotFound, productID)
		}
		return fmt.Errorf("%w: product %s", apperr.ErrInsufficientStock, productID)
	}
	return nil
}

func (r *postgresRepo) classifyOptionFailure(ctx context.Context, productID uuid.UUID, sel Selection) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM product_options
		WHERE product_id=$1 AND variation_name=$2 AND option_name=$3)`,
		productID, sel.Name, sel.Option).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %q under variation %q", apperr.ErrUnknownOption, sel.Option, sel.Name)
	}
	return fmt.Errorf("%w: option %q of product %s", apperr.ErrInsufficientStock, sel.Option, productID)
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scanProduct(row rowScanner) (*Product, error) {
	p := &Product{}
	err := row.Scan(
		&p.ID, &p.SellerID, &p.Name, &p.Description,
		pq.Array(&p.Category), pq.Array(&p.Images),
		&p.Mode, &p.Price, &p.BasePrice, &p.Stock,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	for _, p := range products {
		if p.Mode != PricingVariable {
			continue
		}
		if p.Variations, err = r.loadVariations(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return products, nil
}

func (r *postgresRepo) loadVariations(ctx context.Context, productID uuid.UUID) ([]Variation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT variation_name, option_name, price_delta, stock
		FROM product_options
		WHERE product_id=$1
		ORDER BY variation_pos, option_pos`, productID)
	if err != nil {
		return nil, errors.Wrap(err, "query product options")
	}
	defer rows.Close()

	var variations []Variation
	for rows.Next() {
		var vName string
		var o Option
		if err := rows.Scan(&vName, &o.Name, &o.PriceDelta, &o.Stock); err != nil {
			return nil, err
		}
		if len(variations) == 0 || variations[len(variations)-1].Name != vName {
			variations = append(variations, Variation{Name: vName})
		}
		last := &variations[len(variations)-1]
		last.Options = append(last.Options, o)
	}
	return variations, rows.Err()
}
