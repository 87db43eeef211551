package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-store/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductRepo implements ports.ProductRepository: the catalog slice the
// order gateway prices and decrements against.
type ProductRepo struct {
	pool Pool
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(pool Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

const productSelect = `SELECT id, merchant_id, title, price::text, inventory, is_active, updated_at
	FROM products`

// GetActiveByID fetches an active product (non-locking read).
func (r *ProductRepo) GetActiveByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, productSelect+` WHERE id = $1 AND is_active`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetActiveByIDForUpdate fetches an active product with a row lock so the
// price read and the inventory decrement see the same row version.
// This MUST be called within a transaction.
func (r *ProductRepo) GetActiveByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Product, error) {
	p, err := scanProduct(tx.QueryRow(ctx, productSelect+` WHERE id = $1 AND is_active FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product for update: %w", err)
	}
	return p, nil
}

// DecrementInventory reduces stock by qty, floor-clamped at zero.
func (r *ProductRepo) DecrementInventory(ctx context.Context, tx pgx.Tx, id int64, qty int) error {
	query := `UPDATE products
		SET inventory = GREATEST(inventory - $1, 0), updated_at = NOW()
		WHERE id = $2`

	tag, err := tx.Exec(ctx, query, qty, id)
	if err != nil {
		return fmt.Errorf("decrement inventory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %d", id)
	}
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	p := &domain.Product{}
	var price string
	if err := row.Scan(&p.ID, &p.MerchantID, &p.Title, &price,
		&p.Inventory, &p.IsActive, &p.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse product price: %w", err)
	}
	return p, nil
}
