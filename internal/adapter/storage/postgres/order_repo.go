package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-store/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderSelect = `SELECT id, order_number, consumer_id, merchant_id, status, refund_status,
	subtotal::text, total_amount::text, note, shipping_address, payment_method, created_at, updated_at
	FROM orders`

// Create inserts the order and its line items within the caller's transaction.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	query := `INSERT INTO orders (order_number, consumer_id, merchant_id, status, refund_status,
			subtotal, total_amount, note, shipping_address, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := tx.QueryRow(ctx, query,
		order.OrderNumber, order.ConsumerID, order.MerchantID,
		string(order.Status), string(order.RefundStatus),
		order.Subtotal.StringFixed(2), order.TotalAmount.StringFixed(2),
		order.Note, order.ShippingAddress, order.PaymentMethod,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, quantity, unit_price, custom_details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := tx.QueryRow(ctx, itemQuery,
			order.ID, item.ProductID, item.Quantity,
			item.UnitPrice.StringFixed(2), item.CustomDetails,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// GetByID fetches an order by primary key.
func (r *OrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// GetByIDForConsumer fetches an order only if owned by the consumer.
func (r *OrderRepo) GetByIDForConsumer(ctx context.Context, id int64, consumerID int64) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` WHERE id = $1 AND consumer_id = $2`, id, consumerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order for consumer: %w", err)
	}
	return o, nil
}

// GetByNumber fetches an order by its external order number.
func (r *OrderRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` WHERE order_number = $1`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by number: %w", err)
	}
	return o, nil
}

// GetByIDForUpdate fetches an order with an exclusive row lock; the status
// read under this lock is the mutual-exclusion token between pay and refund.
// This MUST be called within a transaction.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	o, err := scanOrder(tx.QueryRow(ctx, orderSelect+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order for update: %w", err)
	}
	return o, nil
}

// SetStatus updates the lifecycle state within the caller's transaction.
func (r *OrderRepo) SetStatus(ctx context.Context, tx pgx.Tx, id int64, status domain.OrderStatus) error {
	return r.execOrderUpdate(ctx, tx, id, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, string(status))
}

// SetRefundStatus updates the refund approval state within the caller's transaction.
func (r *OrderRepo) SetRefundStatus(ctx context.Context, tx pgx.Tx, id int64, status domain.RefundStatus) error {
	return r.execOrderUpdate(ctx, tx, id, `UPDATE orders SET refund_status = $1, updated_at = NOW() WHERE id = $2`, string(status))
}

// SetPaymentMethod tags the order's payment method within the caller's transaction.
func (r *OrderRepo) SetPaymentMethod(ctx context.Context, tx pgx.Tx, id int64, method string) error {
	return r.execOrderUpdate(ctx, tx, id, `UPDATE orders SET payment_method = $1, updated_at = NOW() WHERE id = $2`, method)
}

func (r *OrderRepo) execOrderUpdate(ctx context.Context, tx pgx.Tx, id int64, query string, value string) error {
	tag, err := tx.Exec(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %d", id)
	}
	return nil
}

// ListForUser returns orders visible to the user: their purchases for
// consumers, their storefront's sales for merchants, everything for admins.
func (r *OrderRepo) ListForUser(ctx context.Context, user *domain.User, limit int) ([]domain.Order, error) {
	var (
		query string
		args  []any
	)
	switch user.Role {
	case domain.RoleMerchant:
		query = orderSelect + ` WHERE merchant_id = $1 ORDER BY created_at DESC LIMIT $2`
		args = []any{user.ID, limit}
	case domain.RoleAdmin:
		query = orderSelect + ` ORDER BY created_at DESC LIMIT $1`
		args = []any{limit}
	default:
		query = orderSelect + ` WHERE consumer_id = $1 ORDER BY created_at DESC LIMIT $2`
		args = []any{user.ID, limit}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	var status, refundStatus, subtotal, totalAmount string
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.ConsumerID, &o.MerchantID,
		&status, &refundStatus, &subtotal, &totalAmount,
		&o.Note, &o.ShippingAddress, &o.PaymentMethod,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.RefundStatus = domain.RefundStatus(refundStatus)

	var err error
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, fmt.Errorf("parse order subtotal: %w", err)
	}
	if o.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("parse order total: %w", err)
	}
	return o, nil
}
