package service

import (
	"context"
	"fmt"

	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports"
	"campus-store/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderServiceImpl implements ports.OrderGateway: the commerce side of a
// wallet payment. CreateFromCart runs inside the payment's transaction so a
// failed debit rolls back the order and its inventory decrements.
type OrderServiceImpl struct {
	orderRepo   ports.OrderRepository
	productRepo ports.ProductRepository
	log         zerolog.Logger
}

// NewOrderService creates a new OrderServiceImpl.
func NewOrderService(
	orderRepo ports.OrderRepository,
	productRepo ports.ProductRepository,
	log zerolog.Logger,
) *OrderServiceImpl {
	return &OrderServiceImpl{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		log:         log,
	}
}

// CreateFromCart prices the cart server-side and creates the order with its
// line items. Prices always come from the catalog; client-submitted amounts
// are never trusted. All cart items must belong to one storefront.
func (s *OrderServiceImpl) CreateFromCart(ctx context.Context, tx pgx.Tx, consumerID int64, items []ports.CartItem, note, shippingAddress string) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, apperror.ErrEmptyCart()
	}

	var (
		merchantID int64
		subtotal   = decimal.Zero
		lines      = make([]domain.OrderItem, 0, len(items))
	)
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, apperror.Validation(fmt.Sprintf("quantity for product %d must be positive", item.ProductID))
		}

		// Lock the product row so the price read and the inventory decrement
		// are consistent under concurrent checkouts.
		product, err := s.productRepo.GetActiveByIDForUpdate(ctx, tx, item.ProductID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("load product: %w", err))
		}
		if product == nil {
			return nil, apperror.ErrProductUnavailable(item.ProductID)
		}
		if merchantID == 0 {
			merchantID = product.MerchantID
		} else if merchantID != product.MerchantID {
			return nil, apperror.Validation("all cart items must belong to the same storefront")
		}

		if err := s.productRepo.DecrementInventory(ctx, tx, product.ID, item.Quantity); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("decrement inventory: %w", err))
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, domain.OrderItem{
			ProductID:     product.ID,
			Quantity:      item.Quantity,
			UnitPrice:     product.Price,
			CustomDetails: item.CustomDetails,
		})
	}

	order := &domain.Order{
		OrderNumber:     domain.NewOrderNumber(),
		ConsumerID:      consumerID,
		MerchantID:      merchantID,
		Status:          domain.OrderStatusCreated,
		RefundStatus:    domain.RefundStatusNone,
		Subtotal:        subtotal,
		TotalAmount:     subtotal,
		Note:            note,
		ShippingAddress: shippingAddress,
		Items:           lines,
	}
	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create order: %w", err))
	}

	s.log.Info().
		Str("order_number", order.OrderNumber).
		Int64("consumer_id", consumerID).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order created from cart")
	return order, nil
}

// GetByIDForConsumer fetches an order only if owned by the consumer.
func (s *OrderServiceImpl) GetByIDForConsumer(ctx context.Context, id int64, consumerID int64) (*domain.Order, error) {
	order, err := s.orderRepo.GetByIDForConsumer(ctx, id, consumerID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return order, nil
}

// GetByID fetches an order by primary key.
func (s *OrderServiceImpl) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return order, nil
}

// GetByNumber fetches an order by external number.
func (s *OrderServiceImpl) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return order, nil
}

// ListForUser returns the orders visible to the user.
func (s *OrderServiceImpl) ListForUser(ctx context.Context, user *domain.User, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	orders, err := s.orderRepo.ListForUser(ctx, user, limit)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return orders, nil
}
