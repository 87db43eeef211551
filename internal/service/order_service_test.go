package service

import (
	"context"
	"testing"

	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports"
	"campus-store/internal/core/ports/mocks"
	"campus-store/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupOrderService(t *testing.T) (*OrderServiceImpl, *mocks.MockOrderRepository, *mocks.MockProductRepository, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	orderRepo := mocks.NewMockOrderRepository(ctrl)
	productRepo := mocks.NewMockProductRepository(ctrl)
	svc := NewOrderService(orderRepo, productRepo, logger.New("error", false))
	return svc, orderRepo, productRepo, ctrl
}

func TestOrderService_CreateFromCart_PricesFromCatalog(t *testing.T) {
	svc, orderRepo, productRepo, ctrl := setupOrderService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	mug := &domain.Product{ID: 11, MerchantID: 3, Title: "Campus Mug", Price: dec("12.50"), Inventory: 40, IsActive: true}
	tee := &domain.Product{ID: 12, MerchantID: 3, Title: "Campus Tee", Price: dec("20.00"), Inventory: 15, IsActive: true}

	productRepo.EXPECT().GetActiveByIDForUpdate(ctx, gomock.Any(), int64(11)).Return(mug, nil)
	productRepo.EXPECT().DecrementInventory(ctx, gomock.Any(), int64(11), 2).Return(nil)
	productRepo.EXPECT().GetActiveByIDForUpdate(ctx, gomock.Any(), int64(12)).Return(tee, nil)
	productRepo.EXPECT().DecrementInventory(ctx, gomock.Any(), int64(12), 1).Return(nil)
	orderRepo.EXPECT().Create(ctx, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, order *domain.Order) error {
			assert.Len(t, order.OrderNumber, 12)
			assert.Equal(t, int64(3), order.MerchantID)
			assert.Equal(t, domain.OrderStatusCreated, order.Status)
			// 2 * 12.50 + 1 * 20.00, priced server-side.
			assert.True(t, order.TotalAmount.Equal(dec("45.00")))
			require.Len(t, order.Items, 2)
			assert.True(t, order.Items[0].UnitPrice.Equal(dec("12.50")))
			order.ID = 9
			return nil
		})

	order, err := svc.CreateFromCart(ctx, nil, 7, []ports.CartItem{
		{ProductID: 11, Quantity: 2},
		{ProductID: 12, Quantity: 1},
	}, "no straw", "dorm 12")
	require.NoError(t, err)
	assert.Equal(t, int64(9), order.ID)
	assert.Equal(t, "dorm 12", order.ShippingAddress)
}

func TestOrderService_CreateFromCart_EmptyCart(t *testing.T) {
	svc, _, _, ctrl := setupOrderService(t)
	defer ctrl.Finish()

	_, err := svc.CreateFromCart(context.Background(), nil, 7, nil, "", "")
	require.Error(t, err)
	assertAppCode(t, err, "VAL_002")
}

func TestOrderService_CreateFromCart_NonPositiveQuantity(t *testing.T) {
	svc, _, _, ctrl := setupOrderService(t)
	defer ctrl.Finish()

	_, err := svc.CreateFromCart(context.Background(), nil, 7, []ports.CartItem{{ProductID: 11, Quantity: 0}}, "", "")
	require.Error(t, err)
	assertAppCode(t, err, "VAL_001")
}

func TestOrderService_CreateFromCart_ProductUnavailable(t *testing.T) {
	svc, _, productRepo, ctrl := setupOrderService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	productRepo.EXPECT().GetActiveByIDForUpdate(ctx, gomock.Any(), int64(11)).Return(nil, nil)

	_, err := svc.CreateFromCart(ctx, nil, 7, []ports.CartItem{{ProductID: 11, Quantity: 1}}, "", "")
	require.Error(t, err)
	assertAppCode(t, err, "VAL_003")
}

func TestOrderService_CreateFromCart_MixedStorefronts(t *testing.T) {
	svc, _, productRepo, ctrl := setupOrderService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	mug := &domain.Product{ID: 11, MerchantID: 3, Price: dec("12.50"), IsActive: true}
	poster := &domain.Product{ID: 21, MerchantID: 4, Price: dec("8.00"), IsActive: true}

	productRepo.EXPECT().GetActiveByIDForUpdate(ctx, gomock.Any(), int64(11)).Return(mug, nil)
	productRepo.EXPECT().DecrementInventory(ctx, gomock.Any(), int64(11), 1).Return(nil)
	productRepo.EXPECT().GetActiveByIDForUpdate(ctx, gomock.Any(), int64(21)).Return(poster, nil)

	_, err := svc.CreateFromCart(ctx, nil, 7, []ports.CartItem{
		{ProductID: 11, Quantity: 1},
		{ProductID: 21, Quantity: 1},
	}, "", "")
	require.Error(t, err)
	assertAppCode(t, err, "VAL_001")
}

func TestOrderService_ListForUser_ClampsLimit(t *testing.T) {
	svc, orderRepo, _, ctrl := setupOrderService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	user := &domain.User{ID: 7, Role: domain.RoleConsumer}

	orderRepo.EXPECT().ListForUser(ctx, user, 20).Return([]domain.Order{}, nil)
	_, err := svc.ListForUser(ctx, user, 0)
	require.NoError(t, err)

	orderRepo.EXPECT().ListForUser(ctx, user, 20).Return([]domain.Order{}, nil)
	_, err = svc.ListForUser(ctx, user, 500)
	require.NoError(t, err)

	orderRepo.EXPECT().ListForUser(ctx, user, 5).Return([]domain.Order{}, nil)
	_, err = svc.ListForUser(ctx, user, 5)
	require.NoError(t, err)
}
