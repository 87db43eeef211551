package service

import (
	"context"
	"testing"
	"time"

	"campus-store/internal/adapter/storage/postgres"
	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports/mocks"
	"campus-store/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type voucherServiceMocks struct {
	voucherRepo *mocks.MockVoucherRepository
	walletRepo  *mocks.MockWalletRepository
	txRepo      *mocks.MockTransactionRepository
	transactor  *mocks.MockDBTransactor
}

func setupVoucherService(t *testing.T) (*VoucherServiceImpl, *voucherServiceMocks, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	m := &voucherServiceMocks{
		voucherRepo: mocks.NewMockVoucherRepository(ctrl),
		walletRepo:  mocks.NewMockWalletRepository(ctrl),
		txRepo:      mocks.NewMockTransactionRepository(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
	}
	svc := NewVoucherService(m.voucherRepo, m.walletRepo, m.txRepo, m.transactor, logger.New("error", false))
	return svc, m, ctrl
}

func voucherPassThroughTx(m *voucherServiceMocks) {
	m.transactor.EXPECT().WithinTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(pgx.Tx) error) error {
			return fn(nil)
		})
}

func TestVoucherService_Issue_DebitsIssuerUpFront(t *testing.T) {
	svc, m, ctrl := setupVoucherService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	issuer := &domain.User{ID: 1, Role: domain.RoleAdmin}
	wallet := &domain.Wallet{ID: 5, UserID: 1, Balance: dec("100.00")}

	m.walletRepo.EXPECT().Ensure(ctx, int64(1)).Return(wallet, nil)
	voucherPassThroughTx(m)
	m.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, gomock.Any(), int64(1)).Return(wallet, nil)
	m.walletRepo.EXPECT().AdjustBalance(ctx, gomock.Any(), int64(5), dec("-30.00")).Return(dec("70.00"), nil)
	m.txRepo.EXPECT().Create(ctx, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.WalletTransaction) error {
			assert.Equal(t, domain.TxTypeAdjust, entry.TxType)
			assert.True(t, entry.Amount.Equal(dec("-30.00")))
			assert.Equal(t, "voucher_issue", entry.Metadata["source"])
			assert.Equal(t, 3, entry.Metadata["count"])
			return nil
		})
	m.voucherRepo.EXPECT().Create(ctx, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, v *domain.WalletVoucher) error {
			assert.Len(t, v.Code, 12)
			assert.True(t, v.Amount.Equal(dec("10.00")))
			assert.Equal(t, int64(1), v.CreatedBy)
			return nil
		}).Times(3)

	result, err := svc.Issue(ctx, issuer, dec("10.00"), 3)
	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(dec("70.00")))
	assert.Len(t, result.Vouchers, 3)
}

func TestVoucherService_Issue_InsufficientFunds(t *testing.T) {
	svc, m, ctrl := setupVoucherService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	issuer := &domain.User{ID: 1, Role: domain.RoleAdmin}
	wallet := &domain.Wallet{ID: 5, UserID: 1, Balance: dec("25.00")}

	m.walletRepo.EXPECT().Ensure(ctx, int64(1)).Return(wallet, nil)
	voucherPassThroughTx(m)
	m.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, gomock.Any(), int64(1)).Return(wallet, nil)

	_, err := svc.Issue(ctx, issuer, dec("10.00"), 3)
	require.Error(t, err)
	assertAppCode(t, err, "WAL_001")
}

func TestVoucherService_Issue_CountBounds(t *testing.T) {
	svc, _, ctrl := setupVoucherService(t)
	defer ctrl.Finish()

	issuer := &domain.User{ID: 1, Role: domain.RoleAdmin}

	_, err := svc.Issue(context.Background(), issuer, dec("10.00"), 0)
	require.Error(t, err)
	assertAppCode(t, err, "VAL_001")

	_, err = svc.Issue(context.Background(), issuer, dec("10.00"), 51)
	require.Error(t, err)
	assertAppCode(t, err, "VAL_001")

	_, err = svc.Issue(context.Background(), issuer, dec("-1.00"), 1)
	require.Error(t, err)
	assertAppCode(t, err, "VAL_001")
}

func TestVoucherService_Issue_RetriesOnCodeCollision(t *testing.T) {
	svc, m, ctrl := setupVoucherService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	issuer := &domain.User{ID: 1, Role: domain.RoleAdmin}
	wallet := &domain.Wallet{ID: 5, UserID: 1, Balance: dec("100.00")}

	m.walletRepo.EXPECT().Ensure(ctx, int64(1)).Return(wallet, nil)
	voucherPassThroughTx(m)
	m.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, gomock.Any(), int64(1)).Return(wallet, nil)
	m.walletRepo.EXPECT().AdjustBalance(ctx, gomock.Any(), int64(5), dec("-10.00")).Return(dec("90.00"), nil)
	m.txRepo.EXPECT().Create(ctx, gomock.Any(), gomock.Any()).Return(nil)

	gomock.InOrder(
		m.voucherRepo.EXPECT().Create(ctx, gomock.Any(), gomock.Any()).Return(postgres.ErrDuplicateCode),
		m.voucherRepo.EXPECT().Create(ctx, gomock.Any(), gomock.Any()).Return(nil),
	)

	result, err := svc.Issue(ctx, issuer, dec("10.00"), 1)
	require.NoError(t, err)
	assert.Len(t, result.Vouchers, 1)
}

func TestVoucherService_Redeem_CreditsWallet(t *testing.T) {
	svc, m, ctrl := setupVoucherService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	wallet := &domain.Wallet{ID: 9, UserID: 7, Balance: dec("5.00")}
	voucher := &domain.WalletVoucher{ID: 3, Code: "ABCD2345EFGH", Amount: dec("25.00"), CreatedBy: 1}

	m.walletRepo.EXPECT().Ensure(ctx, int64(7)).Return(wallet, nil)
	voucherPassThroughTx(m)
	m.voucherRepo.EXPECT().GetByCodeForUpdate(ctx, gomock.Any(), "ABCD2345EFGH").Return(voucher, nil)
	m.voucherRepo.EXPECT().MarkRedeemed(ctx, gomock.Any(), int64(3), int64(7), gomock.AssignableToTypeOf(time.Time{})).Return(nil)
	m.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, gomock.Any(), int64(7)).Return(wallet, nil)
	m.walletRepo.EXPECT().AdjustBalance(ctx, gomock.Any(), int64(9), dec("25.00")).Return(dec("30.00"), nil)
	m.txRepo.EXPECT().Create(ctx, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.WalletTransaction) error {
			assert.Equal(t, "voucher", entry.Metadata["source"])
			assert.Equal(t, "ABCD2345EFGH", entry.Metadata["code"])
			return nil
		})

	result, err := svc.Redeem(ctx, 7, "ABCD2345EFGH")
	require.NoError(t, err)
	assert.True(t, result.Amount.Equal(dec("25.00")))
	assert.True(t, result.Balance.Equal(dec("30.00")))
}

func TestVoucherService_Redeem_AlreadyRedeemed(t *testing.T) {
	svc, m, ctrl := setupVoucherService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	voucher := &domain.WalletVoucher{ID: 3, Code: "ABCD2345EFGH", Amount: dec("25.00"), IsRedeemed: true}

	m.walletRepo.EXPECT().Ensure(ctx, int64(7)).Return(&domain.Wallet{ID: 9, UserID: 7}, nil)
	voucherPassThroughTx(m)
	m.voucherRepo.EXPECT().GetByCodeForUpdate(ctx, gomock.Any(), "ABCD2345EFGH").Return(voucher, nil)

	_, err := svc.Redeem(ctx, 7, "ABCD2345EFGH")
	require.Error(t, err)
	assertAppCode(t, err, "WAL_004")
}

func TestVoucherService_Redeem_UnknownCode(t *testing.T) {
	svc, m, ctrl := setupVoucherService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	m.walletRepo.EXPECT().Ensure(ctx, int64(7)).Return(&domain.Wallet{ID: 9, UserID: 7}, nil)
	voucherPassThroughTx(m)
	m.voucherRepo.EXPECT().GetByCodeForUpdate(ctx, gomock.Any(), "NOPE").Return(nil, nil)

	_, err := svc.Redeem(ctx, 7, "NOPE")
	require.Error(t, err)
	assertAppCode(t, err, "WAL_002")
}

func TestVoucherService_Redeem_EmptyCode(t *testing.T) {
	svc, _, ctrl := setupVoucherService(t)
	defer ctrl.Finish()

	_, err := svc.Redeem(context.Background(), 7, "")
	require.Error(t, err)
	assertAppCode(t, err, "VAL_001")
}

func TestVoucherService_List(t *testing.T) {
	svc, m, ctrl := setupVoucherService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	m.voucherRepo.EXPECT().List(ctx, 200).Return([]domain.WalletVoucher{{ID: 1}, {ID: 2}}, nil)

	vouchers, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, vouchers, 2)
}
