package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-store/internal/adapter/storage/postgres"
	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports"
	"campus-store/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	maxVouchersPerIssue = 50
	voucherListLimit    = 200
	// codeRetries bounds regeneration on a unique-constraint collision.
	codeRetries = 5
)

// VoucherServiceImpl implements ports.VoucherService. Issuing debits the
// issuer's wallet up front, so every outstanding code is fully funded and
// redemption can never mint money.
type VoucherServiceImpl struct {
	voucherRepo ports.VoucherRepository
	walletRepo  ports.WalletRepository
	txRepo      ports.TransactionRepository
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewVoucherService creates a new VoucherServiceImpl.
func NewVoucherService(
	voucherRepo ports.VoucherRepository,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *VoucherServiceImpl {
	return &VoucherServiceImpl{
		voucherRepo: voucherRepo,
		walletRepo:  walletRepo,
		txRepo:      txRepo,
		transactor:  transactor,
		log:         log,
	}
}

// Issue generates count prepaid codes of the given amount, funded by a
// single debit of amount*count from the issuer's wallet.
func (s *VoucherServiceImpl) Issue(ctx context.Context, issuer *domain.User, amount decimal.Decimal, count int) (*ports.IssueResult, error) {
	if !amount.IsPositive() {
		return nil, apperror.Validation("voucher amount must be positive")
	}
	if count < 1 || count > maxVouchersPerIssue {
		return nil, apperror.Validation(fmt.Sprintf("count must be between 1 and %d", maxVouchersPerIssue))
	}

	if _, err := s.walletRepo.Ensure(ctx, issuer.ID); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("ensure wallet: %w", err))
	}

	total := amount.Mul(decimal.NewFromInt(int64(count)))
	var result *ports.IssueResult

	err := s.transactor.WithinTransaction(ctx, func(tx pgx.Tx) error {
		wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, issuer.ID)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil {
			return apperror.ErrNotFound("Wallet")
		}
		if wallet.Balance.LessThan(total) {
			return apperror.ErrInsufficientFunds()
		}

		newBalance, err := s.walletRepo.AdjustBalance(ctx, tx, wallet.ID, total.Neg())
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("debit issuer: %w", err))
		}

		entry := &domain.WalletTransaction{
			WalletID: wallet.ID,
			TxType:   domain.TxTypeAdjust,
			Amount:   total.Neg(),
			Metadata: map[string]any{"source": "voucher_issue", "count": count},
		}
		if err := s.txRepo.Create(ctx, tx, entry); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("record issue: %w", err))
		}

		vouchers := make([]domain.WalletVoucher, 0, count)
		for i := 0; i < count; i++ {
			v, err := s.createWithRetry(ctx, tx, amount, issuer.ID)
			if err != nil {
				return err
			}
			vouchers = append(vouchers, *v)
		}

		result = &ports.IssueResult{Balance: newBalance, Vouchers: vouchers}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("issuer_id", issuer.ID).
		Int("count", count).
		Str("amount", amount.StringFixed(2)).
		Msg("vouchers issued")
	return result, nil
}

// createWithRetry inserts a voucher, regenerating the code on a
// unique-constraint collision.
func (s *VoucherServiceImpl) createWithRetry(ctx context.Context, tx pgx.Tx, amount decimal.Decimal, createdBy int64) (*domain.WalletVoucher, error) {
	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := domain.NewVoucherCode()
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("generate code: %w", err))
		}

		v := &domain.WalletVoucher{Code: code, Amount: amount, CreatedBy: createdBy}
		err = s.voucherRepo.Create(ctx, tx, v)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, postgres.ErrDuplicateCode) {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("create voucher: %w", err))
		}
	}
	return nil, apperror.InternalError(fmt.Errorf("voucher code collision persisted after %d attempts", codeRetries))
}

// Redeem credits the redeemer's wallet with the voucher amount. The voucher
// row is locked so exactly one concurrent redeemer wins.
func (s *VoucherServiceImpl) Redeem(ctx context.Context, userID int64, code string) (*ports.RedeemResult, error) {
	if code == "" {
		return nil, apperror.Validation("voucher code is required")
	}

	if _, err := s.walletRepo.Ensure(ctx, userID); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("ensure wallet: %w", err))
	}

	var result *ports.RedeemResult
	err := s.transactor.WithinTransaction(ctx, func(tx pgx.Tx) error {
		voucher, err := s.voucherRepo.GetByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock voucher: %w", err))
		}
		if voucher == nil {
			return apperror.ErrNotFound("Voucher")
		}
		if voucher.IsRedeemed {
			return apperror.ErrAlreadyRedeemed()
		}

		now := time.Now().UTC()
		if err := s.voucherRepo.MarkRedeemed(ctx, tx, voucher.ID, userID, now); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("mark redeemed: %w", err))
		}

		wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, userID)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil {
			return apperror.ErrNotFound("Wallet")
		}

		newBalance, err := s.walletRepo.AdjustBalance(ctx, tx, wallet.ID, voucher.Amount)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("credit wallet: %w", err))
		}

		entry := &domain.WalletTransaction{
			WalletID: wallet.ID,
			TxType:   domain.TxTypeAdjust,
			Amount:   voucher.Amount,
			Metadata: map[string]any{"source": "voucher", "code": voucher.Code},
		}
		if err := s.txRepo.Create(ctx, tx, entry); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("record redemption: %w", err))
		}

		result = &ports.RedeemResult{Amount: voucher.Amount, Balance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", userID).Str("amount", result.Amount.StringFixed(2)).Msg("voucher redeemed")
	return result, nil
}

// List returns issued vouchers, most recent first.
func (s *VoucherServiceImpl) List(ctx context.Context) ([]domain.WalletVoucher, error) {
	vouchers, err := s.voucherRepo.List(ctx, voucherListLimit)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list vouchers: %w", err))
	}
	return vouchers, nil
}
