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

const defaultHistoryLimit = 20

// WalletServiceImpl implements ports.WalletService: payment with tiered
// review, the refund state machine, recharges and policy configuration.
// Every balance movement happens inside one transaction with the wallet row
// locked, and every movement writes a matching ledger entry.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	orderGw    ports.OrderGateway
	orderRepo  ports.OrderRepository
	configRepo ports.WalletConfigRepository
	cache      ports.ConfigCache
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	orderGw ports.OrderGateway,
	orderRepo ports.OrderRepository,
	configRepo ports.WalletConfigRepository,
	cache ports.ConfigCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		orderGw:    orderGw,
		orderRepo:  orderRepo,
		configRepo: configRepo,
		cache:      cache,
		transactor: transactor,
		log:        log,
	}
}

// Overview returns the wallet dashboard payload.
func (s *WalletServiceImpl) Overview(ctx context.Context, userID int64) (*ports.WalletOverview, error) {
	wallet, err := s.walletRepo.Ensure(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("ensure wallet: %w", err))
	}

	cfg, err := s.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := s.txRepo.HasPendingMarker(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("check pending review: %w", err))
	}

	tier := "STANDARD"
	if cfg.EnableTiers {
		if wallet.Balance.GreaterThan(cfg.LowTierLimit) {
			tier = "HIGH"
		} else {
			tier = "LOW"
		}
	}

	return &ports.WalletOverview{
		Balance:                wallet.Balance,
		Tier:                   tier,
		LowTierLimit:           cfg.LowTierLimit,
		PendingReview:          pending,
		EnableTiers:            cfg.EnableTiers,
		HighTierRequiresReview: cfg.HighTierRequiresReview,
	}, nil
}

// Pay settles an order from the wallet, or parks it for review when the
// amount exceeds the low-tier limit. Either an existing order_id or a cart
// is accepted; a cart creates the order inside the same transaction, so a
// failed debit leaves no order behind.
func (s *WalletServiceImpl) Pay(ctx context.Context, user *domain.User, req ports.PayRequest) (*ports.PaymentResult, error) {
	if req.OrderID == nil && len(req.Items) == 0 {
		return nil, apperror.ErrEmptyCart()
	}

	cfg, err := s.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	wallet, err := s.walletRepo.Ensure(ctx, user.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("ensure wallet: %w", err))
	}

	var result *ports.PaymentResult
	err = s.transactor.WithinTransaction(ctx, func(tx pgx.Tx) error {
		order, err := s.resolvePayableOrder(ctx, tx, user, req)
		if err != nil {
			return err
		}
		amount := order.TotalAmount

		if cfg.NeedsReview(amount) {
			// Park the payment: zero-amount marker, no debit, order stays
			// CREATED until an admin verdict. The order is still tagged with
			// its payment method so clients see how it will settle.
			if err := s.orderRepo.SetPaymentMethod(ctx, tx, order.ID, domain.PaymentMethodWallet); err != nil {
				return apperror.ErrDatabaseError(fmt.Errorf("set payment method: %w", err))
			}
			marker := &domain.WalletTransaction{
				WalletID:    wallet.ID,
				TxType:      domain.TxTypePay,
				Amount:      decimal.Zero,
				OrderNumber: order.OrderNumber,
				Metadata: map[string]any{
					"pending_review": true,
					"order_amount":   amount.StringFixed(2),
				},
			}
			if err := s.txRepo.Create(ctx, tx, marker); err != nil {
				return apperror.ErrDatabaseError(fmt.Errorf("record pending marker: %w", err))
			}

			result = s.paymentResult("PENDING_REVIEW", true, wallet.Balance, cfg, order.OrderNumber,
				"Payment amount exceeds the low-tier limit and awaits manual review")
			return nil
		}

		newBalance, err := s.debitForOrder(ctx, tx, user.ID, order, nil)
		if err != nil {
			return err
		}

		result = s.paymentResult("PAID", false, newBalance, cfg, order.OrderNumber, "Payment completed")
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", user.ID).
		Str("order_number", result.OrderNumber).
		Str("status", result.Status).
		Msg("payment processed")
	return result, nil
}

// resolvePayableOrder locks and validates the target order, creating it from
// the cart when no order_id was supplied.
func (s *WalletServiceImpl) resolvePayableOrder(ctx context.Context, tx pgx.Tx, user *domain.User, req ports.PayRequest) (*domain.Order, error) {
	if req.OrderID == nil {
		return s.orderGw.CreateFromCart(ctx, tx, user.ID, req.Items, req.Note, req.ShippingAddress)
	}

	order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, *req.OrderID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock order: %w", err))
	}
	if order == nil || order.ConsumerID != user.ID {
		return nil, apperror.ErrNotFound("Order")
	}
	if order.Status != domain.OrderStatusCreated {
		return nil, apperror.ErrOrderNotPayable()
	}
	return order, nil
}

// debitForOrder locks the consumer's wallet, checks sufficiency, debits the
// order total, writes the PAY ledger entry and marks the order PAID.
// extraMeta is merged into the ledger entry's metadata.
func (s *WalletServiceImpl) debitForOrder(ctx context.Context, tx pgx.Tx, consumerID int64, order *domain.Order, extraMeta map[string]any) (decimal.Decimal, error) {
	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, consumerID)
	if err != nil {
		return decimal.Zero, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return decimal.Zero, apperror.ErrNotFound("Wallet")
	}

	amount := order.TotalAmount
	if wallet.Balance.LessThan(amount) {
		return decimal.Zero, apperror.ErrInsufficientFunds()
	}

	newBalance, err := s.walletRepo.AdjustBalance(ctx, tx, wallet.ID, amount.Neg())
	if err != nil {
		return decimal.Zero, apperror.ErrDatabaseError(fmt.Errorf("debit wallet: %w", err))
	}

	metadata := map[string]any{"order_id": order.ID}
	for k, v := range extraMeta {
		metadata[k] = v
	}
	entry := &domain.WalletTransaction{
		WalletID:    wallet.ID,
		TxType:      domain.TxTypePay,
		Amount:      amount.Neg(),
		OrderNumber: order.OrderNumber,
		Metadata:    metadata,
	}
	if err := s.txRepo.Create(ctx, tx, entry); err != nil {
		return decimal.Zero, apperror.ErrDatabaseError(fmt.Errorf("record payment: %w", err))
	}

	if err := s.orderRepo.SetStatus(ctx, tx, order.ID, domain.OrderStatusPaid); err != nil {
		return decimal.Zero, apperror.ErrDatabaseError(fmt.Errorf("mark order paid: %w", err))
	}
	if err := s.orderRepo.SetPaymentMethod(ctx, tx, order.ID, domain.PaymentMethodWallet); err != nil {
		return decimal.Zero, apperror.ErrDatabaseError(fmt.Errorf("set payment method: %w", err))
	}
	return newBalance, nil
}

func (s *WalletServiceImpl) paymentResult(status string, pending bool, balance decimal.Decimal, cfg *domain.WalletConfig, orderNumber, detail string) *ports.PaymentResult {
	return &ports.PaymentResult{
		Status:                 status,
		PendingReview:          pending,
		Balance:                balance,
		LowTierLimit:           cfg.LowTierLimit,
		OrderNumber:            orderNumber,
		Detail:                 detail,
		EnableTiers:            cfg.EnableTiers,
		HighTierRequiresReview: cfg.HighTierRequiresReview,
	}
}

// Refund executes the refund transition for the caller's role and action.
// Consumers request, merchants approve or reject their storefront's orders,
// admins decide anything and default to a forced approval.
func (s *WalletServiceImpl) Refund(ctx context.Context, user *domain.User, req ports.RefundRequest) (*ports.RefundResult, error) {
	outcome := domain.DecideRefund(user.Role, req.Action)
	if outcome == domain.RefundOutcomeInvalid {
		return nil, apperror.ErrInvalidRefundAction()
	}

	target, err := s.findRefundTarget(ctx, req)
	if err != nil {
		return nil, err
	}

	var result *ports.RefundResult
	err = s.transactor.WithinTransaction(ctx, func(tx pgx.Tx) error {
		order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, target.ID)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock order: %w", err))
		}
		if order == nil {
			return apperror.ErrNotFound("Order")
		}
		if err := checkRefundAccess(user, order); err != nil {
			return err
		}
		if order.IsRefunded() {
			return apperror.ErrAlreadyRefunded()
		}

		switch outcome {
		case domain.RefundOutcomeRequest:
			if !order.CanRefund() {
				return apperror.ErrNotRefundable()
			}
			if err := s.orderRepo.SetRefundStatus(ctx, tx, order.ID, domain.RefundStatusRequested); err != nil {
				return apperror.ErrDatabaseError(fmt.Errorf("mark refund requested: %w", err))
			}
			result = &ports.RefundResult{Status: "REQUESTED", Detail: "Refund request recorded"}
			return nil

		case domain.RefundOutcomeReject:
			if err := s.orderRepo.SetRefundStatus(ctx, tx, order.ID, domain.RefundStatusRejected); err != nil {
				return apperror.ErrDatabaseError(fmt.Errorf("mark refund rejected: %w", err))
			}
			result = &ports.RefundResult{Status: "REJECTED", Detail: "Refund request rejected"}
			return nil

		case domain.RefundOutcomeApply:
			if !order.CanRefund() {
				return apperror.ErrNotRefundable()
			}
			return s.applyRefund(ctx, tx, order, false, &result)

		case domain.RefundOutcomeApplyForced:
			return s.applyRefund(ctx, tx, order, true, &result)
		}
		return apperror.ErrInvalidRefundAction()
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("actor_id", user.ID).
		Str("order_number", target.OrderNumber).
		Str("status", result.Status).
		Msg("refund transition executed")
	return result, nil
}

// applyRefund credits the consumer's wallet with the order total and settles
// the order as CANCELLED/APPROVED.
func (s *WalletServiceImpl) applyRefund(ctx context.Context, tx pgx.Tx, order *domain.Order, forced bool, out **ports.RefundResult) error {
	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, order.ConsumerID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock consumer wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrNotFound("Wallet")
	}

	newBalance, err := s.walletRepo.AdjustBalance(ctx, tx, wallet.ID, order.TotalAmount)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("credit wallet: %w", err))
	}

	entry := &domain.WalletTransaction{
		WalletID:    wallet.ID,
		TxType:      domain.TxTypeRefund,
		Amount:      order.TotalAmount,
		OrderNumber: order.OrderNumber,
		Metadata:    map[string]any{"order_id": order.ID, "forced": forced},
	}
	if err := s.txRepo.Create(ctx, tx, entry); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("record refund: %w", err))
	}

	if err := s.orderRepo.SetStatus(ctx, tx, order.ID, domain.OrderStatusCancelled); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("cancel order: %w", err))
	}
	if err := s.orderRepo.SetRefundStatus(ctx, tx, order.ID, domain.RefundStatusApproved); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("approve refund: %w", err))
	}

	*out = &ports.RefundResult{
		Status:  "REFUNDED",
		Detail:  "Order refunded to consumer wallet",
		Balance: &newBalance,
	}
	return nil
}

// findRefundTarget resolves the order reference without locking; the
// authoritative re-read happens under FOR UPDATE inside the transaction.
func (s *WalletServiceImpl) findRefundTarget(ctx context.Context, req ports.RefundRequest) (*domain.Order, error) {
	var (
		order *domain.Order
		err   error
	)
	switch {
	case req.OrderID != nil:
		order, err = s.orderRepo.GetByID(ctx, *req.OrderID)
	case req.OrderNumber != "":
		order, err = s.orderRepo.GetByNumber(ctx, req.OrderNumber)
	default:
		return nil, apperror.Validation("order_id or order_number is required")
	}
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	return order, nil
}

func checkRefundAccess(user *domain.User, order *domain.Order) error {
	switch user.Role {
	case domain.RoleConsumer:
		if order.ConsumerID != user.ID {
			return apperror.ErrNotFound("Order")
		}
	case domain.RoleMerchant:
		if order.MerchantID != user.ID {
			return apperror.ErrForbidden("Order belongs to another storefront")
		}
	}
	return nil
}

// ReviewPendingPayment settles a payment that was parked for tiered review.
// Approval debits the consumer at verdict time; rejection cancels the order
// without any ledger movement.
func (s *WalletServiceImpl) ReviewPendingPayment(ctx context.Context, req ports.ReviewRequest) (*ports.PaymentResult, error) {
	cfg, err := s.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	marker, err := s.txRepo.GetPendingMarker(ctx, req.OrderNumber)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup pending marker: %w", err))
	}
	if marker == nil {
		return nil, apperror.ErrNotPendingReview()
	}

	target, err := s.orderRepo.GetByNumber(ctx, req.OrderNumber)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup order: %w", err))
	}
	if target == nil {
		return nil, apperror.ErrNotFound("Order")
	}

	var result *ports.PaymentResult
	err = s.transactor.WithinTransaction(ctx, func(tx pgx.Tx) error {
		order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, target.ID)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock order: %w", err))
		}
		// A parked payment leaves the order in CREATED; anything else means
		// the verdict already landed or the order moved on.
		if order == nil || order.Status != domain.OrderStatusCreated {
			return apperror.ErrNotPendingReview()
		}

		if !req.Approve {
			if err := s.orderRepo.SetStatus(ctx, tx, order.ID, domain.OrderStatusCancelled); err != nil {
				return apperror.ErrDatabaseError(fmt.Errorf("cancel order: %w", err))
			}
			result = s.paymentResult("REJECTED", false, decimal.Zero, cfg, order.OrderNumber,
				"Pending payment rejected; no funds were moved")
			return nil
		}

		newBalance, err := s.debitForOrder(ctx, tx, order.ConsumerID, order, map[string]any{"reviewed": true})
		if err != nil {
			return err
		}
		result = s.paymentResult("PAID", false, newBalance, cfg, order.OrderNumber,
			"Pending payment approved and settled")
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_number", req.OrderNumber).
		Bool("approved", req.Approve).
		Msg("pending payment reviewed")
	return result, nil
}

// Recharge credits the wallet and writes a matching ADJUST entry.
func (s *WalletServiceImpl) Recharge(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperror.Validation("recharge amount must be positive")
	}

	if _, err := s.walletRepo.Ensure(ctx, userID); err != nil {
		return decimal.Zero, apperror.ErrDatabaseError(fmt.Errorf("ensure wallet: %w", err))
	}

	var newBalance decimal.Decimal
	err := s.transactor.WithinTransaction(ctx, func(tx pgx.Tx) error {
		wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, userID)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil {
			return apperror.ErrNotFound("Wallet")
		}

		newBalance, err = s.walletRepo.AdjustBalance(ctx, tx, wallet.ID, amount)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("credit wallet: %w", err))
		}

		entry := &domain.WalletTransaction{
			WalletID: wallet.ID,
			TxType:   domain.TxTypeAdjust,
			Amount:   amount,
			Metadata: map[string]any{"source": "recharge"},
		}
		if err := s.txRepo.Create(ctx, tx, entry); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("record recharge: %w", err))
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Info().Int64("user_id", userID).Str("amount", amount.StringFixed(2)).Msg("wallet recharged")
	return newBalance, nil
}

// Transactions lists the user's wallet history, most recent first.
func (s *WalletServiceImpl) Transactions(ctx context.Context, userID int64, limit int) ([]domain.WalletTransaction, error) {
	wallet, err := s.walletRepo.Ensure(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("ensure wallet: %w", err))
	}

	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}
	entries, err := s.txRepo.ListByWallet(ctx, wallet.ID, limit)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list transactions: %w", err))
	}
	return entries, nil
}

// GetConfig returns the payment policy, preferring the Redis cache. Cache
// failures degrade to Postgres rather than failing the request.
func (s *WalletServiceImpl) GetConfig(ctx context.Context) (*domain.WalletConfig, error) {
	cfg, err := s.cache.Get(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("policy cache read failed, falling back to database")
	}
	if cfg != nil {
		return cfg, nil
	}

	cfg, err = s.configRepo.GetOrCreate(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load wallet config: %w", err))
	}
	if err := s.cache.Set(ctx, cfg); err != nil {
		s.log.Warn().Err(err).Msg("policy cache write failed")
	}
	return cfg, nil
}

// UpdateConfig applies a partial policy update and invalidates the cache so
// the next payment sees fresh policy.
func (s *WalletServiceImpl) UpdateConfig(ctx context.Context, update ports.ConfigUpdate) (*domain.WalletConfig, error) {
	cfg, err := s.configRepo.GetOrCreate(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load wallet config: %w", err))
	}

	if update.LowTierLimit != nil {
		if !update.LowTierLimit.IsPositive() {
			return nil, apperror.Validation("low_tier_limit must be positive")
		}
		cfg.LowTierLimit = *update.LowTierLimit
	}
	if update.EnableTiers != nil {
		cfg.EnableTiers = *update.EnableTiers
	}
	if update.HighTierRequiresReview != nil {
		cfg.HighTierRequiresReview = *update.HighTierRequiresReview
	}

	if err := s.configRepo.Update(ctx, cfg); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update wallet config: %w", err))
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("policy cache invalidation failed")
	}

	s.log.Info().
		Str("low_tier_limit", cfg.LowTierLimit.StringFixed(2)).
		Bool("enable_tiers", cfg.EnableTiers).
		Bool("high_tier_requires_review", cfg.HighTierRequiresReview).
		Msg("payment policy updated")
	return cfg, nil
}
