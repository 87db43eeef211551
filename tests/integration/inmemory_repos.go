package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campus-store/internal/adapter/storage/postgres"
	"campus-store/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[int64]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return postgres.ErrDuplicateUsername
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now().UTC()
	r.users[u.ID] = u
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *inMemoryUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	nextID  int64
	wallets map[int64]*domain.Wallet // keyed by user ID
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[int64]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Ensure(ctx context.Context, userID int64) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.wallets[userID]; ok {
		copied := *w
		return &copied, nil
	}
	r.nextID++
	w := &domain.Wallet{ID: r.nextID, UserID: userID, Balance: decimal.Zero, UpdatedAt: time.Now().UTC()}
	r.wallets[userID] = w
	copied := *w
	return &copied, nil
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

func (r *inMemoryWalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *inMemoryWalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, walletID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.ID == walletID {
			w.Balance = w.Balance.Add(delta)
			w.UpdatedAt = time.Now().UTC()
			return w.Balance, nil
		}
	}
	return decimal.Zero, fmt.Errorf("wallet not found")
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu      sync.RWMutex
	nextID  int64
	entries []*domain.WalletTransaction
	orders  *inMemoryOrderRepo
}

func newInMemoryTransactionRepo(orders *inMemoryOrderRepo) *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{orders: orders}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	entry.CreatedAt = time.Now().UTC()
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *inMemoryTransactionRepo) ListByWallet(ctx context.Context, walletID int64, limit int) ([]domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WalletTransaction
	for i := len(r.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if r.entries[i].WalletID == walletID {
			result = append(result, *r.entries[i])
		}
	}
	return result, nil
}

func (r *inMemoryTransactionRepo) SumByWallet(ctx context.Context, walletID int64) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range r.entries {
		if e.WalletID == walletID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (r *inMemoryTransactionRepo) HasPendingMarker(ctx context.Context, walletID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.WalletID == walletID && e.IsPendingReviewMarker() && r.orderUnsettled(ctx, e.OrderNumber) {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryTransactionRepo) GetPendingMarker(ctx context.Context, orderNumber string) (*domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.OrderNumber == orderNumber && e.IsPendingReviewMarker() && r.orderUnsettled(ctx, orderNumber) {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) orderUnsettled(ctx context.Context, orderNumber string) bool {
	order, _ := r.orders.GetByNumber(ctx, orderNumber)
	return order != nil && order.Status == domain.OrderStatusCreated
}

// --- In-Memory Voucher Repo ---

type inMemoryVoucherRepo struct {
	mu       sync.RWMutex
	nextID   int64
	vouchers map[string]*domain.WalletVoucher // keyed by code
}

func newInMemoryVoucherRepo() *inMemoryVoucherRepo {
	return &inMemoryVoucherRepo{vouchers: make(map[string]*domain.WalletVoucher)}
}

func (r *inMemoryVoucherRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.WalletVoucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.vouchers[v.Code]; exists {
		return postgres.ErrDuplicateCode
	}
	r.nextID++
	v.ID = r.nextID
	v.CreatedAt = time.Now().UTC()
	copied := *v
	r.vouchers[v.Code] = &copied
	return nil
}

func (r *inMemoryVoucherRepo) GetByCode(ctx context.Context, code string) (*domain.WalletVoucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vouchers[code]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (r *inMemoryVoucherRepo) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*domain.WalletVoucher, error) {
	return r.GetByCode(ctx, code)
}

func (r *inMemoryVoucherRepo) MarkRedeemed(ctx context.Context, tx pgx.Tx, voucherID int64, redeemedBy int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.vouchers {
		if v.ID == voucherID {
			if v.IsRedeemed {
				return fmt.Errorf("voucher already redeemed or missing")
			}
			v.MarkRedeemed(redeemedBy, at)
			return nil
		}
	}
	return fmt.Errorf("voucher already redeemed or missing")
}

func (r *inMemoryVoucherRepo) List(ctx context.Context, limit int) ([]domain.WalletVoucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.WalletVoucher, 0, len(r.vouchers))
	for _, v := range r.vouchers {
		if len(result) >= limit {
			break
		}
		result = append(result, *v)
	}
	return result, nil
}

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu     sync.RWMutex
	nextID int64
	orders map[int64]*domain.Order
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{orders: make(map[int64]*domain.Order)}
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	order.ID = r.nextID
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	copied := *order
	r.orders[order.ID] = &copied
	return nil
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (r *inMemoryOrderRepo) GetByIDForConsumer(ctx context.Context, id int64, consumerID int64) (*domain.Order, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil || o == nil || o.ConsumerID != consumerID {
		return nil, err
	}
	return o, nil
}

func (r *inMemoryOrderRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.OrderNumber == number {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *inMemoryOrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryOrderRepo) SetStatus(ctx context.Context, tx pgx.Tx, id int64, status domain.OrderStatus) error {
	return r.update(id, func(o *domain.Order) { o.Status = status })
}

func (r *inMemoryOrderRepo) SetRefundStatus(ctx context.Context, tx pgx.Tx, id int64, status domain.RefundStatus) error {
	return r.update(id, func(o *domain.Order) { o.RefundStatus = status })
}

func (r *inMemoryOrderRepo) SetPaymentMethod(ctx context.Context, tx pgx.Tx, id int64, method string) error {
	return r.update(id, func(o *domain.Order) { o.PaymentMethod = method })
}

func (r *inMemoryOrderRepo) update(id int64, apply func(*domain.Order)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	apply(o)
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryOrderRepo) ListForUser(ctx context.Context, user *domain.User, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Order
	for _, o := range r.orders {
		if len(result) >= limit {
			break
		}
		switch user.Role {
		case domain.RoleConsumer:
			if o.ConsumerID != user.ID {
				continue
			}
		case domain.RoleMerchant:
			if o.MerchantID != user.ID {
				continue
			}
		}
		result = append(result, *o)
	}
	return result, nil
}

// --- In-Memory Product Repo ---

type inMemoryProductRepo struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
}

func newInMemoryProductRepo(products ...*domain.Product) *inMemoryProductRepo {
	r := &inMemoryProductRepo{products: make(map[int64]*domain.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *inMemoryProductRepo) GetActiveByID(ctx context.Context, id int64) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok || !p.IsActive {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *inMemoryProductRepo) GetActiveByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Product, error) {
	return r.GetActiveByID(ctx, id)
}

func (r *inMemoryProductRepo) DecrementInventory(ctx context.Context, tx pgx.Tx, id int64, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product not found")
	}
	p.Inventory -= qty
	if p.Inventory < 0 {
		p.Inventory = 0
	}
	return nil
}

// --- In-Memory Wallet Config Repo ---

type inMemoryConfigRepo struct {
	mu  sync.RWMutex
	cfg *domain.WalletConfig
}

func newInMemoryConfigRepo() *inMemoryConfigRepo {
	return &inMemoryConfigRepo{}
}

func (r *inMemoryConfigRepo) GetOrCreate(ctx context.Context) (*domain.WalletConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg == nil {
		r.cfg = domain.DefaultWalletConfig()
	}
	copied := *r.cfg
	return &copied, nil
}

func (r *inMemoryConfigRepo) Update(ctx context.Context, cfg *domain.WalletConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *cfg
	r.cfg = &copied
	return nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	copied.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, copied)
	return nil
}

func (r *inMemoryAuditRepo) actions() []domain.AuditAction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes units of work with a single mutex, standing
// in for the row locks the real transactor gets from FOR UPDATE.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

func (t *inMemoryTransactor) WithinTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(&noopTx{})
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
