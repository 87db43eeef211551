package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "campus-store/internal/adapter/http/handler"
	redisStorage "campus-store/internal/adapter/storage/redis"
	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports"
	"campus-store/internal/service"
	"campus-store/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds the full application stack on in-memory storage: miniredis
// behind the real Redis stores, in-memory postgres repos behind the real
// services, and the real Gin router on top. Everything except the databases
// is production code.
type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
	rdb    *goredis.Client

	userRepo    *inMemoryUserRepo
	walletRepo  *inMemoryWalletRepo
	productRepo *inMemoryProductRepo
	txRepo      *inMemoryTransactionRepo
	auditRepo   *inMemoryAuditRepo
	hashSvc     ports.HashService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	log := logger.New("error", false)

	userRepo := newInMemoryUserRepo()
	walletRepo := newInMemoryWalletRepo()
	orderRepo := newInMemoryOrderRepo()
	txRepo := newInMemoryTransactionRepo(orderRepo)
	voucherRepo := newInMemoryVoucherRepo()
	configRepo := newInMemoryConfigRepo()
	productRepo := newInMemoryProductRepo(
		&domain.Product{ID: 11, MerchantID: 2, Title: "Campus Mug", Price: decimal.RequireFromString("12.50"), Inventory: 10000, IsActive: true},
		&domain.Product{ID: 12, MerchantID: 2, Title: "Hoodie", Price: decimal.RequireFromString("320.00"), Inventory: 10000, IsActive: true},
	)
	transactor := newInMemoryTransactor()

	sessionStore := redisStorage.NewSessionStore(rdb)
	configCache := redisStorage.NewConfigCache(rdb)
	hashSvc := service.NewArgon2HashService()

	authSvc := service.NewAuthService(userRepo, walletRepo, hashSvc, sessionStore, 12*time.Hour, log)
	orderSvc := service.NewOrderService(orderRepo, productRepo, log)
	walletSvc := service.NewWalletService(walletRepo, txRepo, orderSvc, orderRepo, configRepo, configCache, transactor, log)
	voucherSvc := service.NewVoucherService(voucherRepo, walletRepo, txRepo, transactor, log)
	auditRepo := newInMemoryAuditRepo()
	auditSvc := service.NewAuditService(auditRepo, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:    authSvc,
		WalletSvc:  walletSvc,
		VoucherSvc: voucherSvc,
		OrderGw:    orderSvc,
		AuditSvc:   auditSvc,
		Logger:     log,
	})

	return &testApp{
		server:      httptest.NewServer(router),
		redis:       mr,
		rdb:         rdb,
		userRepo:    userRepo,
		walletRepo:  walletRepo,
		productRepo: productRepo,
		txRepo:      txRepo,
		auditRepo:   auditRepo,
		hashSvc:     hashSvc,
	}
}

func (a *testApp) close() {
	a.server.Close()
	_ = a.rdb.Close()
	a.redis.Close()
}

// seedAdmin inserts an admin account directly; admins cannot self-register.
func (a *testApp) seedAdmin(t *testing.T, username, password string) {
	t.Helper()
	hash, err := a.hashSvc.Hash(password)
	require.NoError(t, err)
	require.NoError(t, a.userRepo.Create(context.Background(), &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}))
}

type apiResponse struct {
	Data      map[string]any `json:"data"`
	ErrorCode string         `json:"error_code"`
	Detail    string         `json:"detail"`
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) (int, *apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Session-Token", token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed apiResponse
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	return resp.StatusCode, &parsed
}

func (a *testApp) register(t *testing.T, username, password string) {
	t.Helper()
	status, _ := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, status)
}

func (a *testApp) login(t *testing.T, username, password string) string {
	t.Helper()
	status, resp := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status)
	token, _ := resp.Data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (a *testApp) recharge(t *testing.T, token, amount string) {
	t.Helper()
	status, _ := a.do(t, http.MethodPost, "/api/v1/wallet/recharge", token, map[string]any{"amount": amount})
	require.Equal(t, http.StatusOK, status)
}

func TestRegisterLoginLogout(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.register(t, "freshman", "StrongPass123")
	token := app.login(t, "freshman", "StrongPass123")

	// Session works
	status, resp := app.do(t, http.MethodGet, "/api/v1/wallet/overview", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0", resp.Data["balance"])

	// Logout kills the session
	status, _ = app.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, resp = app.do(t, http.MethodGet, "/api/v1/wallet/overview", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_003", resp.ErrorCode)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.register(t, "freshman", "StrongPass123")
	status, resp := app.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username": "freshman",
		"password": "AnotherPass456",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "AUTH_002", resp.ErrorCode)
}

func TestCartPaymentSettlesLowTier(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.register(t, "buyer", "StrongPass123")
	token := app.login(t, "buyer", "StrongPass123")
	app.recharge(t, token, "100.00")

	status, resp := app.do(t, http.MethodPost, "/api/v1/wallet/pay", token, map[string]any{
		"items":            []map[string]any{{"product_id": 11, "quantity": 2}},
		"shipping_address": "Dorm 12, Room 304",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PAID", resp.Data["status"])
	assert.Equal(t, "75", resp.Data["balance"])
	orderNumber, _ := resp.Data["order_number"].(string)
	require.Len(t, orderNumber, 12)

	// Order is visible and PAID
	status, resp = app.do(t, http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, status)
	items := resp.Data["items"].([]any)
	require.Len(t, items, 1)
	order := items[0].(map[string]any)
	assert.Equal(t, "PAID", order["status"])
	assert.Equal(t, "wallet", order["payment_method"])
}

func TestInsufficientFundsLeavesNothingBehind(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.register(t, "broke", "StrongPass123")
	token := app.login(t, "broke", "StrongPass123")
	app.recharge(t, token, "5.00")

	status, resp := app.do(t, http.MethodPost, "/api/v1/wallet/pay", token, map[string]any{
		"items": []map[string]any{{"product_id": 11, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WAL_001", resp.ErrorCode)

	// Balance untouched
	status, resp = app.do(t, http.MethodGet, "/api/v1/wallet/overview", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "5", resp.Data["balance"])
}

func TestHighTierPaymentReviewFlow(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.seedAdmin(t, "registrar", "AdminPass123")
	app.register(t, "bigspender", "StrongPass123")
	token := app.login(t, "bigspender", "StrongPass123")
	app.recharge(t, token, "500.00")

	// 320.00 hoodie exceeds the default 200.00 low-tier limit
	status, resp := app.do(t, http.MethodPost, "/api/v1/wallet/pay", token, map[string]any{
		"items": []map[string]any{{"product_id": 12, "quantity": 1}},
	})
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "PENDING_REVIEW", resp.Data["status"])
	orderNumber := resp.Data["order_number"].(string)

	// No money moved yet; overview flags the pending review
	status, resp = app.do(t, http.MethodGet, "/api/v1/wallet/overview", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "500", resp.Data["balance"])
	assert.Equal(t, true, resp.Data["pending_review"])

	// The parked order already carries its payment method while it waits
	status, resp = app.do(t, http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, status)
	parked := resp.Data["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "CREATED", parked["status"])
	assert.Equal(t, "wallet", parked["payment_method"])

	// A consumer cannot review
	status, _ = app.do(t, http.MethodPost, "/api/v1/wallet/payments/review", token, map[string]any{
		"order_number": orderNumber,
		"approve":      true,
	})
	assert.Equal(t, http.StatusForbidden, status)

	// Admin approves; the debit lands at verdict time
	adminToken := app.login(t, "registrar", "AdminPass123")
	status, resp = app.do(t, http.MethodPost, "/api/v1/wallet/payments/review", adminToken, map[string]any{
		"order_number": orderNumber,
		"approve":      true,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PAID", resp.Data["status"])
	assert.Equal(t, "180", resp.Data["balance"])

	// The verdict is idempotent-hostile: a second review finds nothing pending
	status, resp = app.do(t, http.MethodPost, "/api/v1/wallet/payments/review", adminToken, map[string]any{
		"order_number": orderNumber,
		"approve":      true,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WAL_008", resp.ErrorCode)
}

func TestRejectedReviewCancelsWithoutDebit(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.seedAdmin(t, "registrar", "AdminPass123")
	app.register(t, "shopper", "StrongPass123")
	token := app.login(t, "shopper", "StrongPass123")
	app.recharge(t, token, "500.00")

	_, resp := app.do(t, http.MethodPost, "/api/v1/wallet/pay", token, map[string]any{
		"items": []map[string]any{{"product_id": 12, "quantity": 1}},
	})
	orderNumber := resp.Data["order_number"].(string)

	adminToken := app.login(t, "registrar", "AdminPass123")
	status, resp := app.do(t, http.MethodPost, "/api/v1/wallet/payments/review", adminToken, map[string]any{
		"order_number": orderNumber,
		"approve":      false,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "REJECTED", resp.Data["status"])

	status, resp = app.do(t, http.MethodGet, "/api/v1/wallet/overview", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "500", resp.Data["balance"])
	assert.Equal(t, false, resp.Data["pending_review"])
}

func TestRefundLifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.register(t, "claimant", "StrongPass123")
	token := app.login(t, "claimant", "StrongPass123")
	app.recharge(t, token, "100.00")

	_, resp := app.do(t, http.MethodPost, "/api/v1/wallet/pay", token, map[string]any{
		"items": []map[string]any{{"product_id": 11, "quantity": 2}},
	})
	orderNumber := resp.Data["order_number"].(string)

	// Consumer requests a refund; action is optional and defaults to REQUEST
	status, resp := app.do(t, http.MethodPost, "/api/v1/wallet/refund", token, map[string]any{
		"order_number": orderNumber,
	})
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "REQUESTED", resp.Data["status"])

	// Admin with no action defaults to a forced approval; money returns to
	// the consumer
	app.seedAdmin(t, "registrar", "AdminPass123")
	adminToken := app.login(t, "registrar", "AdminPass123")
	status, resp = app.do(t, http.MethodPost, "/api/v1/wallet/refund", adminToken, map[string]any{
		"order_number": orderNumber,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "REFUNDED", resp.Data["status"])

	// A second refund attempt bounces
	status, resp = app.do(t, http.MethodPost, "/api/v1/wallet/refund", adminToken, map[string]any{
		"order_number": orderNumber,
		"action":       "APPROVE",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WAL_005", resp.ErrorCode)

	// Balance back where it started
	status, resp = app.do(t, http.MethodGet, "/api/v1/wallet/overview", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "100", resp.Data["balance"])
}

func TestVoucherIssueAndRedeem(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.seedAdmin(t, "bursar", "AdminPass123")
	adminToken := app.login(t, "bursar", "AdminPass123")
	app.recharge(t, adminToken, "100.00")

	status, resp := app.do(t, http.MethodPost, "/api/v1/wallet/vouchers/generate", adminToken, map[string]any{
		"amount": "25.00",
		"count":  2,
	})
	require.Equal(t, http.StatusCreated, status)
	codes := resp.Data["codes"].([]any)
	require.Len(t, codes, 2)
	assert.Equal(t, "50", resp.Data["balance"])
	code := codes[0].(map[string]any)["code"].(string)

	app.register(t, "redeemer", "StrongPass123")
	token := app.login(t, "redeemer", "StrongPass123")

	status, resp = app.do(t, http.MethodPost, "/api/v1/wallet/vouchers/redeem", token, map[string]any{"code": code})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "25", resp.Data["balance"])

	// Same code again fails
	status, resp = app.do(t, http.MethodPost, "/api/v1/wallet/vouchers/redeem", token, map[string]any{"code": code})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WAL_004", resp.ErrorCode)

	// Consumers cannot issue
	status, _ = app.do(t, http.MethodPost, "/api/v1/wallet/vouchers/generate", token, map[string]any{
		"amount": "10.00",
		"count":  1,
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestConfigUpdateChangesTierBehavior(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.seedAdmin(t, "registrar", "AdminPass123")
	adminToken := app.login(t, "registrar", "AdminPass123")

	// Raise the limit above the hoodie price
	status, _ := app.do(t, http.MethodPut, "/api/v1/wallet/config", adminToken, map[string]any{
		"low_tier_limit": "400.00",
	})
	require.Equal(t, http.StatusOK, status)

	app.register(t, "shopper", "StrongPass123")
	token := app.login(t, "shopper", "StrongPass123")
	app.recharge(t, token, "500.00")

	// The 320.00 hoodie now settles immediately
	status, resp := app.do(t, http.MethodPost, "/api/v1/wallet/pay", token, map[string]any{
		"items": []map[string]any{{"product_id": 12, "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PAID", resp.Data["status"])
}

func TestMerchantRegistrationRequiresStoreName(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	status, _ := app.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username": "seller",
		"password": "StrongPass123",
		"role":     "MERCHANT",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = app.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username":   "seller",
		"password":   "StrongPass123",
		"role":       "MERCHANT",
		"store_name": "Campus Prints",
	})
	assert.Equal(t, http.StatusCreated, status)
}

func TestSessionExpiresWithTTL(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.register(t, "sleeper", "StrongPass123")
	token := app.login(t, "sleeper", "StrongPass123")

	app.redis.FastForward(13 * time.Hour)

	status, resp := app.do(t, http.MethodGet, "/api/v1/wallet/overview", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_003", resp.ErrorCode)
}

func TestLedgerReconciliation(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.seedAdmin(t, "bursar", "AdminPass123")
	adminToken := app.login(t, "bursar", "AdminPass123")
	app.recharge(t, adminToken, "200.00")

	// Issue a voucher, redeem it, pay, refund: every kind of ledger entry.
	status, resp := app.do(t, http.MethodPost, "/api/v1/wallet/vouchers/generate", adminToken, map[string]any{
		"amount": "25.00",
		"count":  1,
	})
	require.Equal(t, http.StatusCreated, status)
	code := resp.Data["codes"].([]any)[0].(map[string]any)["code"].(string)

	app.register(t, "auditee", "StrongPass123")
	token := app.login(t, "auditee", "StrongPass123")
	app.recharge(t, token, "500.00")

	status, _ = app.do(t, http.MethodPost, "/api/v1/wallet/vouchers/redeem", token, map[string]any{"code": code})
	require.Equal(t, http.StatusOK, status)

	status, resp = app.do(t, http.MethodPost, "/api/v1/wallet/pay", token, map[string]any{
		"items": []map[string]any{{"product_id": 11, "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, status)
	orderNumber := resp.Data["order_number"].(string)

	status, _ = app.do(t, http.MethodPost, "/api/v1/wallet/refund", adminToken, map[string]any{
		"order_number": orderNumber,
	})
	require.Equal(t, http.StatusOK, status)

	// Every wallet's denormalized balance must equal the sum of its entries.
	for _, username := range []string{"auditee", "bursar"} {
		user, err := app.userRepo.GetByUsername(context.Background(), username)
		require.NoError(t, err)
		require.NotNil(t, user)
		wallet, err := app.walletRepo.GetByUserID(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotNil(t, wallet)

		sum, err := app.txRepo.SumByWallet(context.Background(), wallet.ID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(sum),
			"wallet %s: balance %s != ledger sum %s", username, wallet.Balance, sum)
	}
}

func TestAdminActionsLeaveAuditTrail(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.seedAdmin(t, "registrar", "AdminPass123")
	adminToken := app.login(t, "registrar", "AdminPass123")
	app.recharge(t, adminToken, "100.00")

	status, _ := app.do(t, http.MethodPut, "/api/v1/wallet/config", adminToken, map[string]any{
		"low_tier_limit": "300.00",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = app.do(t, http.MethodPost, "/api/v1/wallet/vouchers/generate", adminToken, map[string]any{
		"amount": "10.00",
		"count":  1,
	})
	require.Equal(t, http.StatusCreated, status)

	// Audit writes are asynchronous; wait for them to land.
	assert.Eventually(t, func() bool {
		seen := map[domain.AuditAction]bool{}
		for _, action := range app.auditRepo.actions() {
			seen[action] = true
		}
		return seen[domain.AuditActionRecharge] &&
			seen[domain.AuditActionConfigUpdate] &&
			seen[domain.AuditActionVoucherIssue]
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPayingSomeoneElsesOrderIsHidden(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.register(t, "alice01", "StrongPass123")
	aliceToken := app.login(t, "alice01", "StrongPass123")
	app.recharge(t, aliceToken, "100.00")

	_, resp := app.do(t, http.MethodPost, "/api/v1/wallet/pay", aliceToken, map[string]any{
		"items": []map[string]any{{"product_id": 11, "quantity": 1}},
	})
	orderNumber := resp.Data["order_number"].(string)
	require.NotEmpty(t, orderNumber)

	app.register(t, "mallory1", "StrongPass123")
	malloryToken := app.login(t, "mallory1", "StrongPass123")

	status, resp := app.do(t, http.MethodPost, "/api/v1/wallet/refund", malloryToken, map[string]any{
		"order_number": orderNumber,
		"action":       "REQUEST",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "WAL_002", resp.ErrorCode)
}
