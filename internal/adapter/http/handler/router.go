package handler

import (
	"campus-store/internal/adapter/http/middleware"
	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	VoucherSvc     ports.VoucherService
	OrderGw        ports.OrderGateway
	AuditSvc       ports.AuditService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	v1 := r.Group("/api/v1")
	if deps.AuditSvc != nil {
		v1.Use(middleware.AuditTrail(deps.AuditSvc))
	}
	sessionAuth := middleware.SessionAuth(deps.AuthSvc, deps.Logger)

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", sessionAuth, authHandler.Logout)
	}

	// --- Wallet engine (session-authenticated) ---
	walletHandler := NewWalletHandler(deps.WalletSvc)
	voucherHandler := NewVoucherHandler(deps.VoucherSvc)

	wallet := v1.Group("/wallet", sessionAuth)
	{
		wallet.GET("/overview", walletHandler.Overview)
		wallet.GET("/transactions", walletHandler.Transactions)
		wallet.POST("/pay", middleware.RequireRoles(domain.RoleConsumer), walletHandler.Pay)
		wallet.POST("/refund", walletHandler.Refund)
		wallet.POST("/recharge", middleware.RequireRoles(domain.RoleConsumer), walletHandler.Recharge)

		admin := middleware.RequireRoles() // admin only
		wallet.GET("/config", admin, walletHandler.GetConfig)
		wallet.PUT("/config", admin, walletHandler.UpdateConfig)
		wallet.POST("/payments/review", admin, walletHandler.ReviewPayment)

		wallet.POST("/vouchers/generate", admin, voucherHandler.Generate)
		wallet.GET("/vouchers", admin, voucherHandler.List)
		wallet.POST("/vouchers/redeem", middleware.RequireRoles(domain.RoleConsumer), voucherHandler.Redeem)
	}

	// --- Orders (read-only; session-authenticated) ---
	orderHandler := NewOrderHandler(deps.OrderGw)
	orders := v1.Group("/orders", sessionAuth)
	{
		orders.GET("", orderHandler.List)
		orders.GET("/:id", orderHandler.Get)
	}

	return r
}
