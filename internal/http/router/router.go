package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/config"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers"
	"github.com/ignatzorin/escrow-backend/internal/http/middleware"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	escrowHandler *handlers.EscrowHandler,
	disputeHandler *handlers.DisputeHandler,
	reviewHandler *handlers.ReviewHandler,
	paymentHandler *handlers.PaymentHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/me", authHandler.Me)
		protectedAuth.GET("/sessions", authHandler.ListSessions)
		protectedAuth.DELETE("/sessions/:id", authHandler.DeleteSession)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		// Эскроу-сделки
		protected.POST("/escrows", escrowHandler.Deposit)
		protected.GET("/escrows", escrowHandler.ListEscrows)
		protected.GET("/escrows/:id", middleware.EscrowIDValidator("id"), escrowHandler.GetEscrow)
		protected.POST("/escrows/:id/sign", middleware.EscrowIDValidator("id"), escrowHandler.Sign)
		protected.POST("/escrows/:id/submit", middleware.EscrowIDValidator("id"), escrowHandler.SubmitWork)
		protected.POST("/escrows/:id/milestones", middleware.EscrowIDValidator("id"), escrowHandler.ReleaseMilestone)
		protected.POST("/escrows/:id/refund", middleware.EscrowIDValidator("id"), escrowHandler.PartialRefund)
		protected.POST("/escrows/:id/approve", middleware.EscrowIDValidator("id"), escrowHandler.ApproveWork)
		protected.POST("/escrows/:id/withdraw", middleware.EscrowIDValidator("id"), escrowHandler.Withdraw)
		protected.POST("/escrows/:id/auto-release", middleware.EscrowIDValidator("id"), escrowHandler.AutoRelease)
		protected.POST("/escrows/:id/check-expiry", middleware.EscrowIDValidator("id"), escrowHandler.CheckExpiry)
		protected.POST("/escrows/:id/extend", middleware.EscrowIDValidator("id"), escrowHandler.ExtendDeadline)

		// Споры
		protected.POST("/escrows/:id/dispute", middleware.EscrowIDValidator("id"), disputeHandler.OpenDispute)
		protected.GET("/escrows/:id/dispute", middleware.EscrowIDValidator("id"), disputeHandler.GetDispute)
		protected.POST("/escrows/:id/dispute/vote", middleware.EscrowIDValidator("id"), disputeHandler.Vote)
		protected.POST("/escrows/:id/dispute/resolve", middleware.EscrowIDValidator("id"), disputeHandler.Resolve)
		protected.POST("/escrows/:id/dispute/evidence", middleware.EscrowIDValidator("id"), disputeHandler.UploadEvidence)

		// Отзывы
		protected.POST("/escrows/:id/reviews", middleware.EscrowIDValidator("id"), reviewHandler.SubmitReview)
		protected.GET("/escrows/:id/reviews", middleware.EscrowIDValidator("id"), reviewHandler.GetReviewHistory)
		protected.GET("/reviews", reviewHandler.ListMyReviews)

		// Платежи
		protected.GET("/payments/balance", paymentHandler.GetBalance)
		protected.POST("/payments/deposit", paymentHandler.TopUp)
		protected.GET("/payments/transactions", paymentHandler.ListTransactions)

		// Уведомления
		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	return r
}
