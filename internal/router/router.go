package router

import (
	"net/http"

	"github.com/garka/garka-backend/config"
	"github.com/garka/garka-backend/internal/app/controller"
	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/middleware"
	"github.com/garka/garka-backend/pkg/metrics"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authController         *controller.AuthController
	verificationController *controller.VerificationController
	paymentController      *controller.PaymentController
	adminController        *controller.AdminController
	notificationController *controller.NotificationController
	authMiddleware         *middleware.AuthMiddleware
	config                 *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	verificationController *controller.VerificationController,
	paymentController *controller.PaymentController,
	adminController *controller.AdminController,
	notificationController *controller.NotificationController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:         authController,
		verificationController: verificationController,
		paymentController:      paymentController,
		adminController:        adminController,
		notificationController: notificationController,
		authMiddleware:         authMiddleware,
		config:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(metrics.Middleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Garka API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	authn := r.authMiddleware.Authenticate()
	idempotent := middleware.Idempotency(r.config.Redis.IdempotencyTTL)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authController.Login)
			auth.POST("/logout", authn, r.authController.Logout)
			auth.GET("/me", authn, r.authController.GetMe)
		}

		verifications := v1.Group("/verifications", authn)
		{
			verifications.POST("", idempotent, r.verificationController.CreateVerification)
			verifications.GET("/claimable",
				r.authMiddleware.RequireRole(model.RoleAgent, model.RoleDealInitiator, model.RoleAdmin),
				r.verificationController.ListClaimable,
			)
			verifications.GET("/:id", r.verificationController.GetVerification)
			verifications.POST("/:id/claim",
				r.authMiddleware.RequireRole(model.RoleAgent, model.RoleDealInitiator),
				r.verificationController.ClaimVerification,
			)
			verifications.PATCH("/:id/approve",
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.verificationController.ApproveVerification,
			)
			verifications.POST("/:id/distribute",
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.verificationController.RetryDistribution,
			)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/monnify/initiate", authn, idempotent, r.paymentController.InitiatePayment)
			payments.GET("/status/:verificationId", authn, r.paymentController.GetPaymentStatus)
			// authenticated by signature, not by token
			payments.POST("/monnify/webhook", r.paymentController.MonnifyWebhook)
		}

		admin := v1.Group("/admin", authn, r.authMiddleware.RequireRole(model.RoleAdmin))
		{
			admin.POST("/payouts/:transactionId/process", r.adminController.ProcessPayout)
			admin.GET("/payouts/export", r.adminController.ExportPayouts)
			admin.GET("/ops/status", r.adminController.OpsStatus)
			admin.GET("/commission-configs", r.adminController.ListCommissionConfigs)
			admin.POST("/commission-configs", r.adminController.PublishCommissionConfig)
			admin.GET("/commission-configs/calculate", r.adminController.CalculateCommission)
		}

		v1.GET("/notifications/ws", authn, r.notificationController.Connect)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, Idempotency-Key, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
