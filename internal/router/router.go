// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/levaja/levaja-backend/internal/config"
	"github.com/levaja/levaja-backend/internal/gateway"
	"github.com/levaja/levaja-backend/internal/handlers"
	"github.com/levaja/levaja-backend/internal/middleware"
	"github.com/levaja/levaja-backend/internal/repository"
	"github.com/levaja/levaja-backend/internal/services"
	"github.com/levaja/levaja-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Repositories
	userRepo := repository.NewUserRepository(db)
	establishmentRepo := repository.NewEstablishmentRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	feeRecordRepo := repository.NewFeeRecordRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Gateway client
	gatewayClient := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.AccessToken,
		cfg.Gateway.OAuthClientID,
		cfg.Gateway.OAuthClientSecret,
		cfg.Gateway.OAuthRedirectURI,
		time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second,
	)

	// Services
	notificationService := services.NewNotificationService(notificationRepo)
	credentialService := services.NewCredentialService(establishmentRepo, gatewayClient, cfg.TokenKey())
	paymentService := services.NewPaymentService(establishmentRepo, gatewayClient, cfg)
	webhookService := services.NewWebhookService(gatewayClient, feeRecordRepo, orderRepo, notificationService)
	refundService := services.NewRefundService(gatewayClient, feeRecordRepo, orderRepo)
	orderService := services.NewOrderService(orderRepo, establishmentRepo, refundService, notificationService)
	authService := services.NewAuthService(userRepo, cfg)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, refundService, webhookService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	oauthHandler := handlers.NewOAuthHandler(credentialService, cfg)
	orderHandler := handlers.NewOrderHandler(orderService, paymentService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// Gateway webhook, no auth: the gateway does not sign in
		v1.POST("/webhook/gateway", webhookHandler.Receive)

		// Establishment OAuth connection
		oauth := v1.Group("/marketplace/oauth")
		{
			oauth.GET("/callback", oauthHandler.Callback)

			// connection management is an admin operation
			protected := oauth.Group("")
			protected.Use(middleware.AuthRequired(), middleware.AdminRequired())
			{
				protected.GET("/authorize/:establishmentId", oauthHandler.Authorize)
				protected.GET("/status/:establishmentId", oauthHandler.Status)
				protected.POST("/refresh/:establishmentId", oauthHandler.Refresh)
				protected.POST("/disconnect/:establishmentId", oauthHandler.Disconnect)
			}
		}

		// Split payments
		payment := v1.Group("/marketplace/payment")
		payment.Use(middleware.AuthRequired())
		{
			payment.POST("/pix", middleware.PaymentRateLimit(), paymentHandler.CreatePix)
			payment.POST("/card", middleware.PaymentRateLimit(), paymentHandler.CreateCard)
			payment.POST("/boleto", middleware.PaymentRateLimit(), paymentHandler.CreateBoleto)
			payment.POST("/refund/:paymentId", paymentHandler.Refund)
			payment.GET("/:paymentId/status", paymentHandler.Status)
			payment.GET("/pix/:paymentId/wait", paymentHandler.WaitPix)
		}

		// Orders
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", orderHandler.Create)
			orders.POST("/confirm", orderHandler.Confirm)
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
			orders.POST("/:id/advance", orderHandler.Advance)
			orders.POST("/:id/cancel", orderHandler.Cancel)
		}
	}

	return r
}
