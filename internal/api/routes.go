package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/auth"
)

// Deps 汇总路由需要的全部依赖。Redis、Queue、Store 可以为 nil，
// 对应功能会降级（不限流、不可导出、不清理导出文件）。
type Deps struct {
	DB          *gorm.DB
	AuthService *auth.AuthService
	Redis       redis.UniversalClient
	Queue       TaskEnqueuer
	Store       ObjectStore
	Logger      *slog.Logger

	LoginLimits    LoginLimits
	CV             CVOptions
	Payment        PaymentOptions
	AllowedOrigins []string
}

// RegisterRoutes 注册 /api 与公开页路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	authHandler := NewAuthHandler(deps.DB, deps.AuthService, deps.Redis, deps.LoginLimits, deps.Logger)
	cvHandler := NewCVHandler(deps.DB, deps.Queue, deps.Store, deps.CV, deps.Logger)
	layoutHandler := NewLayoutHandler(deps.DB, deps.Logger)
	paymentHandler := NewPaymentHandler(deps.DB, deps.Payment, deps.Logger)
	authMiddleware := middleware.AuthMiddleware(deps.AuthService)

	router.GET("/cv/:id", cvHandler.PublicView)

	apiGroup := router.Group("/api")
	{
		if deps.Redis != nil {
			wsHandler := NewWsHandler(deps.Redis, deps.AuthService, deps.Logger, deps.AllowedOrigins)
			apiGroup.GET("/ws", wsHandler.HandleConnection)
		}

		apiGroup.GET("/layouts", layoutHandler.ListLayouts)

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/google-login", authHandler.GoogleLogin)
		}

		cvGroup := apiGroup.Group("/cv")
		cvGroup.Use(authMiddleware)
		{
			cvGroup.GET("", cvHandler.ListCVs)
			cvGroup.POST("", cvHandler.CreateCV)
			cvGroup.GET("/:id", cvHandler.GetCV)
			cvGroup.PUT("/:id", cvHandler.UpdateCV)
			cvGroup.DELETE("/:id", cvHandler.DeleteCV)
			cvGroup.POST("/:id/export", cvHandler.RequestExport)
			cvGroup.GET("/:id/download-link", cvHandler.GetDownloadLink)
		}

		paymentGroup := apiGroup.Group("/payment")
		paymentGroup.Use(authMiddleware)
		{
			paymentGroup.POST("/order", paymentHandler.CreateOrder)
			paymentGroup.POST("/verify", paymentHandler.VerifyPayment)
		}
	}
}
