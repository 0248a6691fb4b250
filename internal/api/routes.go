package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumegenius/internal/api/middleware"
	"resumegenius/internal/auth"
	"resumegenius/internal/config"
)

// Dependencies 聚合路由注册所需的全部依赖。
type Dependencies struct {
	DB          *gorm.DB
	AuthService *auth.AuthService
	Redis       *redis.Client
	Enqueuer    TaskEnqueuer
	Gateway     PaymentGateway
	Storage     ArtifactStore
	Logger      *slog.Logger
	Auth        config.AuthConfig
	API         config.APIConfig
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := NewAuthHandler(
		deps.DB,
		deps.AuthService,
		deps.Redis,
		deps.Logger,
		deps.Auth.LoginRateLimitPerHour,
		deps.Auth.LoginLockThreshold,
		deps.Auth.LoginLockTTL,
		deps.API.CookieDomain,
	)
	profileHandler := NewProfileHandler(deps.DB, deps.Logger)
	subscriptionHandler := NewSubscriptionHandler(deps.DB, deps.Gateway, deps.Logger)
	generateHandler := NewGenerateHandler(deps.DB, deps.Enqueuer, deps.Storage, deps.Logger)
	wsHandler := NewWsHandler(deps.Redis, deps.AuthService, deps.Logger, deps.API.AllowedOrigins)
	authMiddleware := middleware.AuthMiddleware(deps.AuthService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)
		v1.GET("/plans", subscriptionHandler.ListPlans)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		profileGroup := v1.Group("/profile")
		profileGroup.Use(authMiddleware)
		{
			profileGroup.GET("", profileHandler.GetProfile)
			profileGroup.PUT("/personal", profileHandler.SavePersonalInfo)
			profileGroup.PUT("/experience", profileHandler.SaveExperiences)
			profileGroup.PUT("/education", profileHandler.SaveEducations)
			profileGroup.PUT("/skills", profileHandler.SaveSkills)
			profileGroup.PUT("/projects", profileHandler.SaveProjects)
		}

		subscriptionGroup := v1.Group("/subscription")
		subscriptionGroup.Use(authMiddleware)
		{
			subscriptionGroup.GET("", subscriptionHandler.GetSubscription)
			subscriptionGroup.POST("/order", subscriptionHandler.CreateOrder)
			subscriptionGroup.POST("/verify", subscriptionHandler.VerifyPayment)
		}

		resumeGroup := v1.Group("/resume")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.POST("/generate", generateHandler.Generate)
			resumeGroup.GET("/generations", generateHandler.ListGenerations)
			resumeGroup.GET("/artifact", generateHandler.GetArtifactLink)
		}
	}
}
