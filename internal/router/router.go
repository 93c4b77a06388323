package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"labsight/internal/config"
	"labsight/internal/handler"
	"labsight/internal/middleware"
	"labsight/internal/observability/metrics"
	"labsight/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	authSvc service.AuthService,
	authH *handler.AuthHandler,
	docH *handler.DocumentHandler,
	statsH *handler.StatsHandler,
	healthH *handler.HealthHandler,
	m *metrics.PipelineMetrics,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(m.Middleware())

	// Operational endpoints
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.RefreshToken)

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc))

	protected.GET("/auth/me", authH.Me)

	// Document routes
	docs := protected.Group("/documents")
	docs.POST("", docH.Upload)
	docs.GET("", docH.List)
	docs.GET("/:id", docH.GetByID)
	docs.GET("/:id/progress", docH.Progress)
	docs.GET("/:id/events", docH.Events)
	docs.POST("/:id/retry", docH.Retry)
	docs.DELETE("/:id", docH.Delete)
	docs.GET("/:id/export", docH.Export)

	// Dashboard stats
	protected.GET("/stats", statsH.GetStats)

	return r
}
