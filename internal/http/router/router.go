package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/wheelitin-backend/internal/config"
	"github.com/ignatzorin/wheelitin-backend/internal/http/handlers"
	"github.com/ignatzorin/wheelitin-backend/internal/http/middleware"
	"github.com/ignatzorin/wheelitin-backend/internal/interface/http/handler"
)

// Deps - хэндлеры и зависимости маршрутизатора.
type Deps struct {
	Reports        *handler.ReportHandler
	WS             *handlers.WSHandler
	Health         *handlers.HealthHandler
	Tokens         middleware.AccessParser
	RateLimitStore limiter.Store
}

func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Env != "production" {
		r.Use(gin.Logger())
	}
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", deps.Health.Health)
	if cfg.BlobBackend == config.BlobBackendLocal && strings.HasPrefix(cfg.MediaPublicURL, "/") {
		r.Static(cfg.MediaPublicURL, cfg.MediaStoragePath)
	}

	api := r.Group("/api")
	api.GET("/ws", deps.WS.Handle)

	reports := api.Group("/reports")
	reports.Use(middleware.AuthMiddleware(deps.Tokens))
	{
		submitLimit := middleware.RateLimitMiddleware(deps.RateLimitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod)
		reports.POST("", submitLimit, deps.Reports.CreateReport)

		reports.GET("/pending", deps.Reports.ListPending)
		reports.GET("/user/:userId", middleware.UUIDValidator("userId"), deps.Reports.ListUserReports)
		reports.GET("/:id", middleware.UUIDValidator("id"), deps.Reports.GetReport)
		reports.POST("/:id/quotations", middleware.UUIDValidator("id"), deps.Reports.SubmitQuotation)
		reports.POST("/:id/accept/:specialistId", middleware.UUIDValidator("id"), middleware.UUIDValidator("specialistId"), deps.Reports.AcceptQuotation)
		reports.POST("/:id/complete", middleware.UUIDValidator("id"), deps.Reports.CompleteReport)
		reports.POST("/:id/reviews", middleware.UUIDValidator("id"), deps.Reports.SubmitReview)
	}

	return r
}
