package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-wellness-api/api/swagger"
	"github.com/noah-isme/sma-wellness-api/internal/handler"
	"github.com/noah-isme/sma-wellness-api/internal/middleware"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/service"
	"github.com/noah-isme/sma-wellness-api/pkg/config"
	"github.com/noah-isme/sma-wellness-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-wellness-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-wellness-api/pkg/middleware/requestid"
)

type routeDeps struct {
	auth    middleware.TokenValidator
	audit   middleware.AuditRecorder
	metrics *service.MetricsService

	authH        *handler.AuthHandler
	conversation *handler.ConversationHandler
	mood         *handler.MoodHandler
	alert        *handler.AlertHandler
	export       *handler.ExportHandler
	metricsH     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", deps.metricsH.Health)
	r.GET("/ready", deps.metricsH.Ready)
	r.GET("/metrics", deps.metricsH.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/login", deps.authH.Login)
	auth.POST("/refresh", deps.authH.Refresh)
	auth.POST("/logout", middleware.JWT(deps.auth), deps.authH.Logout)

	// The signed token is the credential for downloads.
	api.GET("/alerts/exports/download", deps.export.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.auth))

	conversations := secured.Group("/conversations")
	conversations.POST("/start", deps.conversation.Start)
	conversations.POST("/messages", deps.conversation.LogMessage)
	conversations.POST("/end", deps.conversation.End)
	conversations.POST("/open-up", deps.conversation.OpenUp)
	conversations.POST("/chat-with-me", deps.conversation.ChatWithMe)

	moods := secured.Group("/moods")
	moods.POST("", deps.mood.Checkin)
	moods.GET("", deps.mood.History)
	moods.GET("/today", deps.mood.Today)

	alerts := secured.Group("/alerts")
	alerts.Use(middleware.RequireAlertReviewer())
	alerts.GET("", deps.alert.List)
	alerts.POST("/referrals", deps.alert.Referral)
	alerts.GET("/risk/:user_id", deps.alert.RiskScore)
	alerts.POST("/exports", deps.export.Create)
	alerts.GET("/exports/:id", deps.export.Status)
	alerts.GET("/:id", middleware.Audit(deps.audit, logr, models.AuditActionAlertView, "mental_health_alert", "id"), deps.alert.Get)
	alerts.POST("/:id/resolve", deps.alert.Resolve)
	alerts.POST("/:id/assign", deps.alert.Assign)

	return r
}
