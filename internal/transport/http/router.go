package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coldchain/compliance/internal/auth"
	"coldchain/compliance/internal/metrics"
)

type RouterConfig struct {
	Handlers       *Handlers
	Stream         *AlertStream
	Auth           *AuthMiddleware
	Health         map[string]Pinger
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(cfg.Logger))

	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Authorization", "Content-Type", "X-API-Key"},
	}))

	router.GET("/healthz", Health(cfg.Health))
	router.GET("/metrics", gin.WrapF(metrics.HandleMetrics))

	h := cfg.Handlers
	writers := RequireRoles(auth.RoleAdmin, auth.RoleStaff)
	admins := RequireRoles(auth.RoleAdmin)
	readers := RequireRoles(auth.RoleAdmin, auth.RoleStaff, auth.RoleCustomer)

	temp := router.Group("/temperature")
	temp.Use(cfg.Auth.Authenticate())
	{
		temp.POST("/readings", RequireRoles(auth.RoleAdmin, auth.RoleStaff, auth.RoleDevice), h.SubmitReading)
		temp.GET("/readings", readers, h.ListReadings)
		temp.GET("/alerts", readers, h.ListAlerts)
		temp.GET("/alerts/stream", readers, cfg.Stream.Serve)
		temp.GET("/alerts/:id", readers, h.GetAlert)
		temp.POST("/alerts/:id/resolve", writers, h.ResolveAlert)
		temp.GET("/shipments/:id/range", readers, h.ShipmentRange)
		temp.GET("/shipments/:id/live", readers, h.ShipmentLive)
	}

	shipments := router.Group("/shipments")
	shipments.Use(cfg.Auth.Authenticate())
	{
		shipments.POST("", admins, h.RegisterShipment)
		shipments.PATCH("/:id/status", writers, h.UpdateShipmentStatus)
		shipments.PUT("/:id/range", admins, h.SetShipmentRange)
	}

	admin := router.Group("/admin/temperature")
	admin.Use(cfg.Auth.Authenticate(), admins)
	{
		admin.GET("/ranges", h.CategoryRanges)
		admin.PUT("/ranges/:category", h.SetCategoryRange)
	}

	return router
}
