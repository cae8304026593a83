package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/roads-authority/roadworks-api/api/swagger"
	"github.com/roads-authority/roadworks-api/internal/handler"
	"github.com/roads-authority/roadworks-api/internal/middleware"
	"github.com/roads-authority/roadworks-api/internal/models"
	"github.com/roads-authority/roadworks-api/internal/service"
	"github.com/roads-authority/roadworks-api/pkg/config"
	"github.com/roads-authority/roadworks-api/pkg/logger"
	corsmiddleware "github.com/roads-authority/roadworks-api/pkg/middleware/cors"
	reqidmiddleware "github.com/roads-authority/roadworks-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *service.MetricsService
	auth      *service.AuthService
	roadworks *handler.RoadworkHandler
	ops       *handler.MetricsHandler
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(logger.Recovery(d.logger))
	r.Use(corsmiddleware.New(corsmiddleware.Config{
		AllowedOrigins: d.cfg.CORS.AllowedOrigins,
		PublicPrefixes: []string{d.cfg.APIPrefix + "/public"},
	}))
	r.Use(middleware.Metrics(d.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", d.ops.Health)
	r.GET("/ready", d.ops.Ready)
	r.GET("/metrics", d.ops.Prometheus)
	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.cfg.APIPrefix)
	api.GET("/public/roadworks", d.roadworks.Public)

	admin := api.Group("/roadworks")
	admin.Use(middleware.JWT(d.auth), middleware.RequireRoles(models.RoleAdmin, models.RoleEditor))
	admin.GET("", d.roadworks.List)
	admin.POST("", d.roadworks.Create)
	admin.GET("/export", d.roadworks.Export)
	admin.POST("/closures", d.roadworks.CreateClosure)
	admin.GET("/:id", d.roadworks.Get)
	admin.PUT("/:id", d.roadworks.Update)
	admin.DELETE("/:id", d.roadworks.Delete)
	admin.GET("/:id/closure", d.roadworks.Closure)
	admin.PUT("/:id/closure", d.roadworks.UpdateClosure)
	admin.POST("/:id/routes/:index/approve", d.roadworks.ApproveRoute)
	admin.GET("/:id/kml", d.roadworks.KML)

	return r
}
