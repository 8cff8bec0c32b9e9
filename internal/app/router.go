package app

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/api/handlers"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/api/middleware"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/config"
)

func newRouter(cfg *config.Config, server *handlers.Server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())

	corsCfg := cors.DefaultConfig()
	if len(cfg.CORS.AllowedOrigins) == 1 && cfg.CORS.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, middleware.RequestIDHeader)
	router.Use(cors.New(corsCfg))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health/live", server.GetHealth)
		v1.POST("/parse", server.PostParse)
		v1.POST("/parse/archive", server.PostParseArchive)
	}
	return router
}
