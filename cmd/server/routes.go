package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"token-metadata.backend/internal/interfaces/http/handlers"
	"token-metadata.backend/internal/interfaces/http/middleware"
)

const (
	serviceName    = "token-metadata-service"
	serviceVersion = "1.0.0"
)

type routeDeps struct {
	metadataHandler *handlers.MetadataHandler
	webhookHandler  *handlers.WebhookHandler
	adminHandler    *handlers.AdminHandler
	etagMiddleware  gin.HandlerFunc
	adminMiddleware gin.HandlerFunc
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, If-None-Match, Idempotency-Key, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "ETag, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/metadata/v1")
	{
		v1.GET("/", d.metadataHandler.GetStatus)
		v1.GET("/ft/:principal", d.etagMiddleware, d.metadataHandler.GetFt)
		v1.GET("/nft/:principal/:token_id", d.etagMiddleware, d.metadataHandler.GetNft)
		v1.GET("/sft/:principal/:token_id", d.etagMiddleware, d.metadataHandler.GetSft)
	}

	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/chain", d.webhookHandler.HandleChainBlock)
	}

	admin := r.Group("/admin")
	admin.Use(d.adminMiddleware)
	{
		admin.POST("/refresh", middleware.IdempotencyMiddleware(), d.adminHandler.RefreshTokens)
		admin.POST("/jobs/retry-failed", middleware.IdempotencyMiddleware(), d.adminHandler.RetryFailed)
		admin.GET("/jobs", d.adminHandler.ListJobs)
		admin.GET("/rate-limited-hosts", d.adminHandler.ListRateLimitedHosts)
	}
}
