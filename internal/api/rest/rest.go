package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-marketplace/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	auth := middleware.Auth(authCfg)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Marketplace endpoints
		v1.GET("/marketplace", handler.GetMarketplace)
		v1.POST("/marketplace/funds", auth, handler.Fund)
		v1.POST("/marketplace/withdrawals", auth, handler.Withdraw)

		// Token endpoints (public read access, caller required for mutations)
		v1.POST("/tokens", auth, handler.Mint)
		v1.GET("/tokens/:id", handler.GetToken)
		v1.GET("/tokens/:id/listing", handler.GetListing)
		v1.GET("/tokens/:id/listings", handler.ListingHistory)
		v1.POST("/tokens/:id/listing", auth, handler.List)
		v1.DELETE("/tokens/:id/listing", auth, handler.Cancel)
		v1.POST("/tokens/:id/purchase", auth, handler.Purchase)

		// Account endpoints (public read access)
		v1.GET("/accounts/:address", handler.GetAccount)

		// Event journal (public read access)
		v1.GET("/events", handler.ListEvents)
	}
}
