package api

import (
	"github.com/concave-dev/lockstep/internal/api/handlers"
	"github.com/gin-gonic/gin"
)

// Configures all API routes
func (s *Server) setupRoutes(router *gin.Engine) {
	// API version prefix
	v1 := router.Group("/api/v1")

	// Health check endpoint
	v1.GET("/health", s.handleHealth)

	// Scheduler observability endpoints
	v1.GET("/metrics", handlers.HandleMetrics(s.engine))
	v1.GET("/config", handlers.HandleConfig(s.engine))
	v1.PUT("/config", handlers.HandleUpdateConfig(s.engine))

	// Sync operation endpoints
	operations := v1.Group("/operations")
	{
		operations.POST("", handlers.HandleSubmitOperation(s.engine))
		operations.POST("/flush", handlers.HandleFlushOperations(s.engine))
		operations.DELETE("/:id", handlers.HandleCancelOperation(s.engine))
	}

	// Sync group endpoints
	groups := v1.Group("/groups")
	{
		groups.GET("", handlers.HandleListGroups(s.engine))
		groups.POST("", handlers.HandleConfigureGroup(s.engine))
		groups.GET("/:id", handlers.HandleGroupInfo(s.engine))
		groups.GET("/:id/performance", handlers.HandleGroupPerformance(s.engine))
		groups.PUT("/:id/active", handlers.HandleSetGroupActive(s.engine))
	}
}
