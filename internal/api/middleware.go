package api

import (
	"github.com/concave-dev/lockstep/internal/logging"
	"github.com/gin-gonic/gin"
)

// loggingMiddleware logs API requests in the component-prefixed format used
// across the engine. Observability polls run on a tight cadence from
// dashboards and CLI watch loops, so they log at debug instead of info.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log := logging.Info
		switch param.Path {
		case "/api/v1/health", "/api/v1/metrics":
			log = logging.Debug
		}

		if param.ErrorMessage != "" {
			log("API: %s %s -> %d (%v) from %s: %s",
				param.Method, param.Path, param.StatusCode, param.Latency,
				param.ClientIP, param.ErrorMessage)
		} else {
			log("API: %s %s -> %d (%v) from %s",
				param.Method, param.Path, param.StatusCode, param.Latency,
				param.ClientIP)
		}
		return ""
	})
}

// corsMiddleware lets browser-based viewer front-ends reach the API from an
// origin other than the daemon bind address. The API is unauthenticated JSON
// over the verbs the routes register, so no credential or exposed-header
// grants are made.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Accept, Content-Type")
		c.Header("Access-Control-Max-Age", "300")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
