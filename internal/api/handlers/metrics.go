// Scheduler observability endpoints: metrics snapshots and the live tuning
// configuration. Config reads reflect the adaptive controller's latest cycle;
// config writes apply operator overrides the controller then tunes from.
package handlers

import (
	"net/http"
	"time"

	"github.com/concave-dev/lockstep/internal/logging"
	"github.com/concave-dev/lockstep/internal/syncer"
	"github.com/gin-gonic/gin"
)

// MetricsResponse wraps a metrics snapshot with the collection timestamp so
// pollers can align samples from different engines.
type MetricsResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Metrics   any       `json:"metrics"`
}

// HandleMetrics returns a point-in-time snapshot of scheduler metrics.
func HandleMetrics(engine SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, MetricsResponse{
			Timestamp: time.Now(),
			Metrics:   engine.GetMetrics(),
		})
	}
}

// HandleConfig returns the engine's current tuning configuration. Values
// drift between requests as the adaptive controller retunes the scheduler.
func HandleConfig(engine SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, engine.ConfigSnapshot())
	}
}

// HandleUpdateConfig applies operator overrides to the tuning surface. The
// payload mirrors the GET /config shape with durations in nanoseconds; zero
// fields keep their current values. Returns the full configuration as stored.
func HandleUpdateConfig(engine SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req syncer.Config
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		updated, err := engine.UpdateConfig(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logging.Info("API: Updated engine tuning configuration")
		c.JSON(http.StatusOK, updated)
	}
}
