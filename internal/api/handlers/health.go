package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse reports API liveness together with a coarse view of engine
// state, so one poll answers both "is the daemon up" and "is the scheduler
// draining".
type HealthResponse struct {
	Status       string    `json:"status"` // "healthy" while the engine accepts operations
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	Uptime       string    `json:"uptime"`
	QueueLength  int       `json:"queue_length"`
	ActiveGroups int       `json:"active_groups"`
}

// HandleHealth returns daemon liveness and current engine state. The status
// flips to "stopped" once the engine rejects submissions, which lets probes
// distinguish a draining daemon from a dead one.
func HandleHealth(engine SyncEngine, version string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		if !engine.Running() {
			status = "stopped"
		}
		m := engine.GetMetrics()

		c.JSON(http.StatusOK, HealthResponse{
			Status:       status,
			Timestamp:    time.Now(),
			Version:      version,
			Uptime:       time.Since(startTime).String(),
			QueueLength:  m.QueueLength,
			ActiveGroups: m.ActiveGroups,
		})
	}
}
