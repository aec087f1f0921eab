// Sync group management endpoints:
//
//   - GET /api/v1/groups: List all configured sync groups
//   - POST /api/v1/groups: Register or replace a sync group
//   - GET /api/v1/groups/{id}: Group configuration plus rolling performance
//   - GET /api/v1/groups/{id}/performance: Rolling performance only
//   - PUT /api/v1/groups/{id}/active: Activate or deactivate a group
//
// Group registration is idempotent by ID: reconfiguring an existing group
// replaces its policy while preserving its performance history.
package handlers

import (
	"net/http"

	"github.com/concave-dev/lockstep/internal/logging"
	"github.com/concave-dev/lockstep/internal/syncer"
	"github.com/concave-dev/lockstep/internal/validate"
	"github.com/gin-gonic/gin"
)

// GroupConfigureRequest represents the HTTP request payload for registering
// or replacing a sync group.
type GroupConfigureRequest struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	ViewportIDs []string                `json:"viewport_ids" binding:"required,min=2"`
	SyncTypes   []string                `json:"sync_types" binding:"required,min=1"`
	Priority    int                     `json:"priority"`
	IsActive    *bool                   `json:"is_active,omitempty"` // Defaults to true
	Constraints syncer.GroupConstraints `json:"constraints"`
}

// GroupListResponse represents the HTTP response for group listing requests.
type GroupListResponse struct {
	Groups []syncer.Group `json:"groups"`
	Count  int            `json:"count"`
}

// GroupInfoResponse pairs a group's configuration with its rolling
// performance snapshot.
type GroupInfoResponse struct {
	Group       syncer.Group            `json:"group"`
	Performance syncer.GroupPerformance `json:"performance"`
}

// GroupActiveRequest represents the HTTP request payload for toggling a
// group's participation in synchronization.
type GroupActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// HandleListGroups returns all configured sync groups.
func HandleListGroups(engine SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		groups := engine.Groups()
		c.JSON(http.StatusOK, GroupListResponse{Groups: groups, Count: len(groups)})
	}
}

// HandleConfigureGroup registers or replaces a sync group.
func HandleConfigureGroup(engine SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GroupConfigureRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		if req.ID != "" {
			if err := validate.GroupIDFormat(req.ID); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		for _, id := range req.ViewportIDs {
			if err := validate.ViewportIDFormat(id); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		types := make([]syncer.Type, len(req.SyncTypes))
		for i, t := range req.SyncTypes {
			types[i] = syncer.Type(t)
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}

		stored, err := engine.ConfigureGroup(syncer.Group{
			ID:          req.ID,
			Name:        req.Name,
			ViewportIDs: req.ViewportIDs,
			SyncTypes:   types,
			Priority:    req.Priority,
			IsActive:    active,
			Constraints: req.Constraints,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logging.Info("API: Configured sync group %s", logging.FormatGroupID(stored.ID))
		c.JSON(http.StatusCreated, stored)
	}
}

// HandleGroupInfo returns one group's configuration and rolling performance.
func HandleGroupInfo(engine SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		perf, err := engine.GetGroupPerformance(id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		for _, g := range engine.Groups() {
			if g.ID == id {
				c.JSON(http.StatusOK, GroupInfoResponse{Group: g, Performance: perf})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "sync group " + id + " not found"})
	}
}

// HandleGroupPerformance returns only a group's rolling performance snapshot,
// for pollers that track sync quality without the configuration payload.
func HandleGroupPerformance(engine SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		perf, err := engine.GetGroupPerformance(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, perf)
	}
}

// HandleSetGroupActive toggles a group's participation in synchronization.
func HandleSetGroupActive(engine SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var req GroupActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		if err := engine.SetGroupActive(id, *req.Active); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"group_id": id, "active": *req.Active})
	}
}
