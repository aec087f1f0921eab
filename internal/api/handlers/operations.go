// Package handlers provides HTTP request handlers for the Lockstep API server.
//
// This file implements sync operation endpoints for the synchronization
// engine. Handles operation submission, force-flushing of open batching
// windows, and cancellation through RESTful HTTP APIs:
//
//   - POST /api/v1/operations: Submit a sync operation for scheduling
//   - POST /api/v1/operations/flush: Force-flush all open batching windows
//   - DELETE /api/v1/operations/{id}: Cancel a queued or batching operation
//
// SUBMISSION SEMANTICS:
// Submission is asynchronous by default: the handler returns once the engine
// admits the operation, with the assigned operation ID for later cancellation.
// Clients that need the terminal outcome pass ?wait=true, which blocks the
// request until the operation completes, fails, or is cancelled. Note that a
// batched operation resolves under a fresh merged ID reported in the result.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/concave-dev/lockstep/internal/logging"
	"github.com/concave-dev/lockstep/internal/syncer"
	"github.com/concave-dev/lockstep/internal/validate"
	"github.com/gin-gonic/gin"
)

// SyncEngine provides the interface for engine operations the handlers need.
//
// Note on interface placement: this package defines the interface instead of
// depending on the concrete engine type in signatures so handler tests can
// run against a mock without constructing a full scheduling pipeline. The
// concrete *syncer.Engine satisfies it directly.
type SyncEngine interface {
	SubmitOperation(op syncer.Operation) (*syncer.Handle, error)
	Cancel(id string) bool
	FlushAll()
	Running() bool
	GetMetrics() syncer.Metrics
	ConfigSnapshot() syncer.Config
	UpdateConfig(upd syncer.Config) (syncer.Config, error)
	Groups() []syncer.Group
	ConfigureGroup(g syncer.Group) (syncer.Group, error)
	SetGroupActive(id string, active bool) error
	GetGroupPerformance(id string) (syncer.GroupPerformance, error)
}

// OperationSubmitRequest represents the HTTP request payload for submitting a
// sync operation. Mirrors the engine's operation shape minus the fields the
// engine assigns itself (ID, timestamp).
type OperationSubmitRequest struct {
	Type              string             `json:"type" binding:"required"`
	SourceViewportID  string             `json:"source_viewport_id" binding:"required"`
	TargetViewportIDs []string           `json:"target_viewport_ids" binding:"required,min=1"`
	Priority          int                `json:"priority"`
	Data              any                `json:"data,omitempty"`
	Constraints       syncer.Constraints `json:"constraints"`
}

// OperationSubmitResponse represents the HTTP response for an asynchronous
// submission. Contains the assigned operation ID for cancellation and log
// correlation.
type OperationSubmitResponse struct {
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

// OperationResultResponse represents the HTTP response for a synchronous
// (?wait=true) submission: the terminal result of the operation, including
// per-target failures when the sync was partial or failed.
type OperationResultResponse struct {
	OperationID  string            `json:"operation_id"`
	Status       string            `json:"status"`
	LatencyMs    float64           `json:"latency_ms"`
	TargetErrors map[string]string `json:"target_errors,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// HandleSubmitOperation submits a sync operation to the engine.
func HandleSubmitOperation(engine SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OperationSubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		if err := validate.ViewportIDFormat(req.SourceViewportID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		for _, target := range req.TargetViewportIDs {
			if err := validate.ViewportIDFormat(target); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		h, err := engine.SubmitOperation(syncer.Operation{
			Type:              syncer.Type(req.Type),
			SourceViewportID:  req.SourceViewportID,
			TargetViewportIDs: req.TargetViewportIDs,
			Priority:          req.Priority,
			Timestamp:         time.Now(),
			Data:              req.Data,
			Constraints:       req.Constraints,
		})
		if err != nil {
			var ve *syncer.ValidationError
			if errors.As(err, &ve) {
				c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}

		if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
			res, err := h.Wait(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusRequestTimeout, gin.H{"error": "wait aborted: " + err.Error()})
				return
			}
			c.JSON(http.StatusOK, resultResponse(res))
			return
		}

		c.JSON(http.StatusAccepted, OperationSubmitResponse{
			OperationID: h.OperationID(),
			Status:      "accepted",
			Message:     "Operation admitted for scheduling",
		})
	}
}

// HandleFlushOperations force-flushes all open batching windows so
// accumulated operations dispatch immediately. Used by clients before hard
// synchronization points such as a viewer layout change.
func HandleFlushOperations(engine SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		engine.FlushAll()
		c.JSON(http.StatusOK, gin.H{"status": "flushed"})
	}
}

// HandleCancelOperation cancels a queued or batching operation by ID.
// Operations already dispatched (or consumed by a merge) cannot be cancelled
// and report 404.
func HandleCancelOperation(engine SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "operation id is required"})
			return
		}

		if !engine.Cancel(id) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "operation not found in queue or batch (may have already dispatched)",
			})
			return
		}

		logging.Info("API: Cancelled operation %s", logging.FormatOperationID(id))
		c.JSON(http.StatusOK, gin.H{"operation_id": id, "status": string(syncer.StatusCancelled)})
	}
}

// resultResponse converts an engine result into its HTTP representation.
func resultResponse(res syncer.Result) OperationResultResponse {
	out := OperationResultResponse{
		OperationID: res.OperationID,
		Status:      string(res.Status),
		LatencyMs:   float64(res.Latency) / float64(time.Millisecond),
	}
	if len(res.TargetErrors) > 0 {
		out.TargetErrors = make(map[string]string, len(res.TargetErrors))
		for target, err := range res.TargetErrors {
			out.TargetErrors[target] = err.Error()
		}
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}
