// Package syncer implements the synchronization optimizer for multi-viewport
// image viewing. This package is the scheduling core of Lockstep: it accepts a
// high-frequency stream of sync operations from interaction producers (pan,
// zoom, window-level, scroll, crosshair, orientation), coalesces and throttles
// them, orders them by priority, and dispatches them to linked viewports under
// an adaptive concurrency budget.
//
// SCHEDULING ARCHITECTURE:
// Operations flow through a fixed pipeline:
//   - Throttle controller: admission delay suppressing per-(type, source) bursts
//   - Batching engine: accumulates same-key operations inside a short window
//   - Merge resolver: collapses a flushed batch into one representative operation
//   - Priority queue: 11 strict-precedence FIFO buckets (priority 0-10)
//   - Dispatcher: bounded overlapping dispatch with per-target timeouts
//   - Adaptive controller: retunes batching/throttling/concurrency from metrics
//
// The engine owns all scheduler state (queue, batch and throttle maps, metrics,
// tuning config) as an explicit instance with construction and teardown; a
// viewer session runs one shared engine, but nothing in this package is a
// singleton.
//
// The engine never interprets operation payloads. Geometry and pixel semantics
// belong to the render collaborator behind the viewport.Applier interface.
package syncer

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Type identifies the kind of viewport parameter a sync operation propagates.
type Type string

// Supported sync operation types.
const (
	TypePan         Type = "pan"
	TypeZoom        Type = "zoom"
	TypeWindowLevel Type = "window-level"
	TypeScroll      Type = "scroll"
	TypeCrosshair   Type = "crosshair"
	TypeOrientation Type = "orientation"
)

// AllTypes returns every supported sync operation type. Used by config
// loading and CLI validation to expand "all" shorthands.
func AllTypes() []Type {
	return []Type{TypePan, TypeZoom, TypeWindowLevel, TypeScroll, TypeCrosshair, TypeOrientation}
}

// Valid reports whether t is a supported sync operation type.
func (t Type) Valid() bool {
	switch t {
	case TypePan, TypeZoom, TypeWindowLevel, TypeScroll, TypeCrosshair, TypeOrientation:
		return true
	}
	return false
}

// Priority bounds for sync operations. Priorities outside this range are
// clamped on ingestion rather than rejected.
const (
	MinPriority = 0
	MaxPriority = 10

	// priorityLevels is the number of FIFO buckets in the priority queue
	priorityLevels = MaxPriority - MinPriority + 1
)

// ClampPriority forces a priority into the supported [MinPriority, MaxPriority]
// range. Out-of-range priorities are a correctable validation problem, so they
// are clamped instead of failing the submission.
func ClampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// Constraints are caller-supplied delivery requirements attached to a single
// operation. They tighten, never loosen, the engine's own scheduling rules.
type Constraints struct {
	// MaxDelay bounds how long the operation may sit in a batching window.
	// Zero means the engine's configured window applies unchanged.
	MaxDelay time.Duration `json:"max_delay,omitempty"`

	// RequireExactMatch bypasses batching and merging entirely: the operation
	// is delivered exactly as submitted.
	RequireExactMatch bool `json:"require_exact_match,omitempty"`

	// AllowPartialSync permits the operation to be reported as partially
	// successful when some targets fail and the owning group tolerates
	// failures.
	AllowPartialSync bool `json:"allow_partial_sync,omitempty"`

	// Priority is an alternative way for producers to express urgency when
	// the operation-level priority is left unset.
	Priority int `json:"priority,omitempty"`
}

// Operation is one synchronization request: a parameter change originating on
// a source viewport that must be propagated to a set of target viewports.
//
// Lifecycle: created by a producer on interaction, consumed exactly once by
// the dispatcher, or discarded by cancellation or by a merge (which produces a
// replacement operation under a fresh ID). Operations are never mutated after
// the merge resolver emits them.
type Operation struct {
	ID                string      `json:"id"`
	Type              Type        `json:"type"`
	SourceViewportID  string      `json:"source_viewport_id"`
	TargetViewportIDs []string    `json:"target_viewport_ids"` // Never includes the source
	Priority          int         `json:"priority"`            // 0-10, clamped on ingestion
	Timestamp         time.Time   `json:"timestamp"`           // Creation time (monotonic clock)
	Data              any         `json:"data,omitempty"`      // Opaque, owned by the renderer
	Constraints       Constraints `json:"constraints"`
}

// BatchKey returns the composite key grouping operations for batching and
// throttling. Same-kind operations from the same source share a key so a
// gesture (one semantic action) coalesces into one dispatched operation.
//
// Built with an explicit separator join rather than dynamic property indexing
// so viewport IDs cannot inject unexpected key shapes.
func (op *Operation) BatchKey() string {
	return strings.Join([]string{string(op.Type), op.SourceViewportID}, "-")
}

// Status describes the terminal outcome of a sync operation.
type Status string

const (
	StatusCompleted Status = "completed" // All targets applied the update
	StatusPartial   Status = "partial"   // Some targets failed, partial sync allowed
	StatusFailed    Status = "failed"    // Operation failed (policy or all targets)
	StatusCancelled Status = "cancelled" // Removed before dispatch
)

// Result is the terminal report for a dispatched (or cancelled) operation.
// TargetErrors attributes failures to individual viewports; Err summarizes
// the overall failure when Status is StatusFailed.
//
// OperationID names the operation that was actually dispatched. After a
// merge this differs from the submitted operation's ID: merged results carry
// the freshly generated ID so stale cancellations never match them.
type Result struct {
	OperationID  string                   `json:"operation_id"`
	Status       Status                   `json:"status"`
	Latency      time.Duration            `json:"latency"`
	TargetErrors map[string]error         `json:"-"`
	Err          error                    `json:"-"`
}

// Handle tracks one submitted operation through the pipeline. Producers use
// it to await the terminal result or to cancel the operation while it is
// still pending.
type Handle struct {
	operationID string
	engine      *Engine

	once   sync.Once
	done   chan struct{}
	result Result
}

func newHandle(operationID string, engine *Engine) *Handle {
	return &Handle{
		operationID: operationID,
		engine:      engine,
		done:        make(chan struct{}),
	}
}

// OperationID returns the ID of the operation as submitted. Note that a
// merged operation dispatches under a different, freshly generated ID; the
// Result reports that ID.
func (h *Handle) OperationID() string {
	return h.operationID
}

// Done returns a channel closed once the operation reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the terminal result. Only valid after Done is closed.
func (h *Handle) Result() Result {
	return h.result
}

// Wait blocks until the operation reaches a terminal state or the context
// expires.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-h.done:
		return h.result, nil
	}
}

// Cancel removes the operation from the pipeline if it has not been dispatched
// yet. Returns true if the operation was cancelled; false if it already
// dispatched (or was consumed by a merge) and can only time out.
func (h *Handle) Cancel() bool {
	return h.engine.Cancel(h.operationID)
}

// resolve records the terminal result exactly once. Late resolutions (e.g. a
// dispatch finishing after a cancellation already resolved the handle) are
// dropped.
func (h *Handle) resolve(res Result) {
	h.once.Do(func() {
		h.result = res
		close(h.done)
	})
}
