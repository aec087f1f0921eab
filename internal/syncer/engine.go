// Engine: the owned facade wiring throttle, batching, merge, queue, dispatch,
// and adaptation into one scheduler instance. Mutation order through the
// pipeline is fixed: throttle, then batch, then merge, then enqueue; metrics
// updates happen in the same completion path that resolves handles, never
// deferred.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/concave-dev/lockstep/internal/logging"
	"github.com/concave-dev/lockstep/internal/viewport"
	"github.com/google/uuid"
)

// Engine is the synchronization optimizer for one viewer session. Create one
// with New, wire it to a render collaborator, Start it, and submit operations
// from interaction producers. All state is in-memory and process-local.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	queue     *priorityQueue
	inFlight  int
	cancelled map[string]struct{}
	stopped   bool

	batcher    *batcher
	throttle   *throttleController
	metrics    *metricsTracker
	groups     *groupRegistry
	dispatcher *dispatcher
	adaptive   *adaptiveController

	baseCtx   context.Context
	cancelCtx context.CancelFunc
	wg        sync.WaitGroup // In-flight dispatch goroutines
}

// New creates an engine dispatching to the given render collaborator. A nil
// config gets defaults; a provided config is validated.
func New(applier viewport.Applier, cfg *Config) (*Engine, error) {
	if applier == nil {
		return nil, fmt.Errorf("viewport applier is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:       *cfg,
		queue:     newPriorityQueue(),
		cancelled: make(map[string]struct{}),
		metrics:   newMetricsTracker(),
		groups:    newGroupRegistry(),
		baseCtx:   ctx,
		cancelCtx: cancel,
	}
	e.throttle = newThrottleController(func() time.Duration {
		return e.ConfigSnapshot().ThrottleThreshold
	})
	e.batcher = newBatcher(func() time.Duration {
		return e.ConfigSnapshot().BatchDelay
	}, e.onFlush)
	e.dispatcher = newDispatcher(applier, func() time.Duration {
		return e.ConfigSnapshot().OperationTimeout
	})
	e.adaptive = newAdaptiveController(e, cfg.AdaptInterval)

	return e, nil
}

// Start launches the adaptive control loop. Submission and dispatch work
// without Start (useful for deterministic tests); only adaptation and the
// periodic metrics tick depend on it.
func (e *Engine) Start() {
	e.adaptive.start()
	logging.Info("Sync: Engine started (concurrency: %d, batch window: %v, throttle floor: %v)",
		e.ConfigSnapshot().MaxConcurrentOperations,
		e.ConfigSnapshot().BatchDelay,
		e.ConfigSnapshot().ThrottleThreshold)
}

// Stop tears the engine down: stops adaptation, force-flushes open batches
// into the queue, drains in-flight and queued dispatches, then cancels the
// dispatch context. Safe to call once; subsequent submissions fail.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	e.adaptive.stop()
	e.batcher.stop()
	e.wg.Wait()
	e.cancelCtx()
	logging.Info("Sync: Engine stopped")
}

// Running reports whether the engine still accepts submissions.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.stopped
}

// SubmitOperation validates and admits one sync operation into the pipeline,
// returning a handle for awaiting the result or cancelling. Malformed
// operations are rejected synchronously with a ValidationError; correctable
// problems (out-of-range priority, source listed among targets) are fixed
// silently.
//
// Re-submitting an already-cancelled operation ID is a no-op: the returned
// handle resolves as cancelled immediately and the operation does not
// re-enter the queue.
func (e *Engine) SubmitOperation(op Operation) (*Handle, error) {
	if err := normalizeOperation(&op); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil, fmt.Errorf("sync engine is stopped")
	}
	_, wasCancelled := e.cancelled[op.ID]
	e.mu.Unlock()

	h := newHandle(op.ID, e)
	if wasCancelled {
		logging.Debug("Sync: Ignoring resubmission of cancelled operation %s",
			logging.FormatOperationID(op.ID))
		h.resolve(Result{OperationID: op.ID, Status: StatusCancelled})
		return h, nil
	}

	e.metrics.recordSubmitted()

	opCopy := op
	if delay := e.throttle.admit(op.BatchKey()); delay > 0 {
		e.metrics.recordThrottled()
		logging.Debug("Throttle: Delaying %s operation from %s by %v",
			op.Type, logging.FormatViewportID(op.SourceViewportID), delay)
		time.AfterFunc(delay, func() { e.route(&opCopy, h) })
	} else {
		e.route(&opCopy, h)
	}

	return h, nil
}

// route sends an admitted operation through batching, or straight to the
// queue when the operation demands exact delivery or its owning group opts
// out of batching.
func (e *Engine) route(op *Operation, h *Handle) {
	if op.Constraints.RequireExactMatch || !e.shouldBatch(op) {
		e.enqueue(&pending{op: op, handles: []*Handle{h}})
		return
	}
	e.batcher.submit(op, h)
}

// shouldBatch reports whether the operation's owning group permits batching.
// Ungrouped operations batch by default.
func (e *Engine) shouldBatch(op *Operation) bool {
	_, constraints, ok := e.groups.owner(op)
	if !ok {
		return true
	}
	return constraints.BatchOperations
}

// onFlush receives an expired batch from the batching engine, collapses it
// through the merge resolver, and enqueues the representative operation.
func (e *Engine) onFlush(entries []batchEntry) {
	ops := make([]*Operation, len(entries))
	handles := make([]*Handle, len(entries))
	for i, entry := range entries {
		ops[i], handles[i] = entry.op, entry.handle
	}

	merged := mergeOperations(ops)
	if merged == nil {
		return
	}
	if len(entries) > 1 {
		e.metrics.recordBatched(len(entries))
		logging.Debug("Batcher: Merged %d %s operations from %s into %s",
			len(entries), merged.Type,
			logging.FormatViewportID(merged.SourceViewportID),
			logging.FormatOperationID(merged.ID))
	}

	e.enqueue(&pending{op: merged, handles: handles})
}

// enqueue inserts a pending entry into the priority queue and pumps the
// dispatcher.
func (e *Engine) enqueue(p *pending) {
	e.mu.Lock()
	e.queue.enqueue(p)
	e.pumpLocked()
	e.mu.Unlock()
}

// pumpLocked starts dispatch goroutines while the concurrency budget allows
// and the queue is non-empty. Caller must hold e.mu.
func (e *Engine) pumpLocked() {
	for e.inFlight < e.cfg.MaxConcurrentOperations {
		p := e.queue.dequeue()
		if p == nil {
			return
		}
		e.inFlight++
		e.wg.Add(1)
		go e.runDispatch(p)
	}
}

// runDispatch executes one dequeued operation, records the outcome into
// process metrics and the owning group's performance in the same completion
// turn, resolves the waiting handles, and pumps the queue again.
func (e *Engine) runDispatch(p *pending) {
	defer e.wg.Done()

	groupID, constraints, hasGroup := e.groups.owner(p.op)
	res := e.dispatcher.dispatch(e.baseCtx, p.op, constraints, hasGroup)

	e.metrics.recordCompletion(res.Latency, res.Status == StatusFailed)
	if hasGroup {
		e.groups.record(groupID, res.Latency, res.Status != StatusFailed)
	}

	switch res.Status {
	case StatusFailed:
		logging.Warn("Dispatcher: Operation %s failed after %v: %v",
			logging.FormatOperationID(p.op.ID), res.Latency, res.Err)
	case StatusPartial:
		logging.Warn("Dispatcher: Operation %s partially synced (%d/%d targets) in %v",
			logging.FormatOperationID(p.op.ID),
			len(p.op.TargetViewportIDs)-len(res.TargetErrors),
			len(p.op.TargetViewportIDs), res.Latency)
	default:
		logging.Debug("Dispatcher: Operation %s completed in %v",
			logging.FormatOperationID(p.op.ID), res.Latency)
	}

	for _, h := range p.handles {
		h.resolve(res)
	}

	e.mu.Lock()
	e.inFlight--
	e.pumpLocked()
	e.mu.Unlock()
}

// Cancel removes a queued or batching operation by ID and reports it as
// cancelled. Operations already dispatched (or consumed by a merge under a
// fresh ID) cannot be cancelled and only time out. Returns true if an
// operation was actually removed.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	p := e.queue.remove(id)
	if p != nil {
		e.cancelled[id] = struct{}{}
	}
	e.mu.Unlock()

	if p != nil {
		res := Result{OperationID: id, Status: StatusCancelled}
		for _, h := range p.handles {
			h.resolve(res)
		}
		logging.Debug("Sync: Cancelled queued operation %s", logging.FormatOperationID(id))
		return true
	}

	// Not queued: the operation may still be accumulating in a batch
	if entry := e.batcher.remove(id); entry != nil {
		e.mu.Lock()
		e.cancelled[id] = struct{}{}
		e.mu.Unlock()
		entry.handle.resolve(Result{OperationID: id, Status: StatusCancelled})
		logging.Debug("Sync: Cancelled batching operation %s", logging.FormatOperationID(id))
		return true
	}

	return false
}

// FlushAll force-flushes every open batching window, pushing accumulated
// operations through merge and into the queue immediately. Producers call
// this before hard synchronization points such as a layout change.
func (e *Engine) FlushAll() {
	e.batcher.flushAll()
}

// ConfigureGroup registers or replaces a sync group, assigning an ID when
// none is provided. Returns the normalized group as stored.
func (e *Engine) ConfigureGroup(g Group) (Group, error) {
	stored, err := e.groups.configure(g)
	if err != nil {
		return Group{}, err
	}
	logging.Info("Sync: Configured group %s (%d viewports, %d types, active: %t)",
		logging.FormatGroupID(stored.ID), len(stored.ViewportIDs), len(stored.SyncTypes), stored.IsActive)
	return stored, nil
}

// SetGroupActive toggles a group's participation in synchronization.
func (e *Engine) SetGroupActive(id string, active bool) error {
	if err := e.groups.setActive(id, active); err != nil {
		return err
	}
	logging.Info("Sync: Group %s active: %t", logging.FormatGroupID(id), active)
	return nil
}

// Groups returns all configured sync groups.
func (e *Engine) Groups() []Group {
	return e.groups.list()
}

// GetMetrics returns a metrics snapshot with freshly computed gauges.
func (e *Engine) GetMetrics() Metrics {
	e.mu.Lock()
	queueLength := e.queue.len()
	e.mu.Unlock()
	e.metrics.setGauges(queueLength, e.groups.activeCount())
	return e.metrics.snapshot()
}

// GetGroupPerformance returns the rolling performance snapshot for a group.
func (e *Engine) GetGroupPerformance(id string) (GroupPerformance, error) {
	return e.groups.performance(id)
}

// OnMetricsTick registers a telemetry callback invoked with a metrics
// snapshot on every adaptive cycle. Callbacks must not block.
func (e *Engine) OnMetricsTick(fn func(Metrics)) {
	e.metrics.subscribe(fn)
}

// UpdateConfig applies operator overrides to the live tuning surface. Zero
// fields keep their current values. The adaptive cadence and throttle quiet
// period are fixed at construction and retained regardless of the input.
func (e *Engine) UpdateConfig(upd Config) (Config, error) {
	e.mu.Lock()
	next := e.cfg
	if upd.MaxConcurrentOperations > 0 {
		next.MaxConcurrentOperations = upd.MaxConcurrentOperations
	}
	if upd.OperationTimeout > 0 {
		next.OperationTimeout = upd.OperationTimeout
	}
	if upd.BatchDelay > 0 {
		next.BatchDelay = upd.BatchDelay
	}
	if upd.ThrottleThreshold > 0 {
		next.ThrottleThreshold = upd.ThrottleThreshold
	}
	next.AdaptInterval = e.cfg.AdaptInterval
	next.ThrottleQuietPeriod = e.cfg.ThrottleQuietPeriod
	if err := next.Validate(); err != nil {
		e.mu.Unlock()
		return Config{}, fmt.Errorf("invalid tuning update: %w", err)
	}
	e.cfg = next
	e.pumpLocked() // A larger concurrency budget may free queued work
	e.mu.Unlock()

	logging.Info("Sync: Tuning updated (concurrency: %d, timeout: %v, batch delay: %v, throttle threshold: %v)",
		next.MaxConcurrentOperations, next.OperationTimeout, next.BatchDelay, next.ThrottleThreshold)
	return next, nil
}

// ConfigSnapshot returns the current tuning configuration. The adaptive
// controller rewrites the live config between cycles, so snapshots from
// different moments may differ.
func (e *Engine) ConfigSnapshot() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// normalizeOperation validates a submission in place: unknown types and
// missing viewports are rejected, while correctable problems are fixed
// (priority clamped, source stripped from targets, defaults filled in).
func normalizeOperation(op *Operation) error {
	if !op.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown sync type %q", op.Type)}
	}
	if op.SourceViewportID == "" {
		return &ValidationError{Field: "source_viewport_id", Reason: "required"}
	}

	// Targets never include the source; strip it and deduplicate while
	// preserving order
	seen := make(map[string]bool, len(op.TargetViewportIDs))
	targets := op.TargetViewportIDs[:0:0]
	for _, target := range op.TargetViewportIDs {
		if target == "" || target == op.SourceViewportID || seen[target] {
			continue
		}
		seen[target] = true
		targets = append(targets, target)
	}
	if len(targets) == 0 {
		return &ValidationError{
			Field:  "target_viewport_ids",
			Reason: "must name at least one viewport other than the source",
		}
	}
	op.TargetViewportIDs = targets

	if op.Priority == 0 && op.Constraints.Priority != 0 {
		op.Priority = op.Constraints.Priority
	}
	op.Priority = ClampPriority(op.Priority)

	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now()
	}
	return nil
}
