package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/concave-dev/lockstep/internal/viewport"
)

// countingApplier records per-viewport apply counts behind a mutex.
type countingApplier struct {
	mu      sync.Mutex
	applied map[string]int
}

func newCountingApplier() *countingApplier {
	return &countingApplier{applied: make(map[string]int)}
}

func (a *countingApplier) Apply(ctx context.Context, viewportID string, update viewport.Update) error {
	a.mu.Lock()
	a.applied[viewportID]++
	a.mu.Unlock()
	return nil
}

func (a *countingApplier) count(viewportID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applied[viewportID]
}

// testEngine builds an engine with a wide batching window so tests control
// flush timing explicitly. The adaptive loop is not started.
func testEngine(t *testing.T, applier viewport.Applier) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BatchDelay = 100 * time.Millisecond
	e, err := New(applier, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(e.Stop)
	return e
}

func waitResult(t *testing.T, h *Handle) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	return res
}

func TestEngineRejectsNilApplier(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("expected error for nil applier")
	}
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrentOperations = 0
	if _, err := New(newCountingApplier(), cfg); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestEngineSubmitValidation(t *testing.T) {
	e := testEngine(t, newCountingApplier())

	tests := []struct {
		name string
		op   Operation
	}{
		{
			name: "unknown type",
			op:   Operation{Type: "rotate3d", SourceViewportID: "vp-a", TargetViewportIDs: []string{"vp-b"}},
		},
		{
			name: "missing source",
			op:   Operation{Type: TypePan, TargetViewportIDs: []string{"vp-b"}},
		},
		{
			name: "no targets",
			op:   Operation{Type: TypePan, SourceViewportID: "vp-a"},
		},
		{
			name: "only target is the source",
			op:   Operation{Type: TypePan, SourceViewportID: "vp-a", TargetViewportIDs: []string{"vp-a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SubmitOperation(tt.op)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("SubmitOperation error = %v, want ValidationError", err)
			}
		})
	}
}

// TestEngineExactMatchDispatch verifies that RequireExactMatch bypasses the
// batching window entirely: the operation completes long before the window
// would have elapsed.
func TestEngineExactMatchDispatch(t *testing.T) {
	applier := newCountingApplier()
	e := testEngine(t, applier)

	h, err := e.SubmitOperation(Operation{
		Type:              TypeOrientation,
		SourceViewportID:  "vp-a",
		TargetViewportIDs: []string{"vp-b", "vp-c"},
		Priority:          9,
		Constraints:       Constraints{RequireExactMatch: true},
	})
	if err != nil {
		t.Fatalf("SubmitOperation failed: %v", err)
	}

	start := time.Now()
	res := waitResult(t, h)
	if res.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", res.Status, StatusCompleted)
	}
	if elapsed := time.Since(start); elapsed > 80*time.Millisecond {
		t.Errorf("exact-match dispatch took %v, should not wait out the batch window", elapsed)
	}
	if applier.count("vp-b") != 1 || applier.count("vp-c") != 1 {
		t.Errorf("apply counts = %v, want one per target", applier.applied)
	}
}

// TestEngineSourceStrippedFromTargets verifies that a source accidentally
// listed among its own targets is silently removed.
func TestEngineSourceStrippedFromTargets(t *testing.T) {
	applier := newCountingApplier()
	e := testEngine(t, applier)

	h, err := e.SubmitOperation(Operation{
		Type:              TypePan,
		SourceViewportID:  "vp-a",
		TargetViewportIDs: []string{"vp-a", "vp-b", "vp-b"},
		Constraints:       Constraints{RequireExactMatch: true},
	})
	if err != nil {
		t.Fatalf("SubmitOperation failed: %v", err)
	}
	waitResult(t, h)

	if applier.count("vp-a") != 0 {
		t.Error("operation echoed back to its source viewport")
	}
	if applier.count("vp-b") != 1 {
		t.Errorf("vp-b applied %d times, want 1 after dedup", applier.count("vp-b"))
	}
}

// TestEngineBatchMerge verifies the batch-and-merge path end to end: rapid
// same-key submissions collapse into one dispatched operation, every handle
// resolves with the merged result, and the merged ID is fresh.
func TestEngineBatchMerge(t *testing.T) {
	applier := newCountingApplier()
	e := testEngine(t, applier)

	submitted := make(map[string]bool)
	var handles []*Handle
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("op-%d", i)
		submitted[id] = true
		h, err := e.SubmitOperation(Operation{
			ID:                id,
			Type:              TypePan,
			SourceViewportID:  "vp-a",
			TargetViewportIDs: []string{fmt.Sprintf("vp-target-%d", i)},
			Timestamp:         time.Now(),
		})
		if err != nil {
			t.Fatalf("SubmitOperation %d failed: %v", i, err)
		}
		handles = append(handles, h)
		time.Sleep(2 * time.Millisecond)
	}

	results := make([]Result, len(handles))
	for i, h := range handles {
		results[i] = waitResult(t, h)
	}

	// All members resolve with the same merged result under a fresh ID
	for i, res := range results {
		if res.Status != StatusCompleted {
			t.Errorf("handle %d status = %s, want %s", i, res.Status, StatusCompleted)
		}
		if res.OperationID != results[0].OperationID {
			t.Errorf("handle %d resolved under %s, want shared merged ID %s",
				i, res.OperationID, results[0].OperationID)
		}
		if submitted[res.OperationID] {
			t.Errorf("merged result reuses member ID %s", res.OperationID)
		}
	}

	// Target union reached every viewport exactly once
	for i := 0; i < 3; i++ {
		target := fmt.Sprintf("vp-target-%d", i)
		if applier.count(target) != 1 {
			t.Errorf("%s applied %d times, want 1", target, applier.count(target))
		}
	}

	m := e.GetMetrics()
	if m.BatchedOperations != 3 {
		t.Errorf("batched operations = %d, want 3", m.BatchedOperations)
	}
}

func TestEngineCancelQueuedOrBatching(t *testing.T) {
	e := testEngine(t, newCountingApplier())

	h, err := e.SubmitOperation(Operation{
		ID:                "op-doomed",
		Type:              TypeScroll,
		SourceViewportID:  "vp-a",
		TargetViewportIDs: []string{"vp-b"},
	})
	if err != nil {
		t.Fatalf("SubmitOperation failed: %v", err)
	}

	if !h.Cancel() {
		t.Fatal("Cancel returned false for batching operation")
	}
	res := waitResult(t, h)
	if res.Status != StatusCancelled {
		t.Errorf("status = %s, want %s", res.Status, StatusCancelled)
	}

	if e.Cancel("op-doomed") {
		t.Error("second Cancel of same ID returned true")
	}
	if e.Cancel("op-unknown") {
		t.Error("Cancel of unknown ID returned true")
	}
}

// TestEngineCancelledResubmissionNoOp verifies that re-submitting a cancelled
// operation ID resolves as cancelled immediately and never dispatches.
func TestEngineCancelledResubmissionNoOp(t *testing.T) {
	applier := newCountingApplier()
	e := testEngine(t, applier)

	op := Operation{
		ID:                "op-ghost",
		Type:              TypeZoom,
		SourceViewportID:  "vp-a",
		TargetViewportIDs: []string{"vp-b"},
	}
	h, err := e.SubmitOperation(op)
	if err != nil {
		t.Fatalf("SubmitOperation failed: %v", err)
	}
	if !h.Cancel() {
		t.Fatal("Cancel returned false")
	}

	h2, err := e.SubmitOperation(op)
	if err != nil {
		t.Fatalf("resubmission failed: %v", err)
	}
	res := waitResult(t, h2)
	if res.Status != StatusCancelled {
		t.Errorf("resubmission status = %s, want %s", res.Status, StatusCancelled)
	}

	time.Sleep(150 * time.Millisecond)
	if applier.count("vp-b") != 0 {
		t.Error("cancelled resubmission still dispatched")
	}
}

// TestEngineStaleCancelMissesMergedOperation verifies that once a batch
// flushes, cancelling by a member ID fails: the merged operation runs under a
// fresh ID the stale cancellation cannot match.
func TestEngineStaleCancelMissesMergedOperation(t *testing.T) {
	gate := make(chan struct{})
	e := testEngine(t, applierFunc(func(ctx context.Context, id string, u viewport.Update) error {
		<-gate
		return nil
	}))

	h, err := e.SubmitOperation(Operation{
		ID:                "op-member",
		Type:              TypePan,
		SourceViewportID:  "vp-a",
		TargetViewportIDs: []string{"vp-b"},
	})
	if err != nil {
		t.Fatalf("SubmitOperation failed: %v", err)
	}

	e.FlushAll()
	time.Sleep(20 * time.Millisecond) // Let the flush reach dispatch

	if e.Cancel("op-member") {
		t.Error("stale cancel matched a merged, already-dispatching operation")
	}
	close(gate)

	if res := waitResult(t, h); res.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", res.Status, StatusCompleted)
	}
}

// TestEngineGroupBatchingOptOut verifies that operations owned by a group
// with batching disabled dispatch individually without waiting out a window.
func TestEngineGroupBatchingOptOut(t *testing.T) {
	applier := newCountingApplier()
	e := testEngine(t, applier)

	if _, err := e.ConfigureGroup(Group{
		ID:          "grp-nobatch",
		ViewportIDs: []string{"vp-a", "vp-b"},
		SyncTypes:   []Type{TypeCrosshair},
		IsActive:    true,
		Constraints: GroupConstraints{BatchOperations: false},
	}); err != nil {
		t.Fatalf("ConfigureGroup failed: %v", err)
	}

	h, err := e.SubmitOperation(Operation{
		Type:              TypeCrosshair,
		SourceViewportID:  "vp-a",
		TargetViewportIDs: []string{"vp-b"},
	})
	if err != nil {
		t.Fatalf("SubmitOperation failed: %v", err)
	}

	start := time.Now()
	res := waitResult(t, h)
	if res.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", res.Status, StatusCompleted)
	}
	if elapsed := time.Since(start); elapsed > 80*time.Millisecond {
		t.Errorf("opted-out dispatch took %v, should skip the batch window", elapsed)
	}
}

// TestEnginePartialSyncRecordedAsSuccess verifies that a partial sync counts
// toward the owning group's success rate rather than against it.
func TestEnginePartialSyncRecordedAsSuccess(t *testing.T) {
	e := testEngine(t, applierFunc(func(ctx context.Context, id string, u viewport.Update) error {
		if id == "vp-bad" {
			return errors.New("apply failed")
		}
		return nil
	}))

	if _, err := e.ConfigureGroup(Group{
		ID:          "grp-tolerant",
		ViewportIDs: []string{"vp-a", "vp-good", "vp-bad"},
		SyncTypes:   []Type{TypeWindowLevel},
		IsActive:    true,
		Constraints: GroupConstraints{TolerateFailures: true, BatchOperations: true},
	}); err != nil {
		t.Fatalf("ConfigureGroup failed: %v", err)
	}

	h, err := e.SubmitOperation(Operation{
		Type:              TypeWindowLevel,
		SourceViewportID:  "vp-a",
		TargetViewportIDs: []string{"vp-good", "vp-bad"},
		Constraints:       Constraints{AllowPartialSync: true, RequireExactMatch: true},
	})
	if err != nil {
		t.Fatalf("SubmitOperation failed: %v", err)
	}

	res := waitResult(t, h)
	if res.Status != StatusPartial {
		t.Fatalf("status = %s, want %s", res.Status, StatusPartial)
	}
	if len(res.TargetErrors) != 1 {
		t.Errorf("target errors = %v, want exactly vp-bad", res.TargetErrors)
	}

	perf, err := e.GetGroupPerformance("grp-tolerant")
	if err != nil {
		t.Fatalf("GetGroupPerformance failed: %v", err)
	}
	if perf.SuccessRate != 1.0 {
		t.Errorf("group success rate = %v after partial sync, want 1.0", perf.SuccessRate)
	}
}

// TestEngineConcurrencyBudget verifies that overlapping dispatches never
// exceed the configured budget.
func TestEngineConcurrencyBudget(t *testing.T) {
	var current, peak atomic.Int64
	applier := applierFunc(func(ctx context.Context, id string, u viewport.Update) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		return nil
	})

	cfg := DefaultConfig()
	cfg.MaxConcurrentOperations = 2
	e, err := New(applier, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Stop()

	var handles []*Handle
	for i := 0; i < 6; i++ {
		h, err := e.SubmitOperation(Operation{
			Type:              TypePan,
			SourceViewportID:  fmt.Sprintf("vp-src-%d", i),
			TargetViewportIDs: []string{"vp-target"},
			Constraints:       Constraints{RequireExactMatch: true},
		})
		if err != nil {
			t.Fatalf("SubmitOperation %d failed: %v", i, err)
		}
		handles = append(handles, h)
	}
	for _, h := range handles {
		waitResult(t, h)
	}

	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrent dispatches = %d, want at most 2", p)
	}
}

func TestEngineMetricsCountSubmissions(t *testing.T) {
	e := testEngine(t, newCountingApplier())

	h, err := e.SubmitOperation(Operation{
		Type:              TypePan,
		SourceViewportID:  "vp-a",
		TargetViewportIDs: []string{"vp-b"},
		Constraints:       Constraints{RequireExactMatch: true},
	})
	if err != nil {
		t.Fatalf("SubmitOperation failed: %v", err)
	}
	waitResult(t, h)

	m := e.GetMetrics()
	if m.TotalOperations != 1 {
		t.Errorf("total operations = %d, want 1", m.TotalOperations)
	}
	if m.CompletedOperations != 1 {
		t.Errorf("completed operations = %d, want 1", m.CompletedOperations)
	}
}

func TestEngineStopRejectsSubmissions(t *testing.T) {
	e := testEngine(t, newCountingApplier())
	e.Stop()

	if _, err := e.SubmitOperation(Operation{
		Type:              TypePan,
		SourceViewportID:  "vp-a",
		TargetViewportIDs: []string{"vp-b"},
	}); err == nil {
		t.Error("expected error submitting to stopped engine")
	}

	// Stop is idempotent
	e.Stop()
}

func TestEngineUpdateConfig(t *testing.T) {
	e := testEngine(t, newCountingApplier())
	before := e.ConfigSnapshot()

	updated, err := e.UpdateConfig(Config{
		MaxConcurrentOperations: 8,
		BatchDelay:              24 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if updated.MaxConcurrentOperations != 8 {
		t.Errorf("concurrency = %d, want 8", updated.MaxConcurrentOperations)
	}
	if updated.BatchDelay != 24*time.Millisecond {
		t.Errorf("batch delay = %v, want 24ms", updated.BatchDelay)
	}
	// Zero fields keep their current values
	if updated.OperationTimeout != before.OperationTimeout {
		t.Errorf("operation timeout = %v, want %v", updated.OperationTimeout, before.OperationTimeout)
	}
	if updated.ThrottleThreshold != before.ThrottleThreshold {
		t.Errorf("throttle threshold = %v, want %v", updated.ThrottleThreshold, before.ThrottleThreshold)
	}

	// Fixed-at-construction fields cannot be overridden
	updated, err = e.UpdateConfig(Config{AdaptInterval: time.Minute})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if updated.AdaptInterval != before.AdaptInterval {
		t.Errorf("adapt interval = %v, want %v", updated.AdaptInterval, before.AdaptInterval)
	}

	if _, err := e.UpdateConfig(Config{MaxConcurrentOperations: 64}); err == nil {
		t.Error("expected error for out-of-range concurrency")
	}
	if got := e.ConfigSnapshot().MaxConcurrentOperations; got != 8 {
		t.Errorf("rejected update mutated config: concurrency = %d, want 8", got)
	}
}
