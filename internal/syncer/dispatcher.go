// Dispatcher: applies one dequeued operation to every target viewport and
// classifies the outcome under the owning group's failure policy. Each
// per-target apply is awaited with a bounded timeout so failure attribution
// stays deterministic; a failing target never halts the scheduler loop.
package syncer

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/concave-dev/lockstep/internal/logging"
	"github.com/concave-dev/lockstep/internal/viewport"
)

// dispatcher owns the apply-to-viewport path. The concurrency budget lives in
// the engine's pump loop; the dispatcher itself handles one operation at a
// time per call.
type dispatcher struct {
	applier viewport.Applier

	// timeout returns the current per-attempt timeout, refreshed by the
	// adaptive controller between cycles
	timeout func() time.Duration
}

func newDispatcher(applier viewport.Applier, timeout func() time.Duration) *dispatcher {
	return &dispatcher{applier: applier, timeout: timeout}
}

// dispatch applies op to every target viewport in order and returns the
// classified result. Failure policy:
//
//   - requireConsensus (group): any target failure fails the whole operation;
//     already-applied targets are not rolled back by this core
//   - tolerateFailures (group) + allowPartialSync (operation): per-target
//     failures are recorded and the operation reports partial success as long
//     as at least one target applied
//   - otherwise any target failure fails the operation
//
// An attempt exceeding the timeout is marked failed for that target and
// reported as a TimeoutError; other apply errors become TargetFailures.
func (d *dispatcher) dispatch(ctx context.Context, op *Operation, constraints GroupConstraints, hasGroup bool) Result {
	start := time.Now()

	timeout := d.timeout()
	if hasGroup && constraints.MaxLatency > 0 && constraints.MaxLatency < timeout {
		timeout = constraints.MaxLatency
	}

	update := viewport.Update{
		Type:   string(op.Type),
		Data:   op.Data,
		FanOut: len(op.TargetViewportIDs),
	}

	targetErrors := make(map[string]error)
	for _, target := range op.TargetViewportIDs {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := d.applier.Apply(attemptCtx, target, update)
		cancel()
		if err == nil {
			continue
		}
		if errors.Is(err, context.DeadlineExceeded) {
			targetErrors[target] = &TimeoutError{ViewportID: target, Timeout: timeout}
		} else {
			targetErrors[target] = &TargetFailure{ViewportID: target, Err: err}
		}
		logging.Debug("Dispatcher: Apply failed for operation %s on viewport %s: %v",
			logging.FormatOperationID(op.ID), logging.FormatViewportID(target), targetErrors[target])
	}

	res := Result{
		OperationID:  op.ID,
		Latency:      time.Since(start),
		TargetErrors: targetErrors,
	}

	switch {
	case len(targetErrors) == 0:
		res.Status = StatusCompleted

	case hasGroup && constraints.RequireConsensus:
		failed := make([]string, 0, len(targetErrors))
		for target := range targetErrors {
			failed = append(failed, target)
		}
		sort.Strings(failed)
		res.Status = StatusFailed
		res.Err = &ConsensusFailure{OperationID: op.ID, FailedTargets: failed}

	case len(targetErrors) < len(op.TargetViewportIDs) &&
		op.Constraints.AllowPartialSync &&
		(!hasGroup || constraints.TolerateFailures):
		res.Status = StatusPartial

	default:
		res.Status = StatusFailed
		res.Err = firstTargetError(op.TargetViewportIDs, targetErrors)
	}

	return res
}

// firstTargetError returns the error of the first failing target in dispatch
// order, giving the operation-level error a deterministic identity.
func firstTargetError(targets []string, errs map[string]error) error {
	for _, target := range targets {
		if err, ok := errs[target]; ok {
			return err
		}
	}
	return nil
}
