// Error taxonomy for the synchronization pipeline. Validation problems are
// rejected synchronously at submission; dispatch-time failures (timeouts,
// target rejections, consensus violations) are recorded in metrics and
// reported through the operation's handle. A failing operation never halts
// the dispatcher or corrupts the queue.
package syncer

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a malformed operation rejected at submission.
// Correctable problems (out-of-range priority, source listed among targets)
// are fixed by clamping or stripping instead of raising this error.
type ValidationError struct {
	Field  string // Offending operation field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid operation: %s: %s", e.Field, e.Reason)
}

// TimeoutError reports a dispatch attempt that exceeded the per-attempt
// timeout for one target viewport.
type TimeoutError struct {
	ViewportID string
	Timeout    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("apply to viewport %s exceeded %v timeout", e.ViewportID, e.Timeout)
}

// TargetFailure reports an apply call rejected by one target viewport.
type TargetFailure struct {
	ViewportID string
	Err        error
}

func (e *TargetFailure) Error() string {
	return fmt.Sprintf("apply to viewport %s failed: %v", e.ViewportID, e.Err)
}

func (e *TargetFailure) Unwrap() error {
	return e.Err
}

// ConsensusFailure reports an operation failed under a group's
// require-consensus policy: at least one target failed, so the whole
// operation is considered uncommitted. Targets that already applied the
// change are expected to be idempotently reapplied or reverted by the
// render collaborator; the engine performs no rollback.
type ConsensusFailure struct {
	OperationID   string
	FailedTargets []string
}

func (e *ConsensusFailure) Error() string {
	return fmt.Sprintf("operation %s failed consensus: targets [%s] did not apply",
		e.OperationID, strings.Join(e.FailedTargets, ", "))
}
