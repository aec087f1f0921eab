// Process-wide scheduler metrics. Counters are mutated only by the dispatch
// completion path and the adaptive controller; every other component reads
// snapshots for admission decisions and observability.
package syncer

import (
	"sync"
	"time"
)

// Metrics is a point-in-time snapshot of scheduler counters and gauges.
type Metrics struct {
	TotalOperations     uint64        `json:"total_operations"`
	CompletedOperations uint64        `json:"completed_operations"`
	FailedOperations    uint64        `json:"failed_operations"`
	AverageLatency      time.Duration `json:"average_latency"`
	PeakLatency         time.Duration `json:"peak_latency"`
	Throughput          float64       `json:"throughput"` // Finished ops/sec over the last adaptive cycle
	QueueLength         int           `json:"queue_length"`
	ActiveGroups        int           `json:"active_groups"`
	ThrottledOperations uint64        `json:"throttled_operations"`
	BatchedOperations   uint64        `json:"batched_operations"`
}

// metricsTracker owns the mutable counters behind Metrics snapshots and the
// metrics-tick subscriptions used by external telemetry. Safe for concurrent
// use.
type metricsTracker struct {
	mu sync.Mutex
	m  Metrics

	// finishedAtLastTick anchors the throughput computation per cycle
	finishedAtLastTick uint64

	subscribers []func(Metrics)
}

func newMetricsTracker() *metricsTracker {
	return &metricsTracker{}
}

// recordSubmitted counts an operation accepted into the pipeline.
func (t *metricsTracker) recordSubmitted() {
	t.mu.Lock()
	t.m.TotalOperations++
	t.mu.Unlock()
}

// recordThrottled counts an operation admission-delayed by the throttle
// controller.
func (t *metricsTracker) recordThrottled() {
	t.mu.Lock()
	t.m.ThrottledOperations++
	t.mu.Unlock()
}

// recordBatched counts source operations coalesced by a multi-member merge.
func (t *metricsTracker) recordBatched(n int) {
	t.mu.Lock()
	t.m.BatchedOperations += uint64(n)
	t.mu.Unlock()
}

// recordCompletion folds one finished dispatch into the counters: success or
// failure tally, running average latency over all finished operations, and
// peak latency. Called in the same completion path that resolves the
// operation's handles so metrics stay consistent with reported results.
func (t *metricsTracker) recordCompletion(latency time.Duration, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if failed {
		t.m.FailedOperations++
	} else {
		t.m.CompletedOperations++
	}

	n := t.m.CompletedOperations + t.m.FailedOperations
	t.m.AverageLatency = time.Duration(
		(int64(t.m.AverageLatency)*int64(n-1) + int64(latency)) / int64(n))
	if latency > t.m.PeakLatency {
		t.m.PeakLatency = latency
	}
}

// setGauges refreshes the queue length and active group gauges. Called by the
// adaptive controller each cycle and by on-demand snapshot reads.
func (t *metricsTracker) setGauges(queueLength, activeGroups int) {
	t.mu.Lock()
	t.m.QueueLength = queueLength
	t.m.ActiveGroups = activeGroups
	t.mu.Unlock()
}

// snapshot returns a copy of the current metrics.
func (t *metricsTracker) snapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m
}

// tick recomputes throughput over the elapsed cycle, snapshots the metrics,
// and notifies subscribers. Returns the snapshot the adaptive controller
// bases its tuning decisions on.
func (t *metricsTracker) tick(interval time.Duration) Metrics {
	t.mu.Lock()
	finished := t.m.CompletedOperations + t.m.FailedOperations
	if interval > 0 {
		t.m.Throughput = float64(finished-t.finishedAtLastTick) / interval.Seconds()
	}
	t.finishedAtLastTick = finished
	snap := t.m
	subscribers := make([]func(Metrics), len(t.subscribers))
	copy(subscribers, t.subscribers)
	t.mu.Unlock()

	// Notify outside the lock: telemetry callbacks must not block the
	// scheduler's metrics path
	for _, fn := range subscribers {
		fn(snap)
	}
	return snap
}

// subscribe registers a callback invoked with a metrics snapshot on every
// adaptive cycle.
func (t *metricsTracker) subscribe(fn func(Metrics)) {
	t.mu.Lock()
	t.subscribers = append(t.subscribers, fn)
	t.mu.Unlock()
}
