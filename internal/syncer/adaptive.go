// Adaptive controller: a simple hysteresis loop that retunes the scheduler
// between cycles from rolling metrics. Deliberately not a PID controller; it
// moves at most one step per cycle per dimension, which avoids oscillation at
// the cost of slower convergence.
package syncer

import (
	"time"

	"github.com/concave-dev/lockstep/internal/logging"
)

// adaptConfig applies one tuning step to cfg based on observed metrics:
//
//   - High average latency (> 100ms) trades batching smoothness for
//     responsiveness: the batching window shrinks (floor 8ms) while the
//     throttle threshold grows (cap 50ms) to thin the incoming stream.
//   - Error rate above 10% sheds concurrency (floor 2); error rate below 2%
//     with throughput above 50 ops/sec grows it (cap 16). A moderate error
//     rate is treated as stable and leaves concurrency unchanged.
//
// Pure function so tuning decisions are directly testable.
func adaptConfig(cfg Config, m Metrics) Config {
	if m.AverageLatency > highLatencyWatermark {
		cfg.BatchDelay -= batchDelayStep
		if cfg.BatchDelay < minBatchDelay {
			cfg.BatchDelay = minBatchDelay
		}
		cfg.ThrottleThreshold += throttleThresholdStep
		if cfg.ThrottleThreshold > maxThrottleThreshold {
			cfg.ThrottleThreshold = maxThrottleThreshold
		}
	}

	if m.TotalOperations > 0 {
		errorRate := float64(m.FailedOperations) / float64(m.TotalOperations)
		switch {
		case errorRate > highErrorRate:
			if cfg.MaxConcurrentOperations > minConcurrent {
				cfg.MaxConcurrentOperations--
			}
		case errorRate < lowErrorRate && m.Throughput > scaleUpThroughput:
			if cfg.MaxConcurrentOperations < maxConcurrent {
				cfg.MaxConcurrentOperations++
			}
		}
	}

	return cfg
}

// adaptiveController periodically reads metrics and rewrites the engine's
// tuning surface. Also performs per-cycle housekeeping: refreshing gauges and
// sweeping quiet throttle state.
type adaptiveController struct {
	engine   *Engine
	interval time.Duration

	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func newAdaptiveController(engine *Engine, interval time.Duration) *adaptiveController {
	return &adaptiveController{
		engine:   engine,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// start launches the control loop on its fixed cadence.
func (a *adaptiveController) start() {
	a.started = true
	go func() {
		defer close(a.doneCh)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.stopCh:
				return
			case <-ticker.C:
				a.engine.adaptCycle(a.interval)
			}
		}
	}()
}

// stop terminates the control loop and waits for the in-progress cycle.
// No-op when the loop was never started.
func (a *adaptiveController) stop() {
	if !a.started {
		return
	}
	close(a.stopCh)
	<-a.doneCh
}

// adaptCycle runs one controller cycle: refresh gauges, recompute throughput,
// notify metric subscribers, rewrite the tuning surface, and sweep quiet
// throttle state. Runs in the controller goroutine on its fixed cadence.
func (e *Engine) adaptCycle(interval time.Duration) {
	e.mu.Lock()
	queueLength := e.queue.len()
	e.mu.Unlock()
	e.metrics.setGauges(queueLength, e.groups.activeCount())

	snap := e.metrics.tick(interval)

	e.mu.Lock()
	before := e.cfg
	e.cfg = adaptConfig(e.cfg, snap)
	after := e.cfg
	// Re-pump in case the concurrency budget grew
	e.pumpLocked()
	e.mu.Unlock()

	if before != after {
		logging.Debug("Adaptive: Retuned config: concurrency %d->%d, batch delay %v->%v, throttle threshold %v->%v",
			before.MaxConcurrentOperations, after.MaxConcurrentOperations,
			before.BatchDelay, after.BatchDelay,
			before.ThrottleThreshold, after.ThrottleThreshold)
	}

	if dropped := e.throttle.sweep(after.ThrottleQuietPeriod); dropped > 0 {
		logging.Debug("Adaptive: Swept %d quiet throttle keys", dropped)
	}
	if keys := e.throttle.throttlingKeys(); keys > 0 {
		logging.Debug("Adaptive: %d keys under burst throttling", keys)
	}
}
