// Simulated render collaborator for development, testing, and standalone
// daemon runs. Models per-operation render cost and injectable failures so
// the scheduling pipeline can be exercised with realistic timing without a
// real DICOM render engine attached.
package viewport

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// baseCostMs is the per-type base render cost in milliseconds. Orientation
// changes are the most expensive since they force a full reformat; scroll is
// the cheapest since it reuses cached slices.
var baseCostMs = map[string]float64{
	"pan":          5,
	"zoom":         3,
	"window-level": 2,
	"scroll":       1,
	"crosshair":    2,
	"orientation":  15,
}

// defaultBaseCostMs is used for operation types without a calibrated cost.
const defaultBaseCostMs = 3

// ApplyCost estimates the render cost for applying one operation type to a
// viewport, given the fan-out of the dispatched operation. Cost grows with
// fan-out (shared texture uploads, crosshair reprojection) but is capped at
// 3x base so a wide sync group cannot starve the dispatcher.
//
//	cost = base(type) * min(3, fanOut/2)
func ApplyCost(opType string, fanOut int) time.Duration {
	base, ok := baseCostMs[opType]
	if !ok {
		base = defaultBaseCostMs
	}
	factor := math.Min(3, float64(fanOut)/2)
	return time.Duration(base * factor * float64(time.Millisecond))
}

// SimConfig holds configuration for the simulated applier including the set
// of known viewports and failure injection parameters.
type SimConfig struct {
	Viewports    []string // Known viewport IDs; applies to unknown IDs fail
	FailureRate  float64  // Probability [0,1] that an apply fails
	LatencyScale float64  // Multiplier on ApplyCost (0 disables sleeping)
	Seed         int64    // RNG seed for reproducible failure injection (0 = time-based)
}

// DefaultSimConfig returns a simulator configuration with count viewports
// named viewport-1..viewport-N, no failure injection, and real-time latency.
func DefaultSimConfig(count int) *SimConfig {
	viewports := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		viewports = append(viewports, fmt.Sprintf("viewport-%d", i))
	}
	return &SimConfig{
		Viewports:    viewports,
		FailureRate:  0,
		LatencyScale: 1,
	}
}

// SimApplier is a simulated render collaborator. Applies sleep for the
// modeled render cost, fail for unknown viewports, and optionally fail
// randomly at the configured rate to exercise the engine's failure paths.
//
// Safe for concurrent use: the dispatcher applies to multiple viewports from
// overlapping dispatch goroutines.
type SimApplier struct {
	mu        sync.Mutex
	viewports map[string]bool
	applied   map[string]int64 // Per-viewport apply counter for tests and stats

	failureRate float64
	scale       float64
	rng         *rand.Rand
}

// NewSimApplier creates a simulated applier from the given configuration.
// A nil config gets four viewports and no failure injection, matching a
// typical 2x2 viewer layout.
func NewSimApplier(cfg *SimConfig) *SimApplier {
	if cfg == nil {
		cfg = DefaultSimConfig(4)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	viewports := make(map[string]bool, len(cfg.Viewports))
	for _, id := range cfg.Viewports {
		viewports[id] = true
	}

	return &SimApplier{
		viewports:   viewports,
		applied:     make(map[string]int64),
		failureRate: cfg.FailureRate,
		scale:       cfg.LatencyScale,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Apply simulates rendering one synchronized update on a viewport. Sleeps for
// the modeled cost (scaled), honors context cancellation so dispatch timeouts
// convert to timeout failures, and injects random failures at the configured
// rate.
func (s *SimApplier) Apply(ctx context.Context, viewportID string, update Update) error {
	s.mu.Lock()
	known := s.viewports[viewportID]
	var fail bool
	if known && s.failureRate > 0 {
		fail = s.rng.Float64() < s.failureRate
	}
	s.mu.Unlock()

	if !known {
		return fmt.Errorf("unknown viewport %s", viewportID)
	}

	cost := time.Duration(float64(ApplyCost(update.Type, update.FanOut)) * s.scale)
	if cost > 0 {
		timer := time.NewTimer(cost)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if fail {
		return fmt.Errorf("simulated render failure on viewport %s", viewportID)
	}

	s.mu.Lock()
	s.applied[viewportID]++
	s.mu.Unlock()
	return nil
}

// Applied returns the number of successful applies recorded for a viewport.
// Used by tests and the daemon's shutdown summary.
func (s *SimApplier) Applied(viewportID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied[viewportID]
}

// ViewportIDs returns the known viewport IDs in no particular order.
func (s *SimApplier) ViewportIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.viewports))
	for id := range s.viewports {
		ids = append(ids, id)
	}
	return ids
}
