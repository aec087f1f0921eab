// Engine tuning configuration. Config is the single mutable tuning surface of
// the scheduler: the adaptive controller rewrites it between cycles and every
// other component treats the latest snapshot as read-only.
package syncer

import (
	"fmt"
	"time"

	"github.com/concave-dev/lockstep/internal/validate"
)

// Default tuning values. BatchDelay defaults to one frame at 60 fps so a
// continuous gesture coalesces per rendered frame; ThrottleThreshold defaults
// to a 30 fps floor below which bursts get admission-delayed.
const (
	DefaultMaxConcurrentOperations = 4
	DefaultOperationTimeout        = 250 * time.Millisecond
	DefaultBatchDelay              = 16 * time.Millisecond
	DefaultThrottleThreshold       = 33 * time.Millisecond
	DefaultAdaptInterval           = time.Second
	DefaultThrottleQuietPeriod     = 2 * time.Second
)

// Bounds and step sizes for the adaptive controller. The controller moves at
// most one step per cycle per dimension to avoid oscillation.
const (
	minConcurrent = 2
	maxConcurrent = 16

	minBatchDelay  = 8 * time.Millisecond
	batchDelayStep = 2 * time.Millisecond

	maxThrottleThreshold  = 50 * time.Millisecond
	throttleThresholdStep = 5 * time.Millisecond

	highLatencyWatermark = 100 * time.Millisecond
	highErrorRate        = 0.10
	lowErrorRate         = 0.02
	scaleUpThroughput    = 50.0 // ops/sec required before concurrency scales up
)

// Progressive throttle backoff: each consecutive burst operation adds one
// step of delay, capped so isolated interaction never stalls noticeably.
const (
	throttleDelayStep = 5 * time.Millisecond
	maxThrottleDelay  = 100 * time.Millisecond
)

// Config holds the engine tuning parameters. The first four fields form the
// adaptive surface rewritten between cycles; the remaining fields are fixed
// for the lifetime of the engine.
type Config struct {
	// MaxConcurrentOperations bounds overlapping dispatch attempts
	MaxConcurrentOperations int `json:"max_concurrent_operations"`

	// OperationTimeout bounds a single per-target apply attempt
	OperationTimeout time.Duration `json:"operation_timeout"`

	// BatchDelay is the batching window for same-key operations
	BatchDelay time.Duration `json:"batch_delay"`

	// ThrottleThreshold is the minimum inter-operation interval per key
	// before admission delays kick in
	ThrottleThreshold time.Duration `json:"throttle_threshold"`

	// AdaptInterval is the adaptive controller cadence
	AdaptInterval time.Duration `json:"adapt_interval"`

	// ThrottleQuietPeriod is the idle time after which per-key throttle
	// state is discarded
	ThrottleQuietPeriod time.Duration `json:"throttle_quiet_period"`
}

// DefaultConfig returns a Config with production-ready defaults tuned for
// interactive viewer workloads: per-frame batching, a 30 fps throttle floor,
// and a conservative concurrency budget the adaptive controller can grow.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrentOperations: DefaultMaxConcurrentOperations,
		OperationTimeout:        DefaultOperationTimeout,
		BatchDelay:              DefaultBatchDelay,
		ThrottleThreshold:       DefaultThrottleThreshold,
		AdaptInterval:           DefaultAdaptInterval,
		ThrottleQuietPeriod:     DefaultThrottleQuietPeriod,
	}
}

// Validate checks that all tuning parameters are within operable bounds.
// Concurrency must sit inside the adaptive controller's [2,16] range so the
// controller never has to jump more than one step to re-enter it.
func (c *Config) Validate() error {
	if c.MaxConcurrentOperations < minConcurrent || c.MaxConcurrentOperations > maxConcurrent {
		return fmt.Errorf("max concurrent operations must be in [%d,%d], got %d",
			minConcurrent, maxConcurrent, c.MaxConcurrentOperations)
	}
	if err := validate.ValidatePositiveTimeout(c.OperationTimeout, "operation timeout"); err != nil {
		return err
	}
	if err := validate.ValidatePositiveTimeout(c.BatchDelay, "batch delay"); err != nil {
		return err
	}
	if c.BatchDelay < minBatchDelay {
		return fmt.Errorf("batch delay must be at least %v, got %v", minBatchDelay, c.BatchDelay)
	}
	if err := validate.ValidatePositiveTimeout(c.ThrottleThreshold, "throttle threshold"); err != nil {
		return err
	}
	if c.ThrottleThreshold > maxThrottleThreshold {
		return fmt.Errorf("throttle threshold must be at most %v, got %v",
			maxThrottleThreshold, c.ThrottleThreshold)
	}
	if err := validate.ValidatePositiveTimeout(c.AdaptInterval, "adapt interval"); err != nil {
		return err
	}
	if err := validate.ValidatePositiveTimeout(c.ThrottleQuietPeriod, "throttle quiet period"); err != nil {
		return err
	}
	return nil
}
