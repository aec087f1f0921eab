package syncer

import (
	"testing"
	"time"
)

// TestAdaptConfig exercises each tuning rule of the hysteresis loop against
// a fixed starting configuration.
func TestAdaptConfig(t *testing.T) {
	base := Config{
		MaxConcurrentOperations: 4,
		OperationTimeout:        5 * time.Second,
		BatchDelay:              16 * time.Millisecond,
		ThrottleThreshold:       33 * time.Millisecond,
	}

	tests := []struct {
		name          string
		metrics       Metrics
		wantBatch     time.Duration
		wantThrottle  time.Duration
		wantConcurrent int
	}{
		{
			name:           "stable metrics leave config unchanged",
			metrics:        Metrics{TotalOperations: 100, FailedOperations: 5, AverageLatency: 40 * time.Millisecond, Throughput: 30},
			wantBatch:      16 * time.Millisecond,
			wantThrottle:   33 * time.Millisecond,
			wantConcurrent: 4,
		},
		{
			name:           "high latency shrinks batch window and raises throttle",
			metrics:        Metrics{TotalOperations: 100, FailedOperations: 5, AverageLatency: 120 * time.Millisecond},
			wantBatch:      14 * time.Millisecond,
			wantThrottle:   38 * time.Millisecond,
			wantConcurrent: 4,
		},
		{
			name:           "high error rate sheds concurrency",
			metrics:        Metrics{TotalOperations: 100, FailedOperations: 15, AverageLatency: 40 * time.Millisecond},
			wantBatch:      16 * time.Millisecond,
			wantThrottle:   33 * time.Millisecond,
			wantConcurrent: 3,
		},
		{
			name:           "low errors with high throughput grow concurrency",
			metrics:        Metrics{TotalOperations: 1000, FailedOperations: 5, AverageLatency: 40 * time.Millisecond, Throughput: 80},
			wantBatch:      16 * time.Millisecond,
			wantThrottle:   33 * time.Millisecond,
			wantConcurrent: 5,
		},
		{
			name:           "low errors without throughput hold concurrency",
			metrics:        Metrics{TotalOperations: 1000, FailedOperations: 5, AverageLatency: 40 * time.Millisecond, Throughput: 10},
			wantBatch:      16 * time.Millisecond,
			wantThrottle:   33 * time.Millisecond,
			wantConcurrent: 4,
		},
		{
			name:           "no traffic leaves concurrency alone",
			metrics:        Metrics{AverageLatency: 40 * time.Millisecond},
			wantBatch:      16 * time.Millisecond,
			wantThrottle:   33 * time.Millisecond,
			wantConcurrent: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adaptConfig(base, tt.metrics)
			if got.BatchDelay != tt.wantBatch {
				t.Errorf("BatchDelay = %v, want %v", got.BatchDelay, tt.wantBatch)
			}
			if got.ThrottleThreshold != tt.wantThrottle {
				t.Errorf("ThrottleThreshold = %v, want %v", got.ThrottleThreshold, tt.wantThrottle)
			}
			if got.MaxConcurrentOperations != tt.wantConcurrent {
				t.Errorf("MaxConcurrentOperations = %d, want %d", got.MaxConcurrentOperations, tt.wantConcurrent)
			}
			if got.OperationTimeout != base.OperationTimeout {
				t.Errorf("OperationTimeout changed to %v", got.OperationTimeout)
			}
		})
	}
}

// TestAdaptConfigBounds verifies that repeated pressure in one direction
// saturates at each floor and ceiling instead of drifting past it.
func TestAdaptConfigBounds(t *testing.T) {
	cfg := Config{
		MaxConcurrentOperations: 3,
		BatchDelay:              10 * time.Millisecond,
		ThrottleThreshold:       45 * time.Millisecond,
	}

	hot := Metrics{TotalOperations: 100, FailedOperations: 50, AverageLatency: 200 * time.Millisecond}
	for i := 0; i < 20; i++ {
		cfg = adaptConfig(cfg, hot)
	}
	if cfg.BatchDelay != minBatchDelay {
		t.Errorf("BatchDelay = %v, want floor %v", cfg.BatchDelay, minBatchDelay)
	}
	if cfg.ThrottleThreshold != maxThrottleThreshold {
		t.Errorf("ThrottleThreshold = %v, want cap %v", cfg.ThrottleThreshold, maxThrottleThreshold)
	}
	if cfg.MaxConcurrentOperations != minConcurrent {
		t.Errorf("MaxConcurrentOperations = %d, want floor %d", cfg.MaxConcurrentOperations, minConcurrent)
	}

	healthy := Metrics{TotalOperations: 10000, FailedOperations: 10, Throughput: 200}
	for i := 0; i < 30; i++ {
		cfg = adaptConfig(cfg, healthy)
	}
	if cfg.MaxConcurrentOperations != maxConcurrent {
		t.Errorf("MaxConcurrentOperations = %d, want cap %d", cfg.MaxConcurrentOperations, maxConcurrent)
	}
}
