package viewport

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestApplyCost validates the render cost model against calibrated scenarios
func TestApplyCost(t *testing.T) {
	tests := []struct {
		name   string
		opType string
		fanOut int
		want   time.Duration
	}{
		{
			name:   "pan with two targets",
			opType: "pan",
			fanOut: 2,
			want:   5 * time.Millisecond, // 5 * min(3, 1)
		},
		{
			name:   "orientation with one target",
			opType: "orientation",
			fanOut: 1,
			want:   7500 * time.Microsecond, // 15 * min(3, 0.5)
		},
		{
			name:   "crosshair with three targets",
			opType: "crosshair",
			fanOut: 3,
			want:   3 * time.Millisecond, // 2 * min(3, 1.5)
		},
		{
			name:   "fan-out factor capped at 3x",
			opType: "pan",
			fanOut: 20,
			want:   15 * time.Millisecond, // 5 * min(3, 10)
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyCost(tt.opType, tt.fanOut)
			if got != tt.want {
				t.Errorf("ApplyCost(%q, %d) = %v, want %v", tt.opType, tt.fanOut, got, tt.want)
			}
		})
	}
}

// TestSimApplierUnknownViewport verifies applies to unregistered viewports fail
func TestSimApplierUnknownViewport(t *testing.T) {
	sim := NewSimApplier(DefaultSimConfig(2))

	err := sim.Apply(context.Background(), "viewport-9", Update{Type: "pan", FanOut: 1})
	if err == nil {
		t.Fatal("Apply to unknown viewport expected error, got nil")
	}
}

// TestSimApplierCountsApplies verifies successful applies are recorded
func TestSimApplierCountsApplies(t *testing.T) {
	cfg := DefaultSimConfig(2)
	cfg.LatencyScale = 0 // No sleeping in tests
	sim := NewSimApplier(cfg)

	for i := 0; i < 3; i++ {
		if err := sim.Apply(context.Background(), "viewport-1", Update{Type: "zoom", FanOut: 1}); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}

	if got := sim.Applied("viewport-1"); got != 3 {
		t.Errorf("Applied(viewport-1) = %d, want 3", got)
	}
	if got := sim.Applied("viewport-2"); got != 0 {
		t.Errorf("Applied(viewport-2) = %d, want 0", got)
	}
}

// TestSimApplierHonorsContext verifies cancelled contexts convert to errors
func TestSimApplierHonorsContext(t *testing.T) {
	sim := NewSimApplier(DefaultSimConfig(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sim.Apply(ctx, "viewport-1", Update{Type: "orientation", FanOut: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Apply with cancelled context error = %v, want context.Canceled", err)
	}
}

// TestSimApplierFailureInjection verifies the configured failure rate fires
func TestSimApplierFailureInjection(t *testing.T) {
	cfg := DefaultSimConfig(1)
	cfg.LatencyScale = 0
	cfg.FailureRate = 1.0
	cfg.Seed = 42
	sim := NewSimApplier(cfg)

	err := sim.Apply(context.Background(), "viewport-1", Update{Type: "pan", FanOut: 1})
	if err == nil {
		t.Fatal("Apply with failure rate 1.0 expected error, got nil")
	}
}
