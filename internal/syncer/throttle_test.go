package syncer

import (
	"testing"
	"time"
)

// fakeClock steps time manually so throttle decisions are deterministic.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestThrottle(threshold time.Duration) (*throttleController, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	tc := newThrottleController(func() time.Duration { return threshold })
	tc.now = clock.now
	return tc, clock
}

func TestThrottleFirstOperationAdmitted(t *testing.T) {
	tc, _ := newTestThrottle(16 * time.Millisecond)
	if delay := tc.admit("pan-vp-a"); delay != 0 {
		t.Errorf("first admit delay = %v, want 0", delay)
	}
}

// TestThrottleBurstEscalation verifies that a sustained burst escalates delay
// linearly per consecutive operation up to the cap.
func TestThrottleBurstEscalation(t *testing.T) {
	tc, clock := newTestThrottle(16 * time.Millisecond)

	if delay := tc.admit("scroll-vp-a"); delay != 0 {
		t.Fatalf("first admit delay = %v, want 0", delay)
	}

	// Six rapid-fire arrivals, 2ms apart, escalate 5ms at a time
	want := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		15 * time.Millisecond,
		20 * time.Millisecond,
		25 * time.Millisecond,
		30 * time.Millisecond,
	}
	for i, expected := range want {
		clock.advance(2 * time.Millisecond)
		if delay := tc.admit("scroll-vp-a"); delay != expected {
			t.Errorf("burst admit %d: delay = %v, want %v", i+1, delay, expected)
		}
	}
}

// TestThrottleDelayCap verifies that escalation saturates at the maximum
// delay no matter how long the burst runs.
func TestThrottleDelayCap(t *testing.T) {
	tc, clock := newTestThrottle(16 * time.Millisecond)

	tc.admit("zoom-vp-a")
	var last time.Duration
	for i := 0; i < 30; i++ {
		clock.advance(time.Millisecond)
		last = tc.admit("zoom-vp-a")
	}
	if last != maxThrottleDelay {
		t.Errorf("delay after long burst = %v, want cap %v", last, maxThrottleDelay)
	}
}

// TestThrottleWellSpacedReset verifies that an arrival beyond the threshold
// resets the streak and is admitted immediately.
func TestThrottleWellSpacedReset(t *testing.T) {
	tc, clock := newTestThrottle(16 * time.Millisecond)

	tc.admit("pan-vp-a")
	clock.advance(2 * time.Millisecond)
	if delay := tc.admit("pan-vp-a"); delay == 0 {
		t.Fatal("rapid second admit should be delayed")
	}

	clock.advance(50 * time.Millisecond)
	if delay := tc.admit("pan-vp-a"); delay != 0 {
		t.Errorf("well-spaced admit delay = %v, want 0", delay)
	}

	// Streak restarted: next rapid arrival is back at the first step
	clock.advance(2 * time.Millisecond)
	if delay := tc.admit("pan-vp-a"); delay != 5*time.Millisecond {
		t.Errorf("post-reset burst delay = %v, want 5ms", delay)
	}
}

// TestThrottleKeysIndependent verifies that bursts on one key never delay
// another key.
func TestThrottleKeysIndependent(t *testing.T) {
	tc, clock := newTestThrottle(16 * time.Millisecond)

	tc.admit("pan-vp-a")
	clock.advance(2 * time.Millisecond)
	tc.admit("pan-vp-a")
	clock.advance(2 * time.Millisecond)

	if delay := tc.admit("pan-vp-b"); delay != 0 {
		t.Errorf("unrelated key delay = %v, want 0", delay)
	}
	if delay := tc.admit("zoom-vp-a"); delay != 0 {
		t.Errorf("unrelated type delay = %v, want 0", delay)
	}
}

func TestThrottleSweep(t *testing.T) {
	tc, clock := newTestThrottle(16 * time.Millisecond)

	tc.admit("pan-vp-a")
	tc.admit("zoom-vp-b")
	clock.advance(3 * time.Second)
	tc.admit("scroll-vp-c")

	clock.advance(time.Second)
	if dropped := tc.sweep(2 * time.Second); dropped != 2 {
		t.Errorf("sweep dropped %d keys, want 2", dropped)
	}

	// Swept key starts fresh
	clock.advance(time.Millisecond)
	if delay := tc.admit("pan-vp-a"); delay != 0 {
		t.Errorf("admit after sweep delay = %v, want 0", delay)
	}
}

// TestThrottlingKeys verifies that the burst-state count tracks which keys
// are actively throttled, resets on well-spaced arrivals, and drops with the
// sweep.
func TestThrottlingKeys(t *testing.T) {
	tc, clock := newTestThrottle(16 * time.Millisecond)

	if got := tc.throttlingKeys(); got != 0 {
		t.Fatalf("idle throttling keys = %d, want 0", got)
	}

	tc.admit("pan-vp-a")
	tc.admit("zoom-vp-b")
	clock.advance(2 * time.Millisecond)
	tc.admit("pan-vp-a")

	if got := tc.throttlingKeys(); got != 1 {
		t.Errorf("throttling keys after one burst = %d, want 1", got)
	}

	// A well-spaced arrival clears the key's burst state
	clock.advance(50 * time.Millisecond)
	tc.admit("pan-vp-a")
	if got := tc.throttlingKeys(); got != 0 {
		t.Errorf("throttling keys after spaced arrival = %d, want 0", got)
	}

	// Sweeping quiet keys drops their state entirely
	clock.advance(2 * time.Millisecond)
	tc.admit("pan-vp-a")
	clock.advance(5 * time.Second)
	tc.sweep(2 * time.Second)
	if got := tc.throttlingKeys(); got != 0 {
		t.Errorf("throttling keys after sweep = %d, want 0", got)
	}
}
