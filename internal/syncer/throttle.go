// Throttle controller: per-(type, source) admission delay suppressing event
// bursts. Interaction devices emit far more events per second than the render
// pipeline can usefully consume; progressive backoff protects the dispatcher
// from runaway storms (rapid scroll wheel) while leaving isolated,
// well-spaced interactions completely unthrottled.
package syncer

import (
	"sync"
	"time"
)

// throttleState tracks burst pressure for one batch key. State is process
// local and discarded once the key goes quiet for longer than the configured
// quiet period.
type throttleState struct {
	isThrottling bool
	lastAttempt  time.Time // Updated on every admission attempt, throttled or not
	consecutive  int       // Operations admitted below the threshold interval in a row
}

// throttleController rate-limits bursts per batch key, escalating delay under
// sustained load. Safe for concurrent use.
type throttleController struct {
	mu     sync.Mutex
	states map[string]*throttleState

	// threshold returns the current minimum inter-operation interval,
	// refreshed by the adaptive controller between cycles
	threshold func() time.Duration

	// now is swappable for tests
	now func() time.Time
}

func newThrottleController(threshold func() time.Duration) *throttleController {
	return &throttleController{
		states:    make(map[string]*throttleState),
		threshold: threshold,
		now:       time.Now,
	}
}

// admit decides whether an operation for the given key proceeds immediately.
// Returns zero for immediate admission, otherwise the delay the operation
// must wait before entering the batching stage.
//
// An operation arriving sooner than the threshold after the previous attempt
// on its key increments the consecutive counter and is delayed by
// min(maxThrottleDelay, consecutive*throttleDelayStep); a well-spaced arrival
// resets the streak. The last-attempt timestamp advances on every call so a
// sustained burst keeps throttling even while delays are being served.
func (t *throttleController) admit(key string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	st, ok := t.states[key]
	if !ok {
		st = &throttleState{}
		t.states[key] = st
	}

	var delay time.Duration
	if ok && now.Sub(st.lastAttempt) < t.threshold() {
		st.consecutive++
		st.isThrottling = true
		delay = time.Duration(st.consecutive) * throttleDelayStep
		if delay > maxThrottleDelay {
			delay = maxThrottleDelay
		}
	} else {
		st.consecutive = 0
		st.isThrottling = false
	}
	st.lastAttempt = now

	return delay
}

// throttlingKeys reports how many keys are currently under burst throttling.
// Feeds the adaptive controller's per-cycle telemetry.
func (t *throttleController) throttlingKeys() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, st := range t.states {
		if st.isThrottling {
			n++
		}
	}
	return n
}

// sweep discards throttle state for keys quiet longer than the given period.
// Returns the number of keys dropped. Run by the adaptive controller so the
// state map tracks only live gestures.
func (t *throttleController) sweep(quiet time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	dropped := 0
	for key, st := range t.states {
		if now.Sub(st.lastAttempt) > quiet {
			delete(t.states, key)
			dropped++
		}
	}
	return dropped
}
