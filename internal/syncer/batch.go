// Batching engine: accumulates same-key operations inside a short window so a
// continuous gesture (mouse drag, scroll wheel) coalesces into one dispatched
// operation per window instead of one per input event. Coalescing by
// (type, source) preserves causal grouping while bounding redundant render
// work.
package syncer

import (
	"sync"
	"time"
)

// batchEntry pairs an accumulated operation with the handle awaiting its
// outcome. All entries of a flushed batch resolve with the merged result.
type batchEntry struct {
	op     *Operation
	handle *Handle
}

// pendingBatch holds the operations accumulated for one key during the
// current window. Destroyed when the window elapses or is force-flushed.
type pendingBatch struct {
	entries  []batchEntry
	timer    *time.Timer
	deadline time.Time
}

// batcher groups same-key operations within a window before handing them to
// the merge resolver. Safe for concurrent use.
type batcher struct {
	mu      sync.Mutex
	pending map[string]*pendingBatch
	stopped bool

	// window returns the current batching delay, refreshed by the adaptive
	// controller between cycles
	window func() time.Duration

	// flush receives the entries of an expired batch. Called without the
	// batcher lock held so it may re-enter the engine freely.
	flush func(entries []batchEntry)
}

func newBatcher(window func() time.Duration, flush func(entries []batchEntry)) *batcher {
	return &batcher{
		pending: make(map[string]*pendingBatch),
		window:  window,
		flush:   flush,
	}
}

// submit appends the operation to the open batch for its key, opening a new
// batch with a window timer if none exists. An operation with a MaxDelay
// constraint tighter than the remaining window shortens the window so the
// caller's latency bound holds for every batch member.
//
// After stop, submissions flush immediately as single-member batches so late
// throttle callbacks still drain through the normal path.
func (b *batcher) submit(op *Operation, h *Handle) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		b.flush([]batchEntry{{op: op, handle: h}})
		return
	}

	window := b.window()
	if d := op.Constraints.MaxDelay; d > 0 && d < window {
		window = d
	}

	key := op.BatchKey()
	now := time.Now()
	deadline := now.Add(window)

	pb, ok := b.pending[key]
	if !ok {
		pb = &pendingBatch{deadline: deadline}
		pb.timer = time.AfterFunc(window, func() { b.expire(key) })
		b.pending[key] = pb
	} else if deadline.Before(pb.deadline) && pb.timer.Stop() {
		// Tighter MaxDelay on a joining member shortens the open window.
		// If Stop fails the timer already fired and expire will flush.
		pb.deadline = deadline
		pb.timer.Reset(window)
	}
	pb.entries = append(pb.entries, batchEntry{op: op, handle: h})
	b.mu.Unlock()
}

// expire flushes the batch for a key once its window elapses.
func (b *batcher) expire(key string) {
	b.mu.Lock()
	pb := b.pending[key]
	delete(b.pending, key)
	b.mu.Unlock()

	if pb != nil && len(pb.entries) > 0 {
		b.flush(pb.entries)
	}
}

// remove cancels one accumulated operation by ID before its batch flushes.
// Returns the removed entry, or nil if no open batch contains the ID. A batch
// emptied by removal is destroyed and its timer stopped.
func (b *batcher) remove(id string) *batchEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, pb := range b.pending {
		for i, entry := range pb.entries {
			if entry.op.ID != id {
				continue
			}
			pb.entries = append(pb.entries[:i], pb.entries[i+1:]...)
			if len(pb.entries) == 0 {
				pb.timer.Stop()
				delete(b.pending, key)
			}
			removed := entry
			return &removed
		}
	}
	return nil
}

// flushAll force-flushes every open batch regardless of remaining window
// time. Used on teardown and exposed through the engine for producers that
// need a hard synchronization point (e.g. before a layout change).
func (b *batcher) flushAll() {
	b.mu.Lock()
	batches := make([][]batchEntry, 0, len(b.pending))
	for key, pb := range b.pending {
		pb.timer.Stop()
		if len(pb.entries) > 0 {
			batches = append(batches, pb.entries)
		}
		delete(b.pending, key)
	}
	b.mu.Unlock()

	for _, entries := range batches {
		b.flush(entries)
	}
}

// stop force-flushes all open batches and switches the batcher to immediate
// pass-through for any stragglers.
func (b *batcher) stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	b.flushAll()
}

// pendingCount returns the number of operations currently accumulated across
// all open batches.
func (b *batcher) pendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, pb := range b.pending {
		n += len(pb.entries)
	}
	return n
}
