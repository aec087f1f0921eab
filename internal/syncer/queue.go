// Priority queue for pending sync operations: 11 FIFO buckets indexed by
// priority 0-10. Strict priority precedence models urgency (crosshair
// feedback must preempt a queued orientation change); starvation of
// low-priority buckets under sustained high-priority load is an accepted
// tradeoff, since cross-viewport visual consistency favors recency over
// fairness. No aging is applied.
package syncer

import "time"

// pending is one queue entry: the operation to dispatch plus the handles of
// every submission it represents (several after a merge).
type pending struct {
	op         *Operation
	handles    []*Handle
	enqueuedAt time.Time
}

// priorityQueue holds pending operations ranked by priority and arrival
// order. Not safe for concurrent use; the engine serializes access.
type priorityQueue struct {
	buckets [priorityLevels][]*pending
	size    int
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{}
}

// enqueue clamps the operation's priority into [0,10] and appends the entry
// to the corresponding bucket in O(1).
func (q *priorityQueue) enqueue(p *pending) {
	p.op.Priority = ClampPriority(p.op.Priority)
	if p.enqueuedAt.IsZero() {
		p.enqueuedAt = time.Now()
	}
	q.buckets[p.op.Priority] = append(q.buckets[p.op.Priority], p)
	q.size++
}

// dequeue scans buckets from highest to lowest priority and pops the oldest
// entry of the first non-empty bucket. Returns nil when the queue is empty.
func (q *priorityQueue) dequeue() *pending {
	for i := MaxPriority; i >= MinPriority; i-- {
		bucket := q.buckets[i]
		if len(bucket) == 0 {
			continue
		}
		p := bucket[0]
		q.buckets[i] = bucket[1:]
		q.size--
		return p
	}
	return nil
}

// remove cancels a specific pending operation by ID with a linear scan across
// buckets. Returns the removed entry, or nil if no queued operation matches.
// Merged operations carry fresh IDs, so a stale cancellation against a source
// ID never matches a merged entry.
func (q *priorityQueue) remove(id string) *pending {
	for i := MaxPriority; i >= MinPriority; i-- {
		for j, p := range q.buckets[i] {
			if p.op.ID != id {
				continue
			}
			q.buckets[i] = append(q.buckets[i][:j], q.buckets[i][j+1:]...)
			q.size--
			return p
		}
	}
	return nil
}

// len returns the number of pending operations across all buckets.
func (q *priorityQueue) len() int {
	return q.size
}
