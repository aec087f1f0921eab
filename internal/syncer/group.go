// Sync group registry. A group is a named set of viewports kept in sync for a
// subset of operation types, carrying the failure policy the dispatcher
// applies to operations it owns plus rolling performance figures mutated only
// by the dispatch completion path.
package syncer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/concave-dev/lockstep/internal/utils"
)

// GroupConstraints is the delivery policy shared by all operations a group
// owns.
type GroupConstraints struct {
	// MaxLatency tightens the per-target apply timeout when below the
	// engine's configured operation timeout. Zero leaves the timeout as-is.
	MaxLatency time.Duration `json:"max_latency,omitempty"`

	// TolerateFailures permits partial success when an operation also allows
	// partial sync
	TolerateFailures bool `json:"tolerate_failures,omitempty"`

	// RequireConsensus fails the whole operation when any target fails.
	// No rollback is performed; the render collaborator owns compensation.
	RequireConsensus bool `json:"require_consensus,omitempty"`

	// BatchOperations controls whether owned operations pass through the
	// batching window. Disabled groups dispatch each submission individually.
	BatchOperations bool `json:"batch_operations,omitempty"`
}

// GroupPerformance is the rolling performance snapshot for one group.
// SuccessRate starts at 1.0 and is recomputed from cumulative counts, never
// directly assigned by callers.
type GroupPerformance struct {
	AverageLatency      time.Duration `json:"average_latency"`
	SuccessRate         float64       `json:"success_rate"`
	OperationsPerSecond float64       `json:"operations_per_second"`
	LastSyncTime        time.Time     `json:"last_sync_time"`
}

// Group is a named set of viewports sharing synchronization policy for
// certain operation types.
type Group struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	ViewportIDs []string         `json:"viewport_ids"`
	SyncTypes   []Type           `json:"sync_types"`
	Priority    int              `json:"priority"`
	IsActive    bool             `json:"is_active"`
	Constraints GroupConstraints `json:"constraints"`
}

// groupState pairs a group's configuration with the cumulative counters
// backing its performance snapshot.
type groupState struct {
	group Group

	total      uint64
	succeeded  uint64
	latencySum time.Duration
	firstSync  time.Time
	lastSync   time.Time
}

// performance derives the rolling snapshot from cumulative counters.
func (gs *groupState) performance() GroupPerformance {
	perf := GroupPerformance{SuccessRate: 1.0, LastSyncTime: gs.lastSync}
	if gs.total == 0 {
		return perf
	}
	perf.SuccessRate = float64(gs.succeeded) / float64(gs.total)
	perf.AverageLatency = gs.latencySum / time.Duration(gs.total)
	if elapsed := gs.lastSync.Sub(gs.firstSync); elapsed > 0 {
		perf.OperationsPerSecond = float64(gs.total) / elapsed.Seconds()
	}
	return perf
}

// groupRegistry holds the configured sync groups. Safe for concurrent use.
type groupRegistry struct {
	mu     sync.RWMutex
	groups map[string]*groupState
}

func newGroupRegistry() *groupRegistry {
	return &groupRegistry{groups: make(map[string]*groupState)}
}

// configure registers or replaces a sync group. An empty ID gets a generated
// one. Reconfiguring an existing group preserves its cumulative performance
// counters so a constraint change does not reset observed history.
func (r *groupRegistry) configure(g Group) (Group, error) {
	if g.ID == "" {
		id, err := utils.GenerateID()
		if err != nil {
			return Group{}, fmt.Errorf("failed to generate group id: %w", err)
		}
		g.ID = id
	}
	if len(g.ViewportIDs) < 2 {
		return Group{}, fmt.Errorf("group %s must contain at least two viewports", g.ID)
	}
	if len(g.SyncTypes) == 0 {
		return Group{}, fmt.Errorf("group %s must declare at least one sync type", g.ID)
	}
	for _, t := range g.SyncTypes {
		if !t.Valid() {
			return Group{}, fmt.Errorf("group %s declares unknown sync type %q", g.ID, t)
		}
	}
	g.Priority = ClampPriority(g.Priority)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.groups[g.ID]; ok {
		existing.group = g
	} else {
		r.groups[g.ID] = &groupState{group: g}
	}
	return g, nil
}

// setActive toggles a group's participation in ownership lookups without
// discarding its configuration or performance history.
func (r *groupRegistry) setActive(id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	gs, ok := r.groups[id]
	if !ok {
		return fmt.Errorf("sync group %s not found", id)
	}
	gs.group.IsActive = active
	return nil
}

// owner finds the active group governing an operation: the group must list
// the source viewport and cover the operation type. Among several candidates
// the highest-priority group wins; ties break on lexical ID order for
// determinism.
func (r *groupRegistry) owner(op *Operation) (string, GroupConstraints, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *groupState
	for _, gs := range r.groups {
		if !gs.group.IsActive {
			continue
		}
		if !containsType(gs.group.SyncTypes, op.Type) {
			continue
		}
		if !containsString(gs.group.ViewportIDs, op.SourceViewportID) {
			continue
		}
		if best == nil ||
			gs.group.Priority > best.group.Priority ||
			(gs.group.Priority == best.group.Priority && gs.group.ID < best.group.ID) {
			best = gs
		}
	}
	if best == nil {
		return "", GroupConstraints{}, false
	}
	return best.group.ID, best.group.Constraints, true
}

// record folds one dispatched operation into the owning group's performance
// counters. Only the dispatch completion path calls this.
func (r *groupRegistry) record(id string, latency time.Duration, succeeded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gs, ok := r.groups[id]
	if !ok {
		return // Group removed or deactivated mid-flight
	}
	now := time.Now()
	if gs.total == 0 {
		gs.firstSync = now
	}
	gs.total++
	if succeeded {
		gs.succeeded++
	}
	gs.latencySum += latency
	gs.lastSync = now
}

// performance returns the rolling snapshot for one group.
func (r *groupRegistry) performance(id string) (GroupPerformance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gs, ok := r.groups[id]
	if !ok {
		return GroupPerformance{}, fmt.Errorf("sync group %s not found", id)
	}
	return gs.performance(), nil
}

// list returns all configured groups sorted by ID for stable API output.
func (r *groupRegistry) list() []Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	groups := make([]Group, 0, len(r.groups))
	for _, gs := range r.groups {
		groups = append(groups, gs.group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups
}

// activeCount returns the number of active groups for the metrics gauge.
func (r *groupRegistry) activeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, gs := range r.groups {
		if gs.group.IsActive {
			n++
		}
	}
	return n
}

func containsType(types []Type, t Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
