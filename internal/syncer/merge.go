// Merge resolver: collapses a flushed batch into one representative
// operation. For interactive gestures only the newest parameter values
// matter, so the merged operation carries the temporally latest member's
// payload while still reaching every viewport any member targeted.
package syncer

import "github.com/google/uuid"

// mergeOperations collapses a non-empty ordered list of operations sharing a
// batch key into a single representative operation:
//
//   - data and timestamp come from the temporally latest member
//   - target viewports are the set union of all members' targets,
//     order-stable by first appearance
//   - priority is the maximum across members
//   - the ID is freshly generated, never reusing a member's ID, so a stale
//     cancellation can never match the merged result
//
// A single-member batch passes through unchanged except for the new ID,
// keeping the dispatch path uniform. Returns nil for an empty batch.
func mergeOperations(ops []*Operation) *Operation {
	if len(ops) == 0 {
		return nil
	}

	latest := ops[0]
	maxPriority := ops[0].Priority
	seen := make(map[string]bool)
	var targets []string

	for _, op := range ops {
		if op.Timestamp.After(latest.Timestamp) {
			latest = op
		}
		if op.Priority > maxPriority {
			maxPriority = op.Priority
		}
		for _, target := range op.TargetViewportIDs {
			if !seen[target] {
				seen[target] = true
				targets = append(targets, target)
			}
		}
	}

	return &Operation{
		ID:                uuid.NewString(),
		Type:              latest.Type,
		SourceViewportID:  latest.SourceViewportID,
		TargetViewportIDs: targets,
		Priority:          ClampPriority(maxPriority),
		Timestamp:         latest.Timestamp,
		Data:              latest.Data,
		Constraints:       latest.Constraints,
	}
}
