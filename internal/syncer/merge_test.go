package syncer

import (
	"reflect"
	"testing"
	"time"
)

func TestMergeOperationsEmpty(t *testing.T) {
	if merged := mergeOperations(nil); merged != nil {
		t.Errorf("mergeOperations(nil) = %+v, want nil", merged)
	}
}

// TestMergeOperationsLatestWins verifies that the merged operation carries
// the data and timestamp of the temporally latest member even when members
// arrive out of timestamp order.
func TestMergeOperationsLatestWins(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	ops := []*Operation{
		{
			ID: "op-1", Type: TypePan, SourceViewportID: "vp-axial",
			TargetViewportIDs: []string{"vp-coronal"},
			Priority:          3, Timestamp: base.Add(20 * time.Millisecond),
			Data: map[string]float64{"x": 12, "y": 4},
		},
		{
			ID: "op-2", Type: TypePan, SourceViewportID: "vp-axial",
			TargetViewportIDs: []string{"vp-sagittal"},
			Priority:          8, Timestamp: base,
			Data: map[string]float64{"x": 2, "y": 1},
		},
		{
			ID: "op-3", Type: TypePan, SourceViewportID: "vp-axial",
			TargetViewportIDs: []string{"vp-coronal", "vp-3d"},
			Priority:          5, Timestamp: base.Add(10 * time.Millisecond),
			Data: map[string]float64{"x": 7, "y": 3},
		},
	}

	merged := mergeOperations(ops)
	if merged == nil {
		t.Fatal("mergeOperations returned nil for non-empty batch")
	}
	if !reflect.DeepEqual(merged.Data, ops[0].Data) {
		t.Errorf("merged data = %v, want latest member's %v", merged.Data, ops[0].Data)
	}
	if !merged.Timestamp.Equal(ops[0].Timestamp) {
		t.Errorf("merged timestamp = %v, want %v", merged.Timestamp, ops[0].Timestamp)
	}
	if merged.Priority != 8 {
		t.Errorf("merged priority = %d, want max 8", merged.Priority)
	}

	// Target union is order-stable by first appearance
	wantTargets := []string{"vp-coronal", "vp-sagittal", "vp-3d"}
	if !reflect.DeepEqual(merged.TargetViewportIDs, wantTargets) {
		t.Errorf("merged targets = %v, want %v", merged.TargetViewportIDs, wantTargets)
	}
}

// TestMergeOperationsFreshID verifies that the merged operation never reuses
// a member's ID, so cancellation by a member ID cannot hit the merged result.
func TestMergeOperationsFreshID(t *testing.T) {
	ops := []*Operation{
		{ID: "op-1", Type: TypeZoom, SourceViewportID: "vp-a", TargetViewportIDs: []string{"vp-b"}},
		{ID: "op-2", Type: TypeZoom, SourceViewportID: "vp-a", TargetViewportIDs: []string{"vp-b"}},
	}

	merged := mergeOperations(ops)
	if merged.ID == "" {
		t.Fatal("merged operation has empty ID")
	}
	for _, op := range ops {
		if merged.ID == op.ID {
			t.Errorf("merged ID %q reuses member ID", merged.ID)
		}
	}
}

func TestMergeOperationsSingleMember(t *testing.T) {
	op := &Operation{
		ID: "op-solo", Type: TypeScroll, SourceViewportID: "vp-a",
		TargetViewportIDs: []string{"vp-b", "vp-c"},
		Priority:          4, Timestamp: time.Now(),
		Data: 42,
	}

	merged := mergeOperations([]*Operation{op})
	if merged.ID == op.ID {
		t.Error("single-member merge should still assign a fresh ID")
	}
	if merged.Priority != op.Priority || merged.Data != op.Data {
		t.Errorf("single-member merge changed payload: %+v", merged)
	}
	if !reflect.DeepEqual(merged.TargetViewportIDs, op.TargetViewportIDs) {
		t.Errorf("single-member merge targets = %v, want %v", merged.TargetViewportIDs, op.TargetViewportIDs)
	}
}
