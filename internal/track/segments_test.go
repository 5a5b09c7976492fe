package track

import (
	"math"
	"testing"

	"peerscout/internal/model"
)

func seg(start, end float64) model.Segment {
	return model.Segment{Start: start, End: end, Duration: end - start}
}

func TestDedupeIdempotent(t *testing.T) {
	segs := []model.Segment{seg(0, 5), seg(0.05, 5.05), seg(4, 10), seg(0, 5)}
	once := Dedupe(segs)
	twice := Dedupe(once)
	if len(once) != 2 {
		t.Fatalf("expected 2 distinct segments, got %d: %v", len(once), once)
	}
	if len(twice) != len(once) {
		t.Fatalf("dedupe not idempotent: %d then %d", len(once), len(twice))
	}
}

func TestMergeOverlapCountsUniqueTime(t *testing.T) {
	merged, total := MergeOverlap([]model.Segment{seg(0, 5), seg(4, 10)})
	if len(merged) != 1 {
		t.Fatalf("expected one merged interval, got %v", merged)
	}
	if math.Abs(total-10) > 1e-9 {
		t.Fatalf("expected overlap 10, got %v", total)
	}
	if raw := RawTotal([]model.Segment{seg(0, 5), seg(4, 10)}); total > raw {
		t.Fatalf("overlap %v exceeds raw sum %v", total, raw)
	}
}

func TestMergeOverlapKeepsGaps(t *testing.T) {
	merged, total := MergeOverlap([]model.Segment{seg(0, 2), seg(10, 12)})
	if len(merged) != 2 {
		t.Fatalf("disjoint segments merged: %v", merged)
	}
	if math.Abs(total-4) > 1e-9 {
		t.Fatalf("expected total 4, got %v", total)
	}
}

func TestMergeOverlapBridgedGapNotCounted(t *testing.T) {
	// the 0.05s gap joins the intervals but is not watched time
	merged, total := MergeOverlap([]model.Segment{seg(0, 5), seg(5.05, 10)})
	if len(merged) != 1 {
		t.Fatalf("expected one merged interval, got %v", merged)
	}
	if math.Abs(total-9.95) > 1e-9 {
		t.Fatalf("expected covered time 9.95, got %v", total)
	}
}

func TestMergeOverlapNeverExceedsRawSum(t *testing.T) {
	cases := [][]model.Segment{
		nil,
		{seg(0, 1)},
		{seg(0, 5), seg(4, 10), seg(9, 9.5), seg(20, 21)},
		{seg(3, 4), seg(0, 10), seg(1, 2)},
		{seg(0, 5), seg(5.05, 10)},
		{seg(0, 1), seg(1.05, 2), seg(2.09, 3)},
		{seg(0, 5), seg(5.05, 10), seg(4, 6)},
	}
	for _, segs := range cases {
		_, total := MergeOverlap(segs)
		if total > RawTotal(segs)+1e-9 {
			t.Fatalf("overlap %v exceeds raw %v for %v", total, RawTotal(segs), segs)
		}
	}
}
