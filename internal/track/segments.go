package track

import (
	"math"
	"sort"

	"peerscout/internal/model"
)

// fuzz is the tolerance, in seconds, for treating two segment endpoints as
// equal and for folding adjacent segments during overlap merging.
const fuzz = 0.1

// Dedupe removes segments whose start and end both match an earlier segment
// within the fuzz tolerance. Order of first occurrence is preserved.
// Idempotent: Dedupe(Dedupe(s)) == Dedupe(s).
func Dedupe(segs []model.Segment) []model.Segment {
	out := make([]model.Segment, 0, len(segs))
	for _, s := range segs {
		dup := false
		for _, kept := range out {
			if math.Abs(kept.Start-s.Start) < fuzz && math.Abs(kept.End-s.End) < fuzz {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}

// MergeOverlap sorts segments by start and coalesces any segment starting
// within fuzz of the previous merged segment's end. Returns the merged
// intervals and the total covered time. A fuzz-bridged gap joins the
// intervals but is not counted as covered, so the total never exceeds the
// sum of raw segment durations.
func MergeOverlap(segs []model.Segment) ([]model.Segment, float64) {
	if len(segs) == 0 {
		return nil, 0
	}
	sorted := make([]model.Segment, len(segs))
	copy(sorted, segs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []model.Segment{sorted[0]}
	total := math.Max(sorted[0].End-sorted[0].Start, 0)
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End+fuzz {
			if s.End > last.End {
				total += math.Max(s.End-math.Max(s.Start, last.End), 0)
				last.End = s.End
			}
		} else {
			merged = append(merged, s)
			total += math.Max(s.End-s.Start, 0)
		}
	}
	for i := range merged {
		merged[i].Duration = merged[i].End - merged[i].Start
		if merged[i].Duration < 0 {
			merged[i].Duration = 0
		}
	}
	return merged, total
}

// RawTotal sums per-segment durations without overlap removal.
func RawTotal(segs []model.Segment) float64 {
	total := 0.0
	for _, s := range segs {
		total += s.Duration
	}
	return total
}
