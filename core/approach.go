package core

import (
	"math"
	"slices"
)

// Approach describes the instant of minimum separation between two missions.
type Approach struct {
	Time      float64
	Distance  float64
	PositionA Point
	PositionB Point
}

// ClosestApproach computes the exact minimum separation between a and b over
// the intersection of their windows. Between consecutive waypoint arrivals of
// either mission both drones move linearly, so the relative position is a
// line segment in each sub-interval and its closest point to the origin can be
// found in closed form. The second result is false when the windows do not
// overlap.
func ClosestApproach(a, b Mission) (Approach, bool) {
	if !a.Overlaps(b) {
		return Approach{}, false
	}
	lo := math.Max(a.start, b.start)
	hi := math.Min(a.end, b.end)

	cuts := []float64{lo, hi}
	for _, t := range a.arrivalTimes() {
		if t > lo && t < hi {
			cuts = append(cuts, t)
		}
	}
	for _, t := range b.arrivalTimes() {
		if t > lo && t < hi {
			cuts = append(cuts, t)
		}
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	best := approachAt(a, b, lo)
	for i := 0; i+1 < len(cuts); i++ {
		t0, t1 := cuts[i], cuts[i+1]
		r0 := relative(a, b, t0)
		r1 := relative(a, b, t1)
		v := r1.Sub(r0)

		// s minimises |r0 + s v|^2 over s in [0, 1].
		s := 0.0
		if vv := v.Dot(v); vv > 0 {
			s = -r0.Dot(v) / vv
			if s < 0 {
				s = 0
			} else if s > 1 {
				s = 1
			}
		}
		cand := approachAt(a, b, t0+s*(t1-t0))
		if cand.Distance < best.Distance {
			best = cand
		}
	}
	if end := approachAt(a, b, hi); end.Distance < best.Distance {
		best = end
	}
	return best, true
}

func relative(a, b Mission, t float64) Point {
	pa, _ := PositionAt(a, t)
	pb, _ := PositionAt(b, t)
	return pb.Sub(pa)
}

func approachAt(a, b Mission, t float64) Approach {
	pa, _ := PositionAt(a, t)
	pb, _ := PositionAt(b, t)
	return Approach{Time: t, Distance: pa.DistanceTo(pb), PositionA: pa, PositionB: pb}
}
