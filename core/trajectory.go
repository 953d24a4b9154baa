package core

import (
	"math"
	"sort"
)

// PositionAt returns the interpolated position of m at time t, assuming the
// whole path is flown at constant pace over the mission window. The second
// result is false when the drone is not airborne at t.
func PositionAt(m Mission, t float64) (Point, bool) {
	if len(m.waypoints) == 0 || math.IsNaN(t) || t < m.start || t > m.end {
		return Point{}, false
	}

	duration := m.Duration()
	if duration == 0 {
		return m.waypoints[0], true
	}

	travelled := (t - m.start) / duration * m.PathLength()

	// First segment whose end lies at or beyond the travelled distance. The
	// comparison is non-strict so a drone exactly on a waypoint is placed at
	// the end of the segment arriving there.
	segments := len(m.waypoints) - 1
	i := sort.Search(segments, func(i int) bool {
		return m.cumulative[i+1] >= travelled
	})
	if i == segments {
		// Single waypoint, or floating drift past the path end.
		return m.waypoints[len(m.waypoints)-1], true
	}

	segLen := m.waypoints[i].DistanceTo(m.waypoints[i+1])
	local := 0.0
	if segLen > 0 {
		local = (travelled - m.cumulative[i]) / segLen
	}
	return Lerp(m.waypoints[i], m.waypoints[i+1], local), true
}

// PositionAt is a convenience method for the package-level PositionAt.
func (m Mission) PositionAt(t float64) (Point, bool) {
	return PositionAt(m, t)
}

// arrivalTimes returns the time at which the drone reaches each waypoint.
// Hover and zero-length missions report the window bounds only.
func (m Mission) arrivalTimes() []float64 {
	length := m.PathLength()
	if m.Duration() == 0 || length == 0 {
		return []float64{m.start, m.end}
	}
	times := make([]float64, len(m.cumulative))
	for i, c := range m.cumulative {
		times[i] = m.start + m.Duration()*c/length
	}
	times[len(times)-1] = m.end
	return times
}
