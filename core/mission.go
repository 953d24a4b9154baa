package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/airspace-deconfliction/model"
)

// DefaultSpeed is the nominal cruise speed assigned when a mission does not
// declare one (m/s).
const DefaultSpeed = 10.0

// ErrInvalidMission is returned when a mission fails construction-time
// validation.
var ErrInvalidMission = errors.New("invalid mission")

// Mission is an immutable drone mission: an ordered waypoint path flown at
// constant pace over [StartTime, EndTime]. Construct it with NewMission; the
// zero value is not a valid mission.
type Mission struct {
	id        string
	waypoints []Point
	start     float64
	end       float64
	speed     float64

	// cumulative[i] is the arc length from waypoints[0] to waypoints[i].
	cumulative []float64
}

// MissionOption customises mission construction.
type MissionOption func(*Mission)

// WithSpeed records the declared cruise speed. The speed is informational:
// the actual pace is always PathLength / Duration.
func WithSpeed(speed float64) MissionOption {
	return func(m *Mission) {
		m.speed = speed
	}
}

// NewMission validates its inputs and returns an immutable Mission.
func NewMission(id string, waypoints []Point, start, end float64, opts ...MissionOption) (Mission, error) {
	if len(waypoints) == 0 {
		return Mission{}, fmt.Errorf("%w: mission %q has no waypoints", ErrInvalidMission, id)
	}
	if !isFinite(start) || !isFinite(end) {
		return Mission{}, fmt.Errorf("%w: mission %q has a non-finite time window", ErrInvalidMission, id)
	}
	if end < start {
		return Mission{}, fmt.Errorf("%w: mission %q ends (%g) before it starts (%g)", ErrInvalidMission, id, end, start)
	}
	for i, wp := range waypoints {
		if !wp.finite() {
			return Mission{}, fmt.Errorf("%w: mission %q waypoint %d is not finite", ErrInvalidMission, id, i)
		}
	}

	m := Mission{
		id:        id,
		waypoints: append([]Point(nil), waypoints...),
		start:     start,
		end:       end,
		speed:     DefaultSpeed,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if !isFinite(m.speed) || m.speed < 0 {
		return Mission{}, fmt.Errorf("%w: mission %q has invalid speed %g", ErrInvalidMission, id, m.speed)
	}

	m.cumulative = make([]float64, len(m.waypoints))
	for i := 1; i < len(m.waypoints); i++ {
		m.cumulative[i] = m.cumulative[i-1] + m.waypoints[i-1].DistanceTo(m.waypoints[i])
	}
	return m, nil
}

// MissionFromDefinition converts a wire/file definition into a validated
// Mission.
func MissionFromDefinition(def model.MissionDefinition) (Mission, error) {
	points := make([]Point, 0, len(def.Waypoints))
	for _, wp := range def.Waypoints {
		points = append(points, Point{X: wp.X, Y: wp.Y, Z: wp.Z})
	}
	var opts []MissionOption
	if def.Speed != nil {
		opts = append(opts, WithSpeed(*def.Speed))
	}
	return NewMission(def.ID, points, def.StartTime, def.EndTime, opts...)
}

// Definition returns the exported form of the mission.
func (m Mission) Definition() model.MissionDefinition {
	wps := make([]model.Waypoint, 0, len(m.waypoints))
	for _, p := range m.waypoints {
		wps = append(wps, model.Waypoint{X: p.X, Y: p.Y, Z: p.Z})
	}
	speed := m.speed
	return model.MissionDefinition{
		ID:        m.id,
		Waypoints: wps,
		StartTime: m.start,
		EndTime:   m.end,
		Speed:     &speed,
	}
}

// ID returns the mission identifier.
func (m Mission) ID() string { return m.id }

// StartTime returns the start of the mission window in seconds.
func (m Mission) StartTime() float64 { return m.start }

// EndTime returns the end of the mission window in seconds.
func (m Mission) EndTime() float64 { return m.end }

// Speed returns the declared cruise speed.
func (m Mission) Speed() float64 { return m.speed }

// Waypoints returns a copy of the waypoint path.
func (m Mission) Waypoints() []Point {
	return append([]Point(nil), m.waypoints...)
}

// NumWaypoints returns the number of waypoints.
func (m Mission) NumWaypoints() int { return len(m.waypoints) }

// Duration is EndTime - StartTime. Zero means an instantaneous (hover)
// mission.
func (m Mission) Duration() float64 {
	return m.end - m.start
}

// PathLength is the summed length of all path segments; 0 for a single
// waypoint.
func (m Mission) PathLength() float64 {
	if len(m.cumulative) == 0 {
		return 0
	}
	return m.cumulative[len(m.cumulative)-1]
}

// ImpliedSpeed is the pace the interpolator actually uses.
func (m Mission) ImpliedSpeed() float64 {
	d := m.Duration()
	if d == 0 {
		return 0
	}
	return m.PathLength() / d
}

// Overlaps reports whether the mission windows of m and other intersect.
func (m Mission) Overlaps(other Mission) bool {
	return m.start <= other.end && other.start <= m.end
}
