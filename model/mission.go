package model

// Waypoint is a mission waypoint as it appears in scenario files and on the
// wire. Coordinates are metres in a local Cartesian frame.
type Waypoint struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// MissionDefinition is the unvalidated description of a drone mission.
// Times are seconds on a shared scenario clock.
type MissionDefinition struct {
	ID        string     `json:"id" msgpack:"id"`
	Waypoints []Waypoint `json:"waypoints" msgpack:"waypoints"`
	StartTime float64    `json:"start_time" msgpack:"start_time"`
	EndTime   float64    `json:"end_time" msgpack:"end_time"`

	// Speed is the operator-declared cruise speed in m/s. It is carried for
	// reporting only; nil means "not declared".
	Speed *float64 `json:"speed,omitempty" msgpack:"speed,omitempty"`
}

// ConflictRecord is the exported form of a detected conflict.
type ConflictRecord struct {
	PrimaryID   string   `json:"primary_id"`
	OtherID     string   `json:"other_id"`
	Location    Waypoint `json:"location"`
	Time        float64  `json:"time"`
	Distance    float64  `json:"distance"`
	Description string   `json:"description"`
}
