package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/signalsfoundry/airspace-deconfliction/model"
)

// Conflict is a sampled instant at which the primary mission and another
// mission were closer than the safety buffer.
type Conflict struct {
	PrimaryID string
	OtherID   string
	// OtherIndex is the position of the other mission in the input slice.
	OtherIndex  int
	Location    Point // primary's position at Time
	Time        float64
	Distance    float64
	Description string
}

func newConflict(primary, other Mission, otherIdx int, at Point, t, dist, buffer float64) Conflict {
	return Conflict{
		PrimaryID:   primary.id,
		OtherID:     other.id,
		OtherIndex:  otherIdx,
		Location:    at,
		Time:        t,
		Distance:    dist,
		Description: fmt.Sprintf("Conflict at t=%.1fs: distance=%.2fm (min=%sm)", t, dist, formatBuffer(buffer)),
	}
}

// Record returns the exported form of the conflict.
func (c Conflict) Record() model.ConflictRecord {
	return model.ConflictRecord{
		PrimaryID:   c.PrimaryID,
		OtherID:     c.OtherID,
		Location:    model.Waypoint{X: c.Location.X, Y: c.Location.Y, Z: c.Location.Z},
		Time:        c.Time,
		Distance:    c.Distance,
		Description: c.Description,
	}
}

// Records converts a conflict list, preserving order.
func Records(conflicts []Conflict) []model.ConflictRecord {
	out := make([]model.ConflictRecord, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, c.Record())
	}
	return out
}

// formatBuffer renders the buffer with the shortest exact decimal, keeping a
// trailing ".0" on whole numbers. Magnitudes below 1e-4 or from 1e16 up use
// exponent notation, e.g. 1e-05 and 1e+16.
func formatBuffer(b float64) string {
	sci := strconv.FormatFloat(b, 'e', -1, 64)
	if i := strings.LastIndexByte(sci, 'e'); i >= 0 {
		if exp, err := strconv.Atoi(sci[i+1:]); err == nil && (exp < -4 || exp >= 16) {
			return sci
		}
	}
	s := strconv.FormatFloat(b, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
