package scenario

import (
	"fmt"

	"github.com/signalsfoundry/airspace-deconfliction/core"
)

type flight struct {
	id         string
	waypoints  []core.Point
	start, end float64
}

type builtin struct {
	description string
	buffer      float64
	resolution  float64
	primary     flight
	others      []flight
}

// Demo scenarios. Built fresh on every call so callers may keep the result.
var builtins = map[string]func() builtin{
	"sample": func() builtin {
		return builtin{
			description: "Straight primary route with a crossing, a parallel and a later flight",
			buffer:      50,
			resolution:  1,
			primary: flight{"PRIMARY-001", []core.Point{
				{X: 0, Y: 0, Z: 100}, {X: 250, Y: 0, Z: 100}, {X: 500, Y: 0, Z: 100},
			}, 0, 100},
			others: []flight{
				{"SIM-001", []core.Point{{X: 250, Y: -100, Z: 100}, {X: 250, Y: 100, Z: 100}}, 40, 60},
				{"SIM-002", []core.Point{{X: 0, Y: 100, Z: 150}, {X: 500, Y: 100, Z: 150}}, 0, 100},
				{"SIM-003", []core.Point{{X: 0, Y: 0, Z: 100}, {X: 500, Y: 0, Z: 100}}, 120, 220},
			},
		}
	},
	"conflict-free": func() builtin {
		return builtin{
			description: "Multiple drones separated in space, altitude or time",
			buffer:      50,
			resolution:  0.5,
			primary: flight{"PRIMARY-001", []core.Point{
				{X: 0, Y: 0, Z: 100}, {X: 200, Y: 200, Z: 150}, {X: 400, Y: 400, Z: 100},
			}, 0, 60},
			others: []flight{
				{"DELIVERY-101", []core.Point{{X: 0, Y: 150, Z: 200}, {X: 400, Y: 150, Z: 200}}, 0, 60},
				{"SURVEY-201", []core.Point{{X: 100, Y: 100, Z: 250}, {X: 300, Y: 300, Z: 250}}, 10, 50},
				{"PATROL-301", []core.Point{{X: 0, Y: 0, Z: 100}, {X: 400, Y: 400, Z: 100}}, 80, 140},
			},
		}
	},
	"crossing": func() builtin {
		return builtin{
			description: "West-east primary crossed head-on by a south-north flight",
			buffer:      50,
			resolution:  0.5,
			primary: flight{"PRIMARY-002", []core.Point{
				{X: 0, Y: 200, Z: 120}, {X: 400, Y: 200, Z: 120},
			}, 0, 40},
			others: []flight{
				{"DELIVERY-102", []core.Point{{X: 200, Y: 0, Z: 120}, {X: 200, Y: 400, Z: 120}}, 0, 40},
				{"SURVEY-202", []core.Point{{X: 0, Y: 100, Z: 180}, {X: 400, Y: 100, Z: 180}}, 0, 40},
			},
		}
	},
	"multiple-conflicts": func() builtin {
		return builtin{
			description: "Zig-zag primary meeting a looping flight twice and a hovering inspector",
			buffer:      50,
			resolution:  0.5,
			primary: flight{"PRIMARY-003", []core.Point{
				{X: 0, Y: 200, Z: 100}, {X: 100, Y: 200, Z: 100}, {X: 200, Y: 300, Z: 100},
				{X: 300, Y: 200, Z: 100}, {X: 400, Y: 200, Z: 100},
			}, 0, 80},
			others: []flight{
				{"EMERGENCY-401", []core.Point{
					{X: 50, Y: 150, Z: 100}, {X: 50, Y: 250, Z: 100}, {X: 350, Y: 250, Z: 100}, {X: 350, Y: 150, Z: 100},
				}, 0, 80},
				{"INSPECTION-501", []core.Point{{X: 200, Y: 300, Z: 110}}, 30, 50},
			},
		}
	},
	"near-miss": func() builtin {
		return builtin{
			description: "A transport passes within 40 m of the primary route",
			buffer:      50,
			resolution:  0.5,
			primary: flight{"PRIMARY-004", []core.Point{
				{X: 0, Y: 0, Z: 100}, {X: 300, Y: 0, Z: 100},
			}, 0, 30},
			others: []flight{
				{"TRANSPORT-601", []core.Point{{X: 150, Y: -40, Z: 100}, {X: 150, Y: 40, Z: 100}}, 10, 25},
			},
		}
	},
	"complex-3d": func() builtin {
		return builtin{
			description: "Ascending spiral through three altitude layers",
			buffer:      50,
			resolution:  0.5,
			primary: flight{"PRIMARY-005", []core.Point{
				{X: 200, Y: 200, Z: 50}, {X: 250, Y: 200, Z: 100}, {X: 250, Y: 250, Z: 150},
				{X: 200, Y: 250, Z: 200}, {X: 150, Y: 250, Z: 250}, {X: 150, Y: 200, Z: 300},
			}, 0, 90},
			others: []flight{
				{"LAYER-1", []core.Point{{X: 150, Y: 150, Z: 100}, {X: 250, Y: 250, Z: 100}}, 0, 50},
				{"LAYER-2", []core.Point{{X: 250, Y: 150, Z: 200}, {X: 150, Y: 250, Z: 200}}, 20, 70},
				{"LAYER-3", []core.Point{{X: 200, Y: 200, Z: 150}, {X: 200, Y: 200, Z: 250}}, 30, 60},
			},
		}
	},
}

// builtinOrder is the presentation order for listings and -all-demos runs.
var builtinOrder = []string{"sample", "conflict-free", "crossing", "multiple-conflicts", "near-miss", "complex-3d"}

// BuiltinNames lists the demo scenarios.
func BuiltinNames() []string {
	return append([]string(nil), builtinOrder...)
}

// Builtin returns the named demo scenario.
func Builtin(name string) (*Scenario, error) {
	gen, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	b := gen()

	primary, err := b.primary.mission()
	if err != nil {
		return nil, err
	}
	s := &Scenario{
		Name:           name,
		Description:    b.description,
		SafetyBuffer:   b.buffer,
		TimeResolution: b.resolution,
		Primary:        primary,
		Others:         make([]core.Mission, 0, len(b.others)),
	}
	for _, f := range b.others {
		m, err := f.mission()
		if err != nil {
			return nil, err
		}
		s.Others = append(s.Others, m)
	}
	return s, nil
}

func (f flight) mission() (core.Mission, error) {
	return core.NewMission(f.id, f.waypoints, f.start, f.end)
}
