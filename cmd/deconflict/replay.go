package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/signalsfoundry/airspace-deconfliction/core"
	"github.com/signalsfoundry/airspace-deconfliction/internal/scenario"
	"github.com/signalsfoundry/airspace-deconfliction/timectrl"
)

// replay steps a clock across the primary window and prints every airborne
// mission's position per tick, flagging competitors inside the safety buffer.
// A positive pace runs the clock in real time, one tick per pace.
func replay(ctx context.Context, w io.Writer, s *scenario.Scenario, buffer, step float64, pace time.Duration) {
	primary := s.Primary
	tc := replayClock(primary.StartTime(), step, pace)

	fmt.Fprintf(w, "--- replay %s (step %.1fs) ---\n", s.Name, tc.Step())
	tc.AddListener(func(t float64) {
		fmt.Fprintf(w, "t=%.1fs\n", t)
		pp, ok := primary.PositionAt(t)
		if ok {
			writePosition(w, primary.ID(), pp)
		}
		for _, o := range s.Others {
			op, airborne := o.PositionAt(t)
			if !airborne {
				continue
			}
			writePosition(w, o.ID(), op)
			if ok {
				if d := core.Distance(pp, op); d < buffer {
					fmt.Fprintf(w, "  ! %s within %.2fm of %s\n", o.ID(), d, primary.ID())
				}
			}
		}
	})

	<-tc.Start(ctx, primary.Duration())
}

func replayClock(start, step float64, pace time.Duration) *timectrl.TimeController {
	if pace <= 0 {
		return timectrl.NewTimeController(start, step, timectrl.Accelerated)
	}
	tc := timectrl.NewTimeController(start, step, timectrl.RealTime)
	tc.SetPace(pace)
	return tc
}

func writePosition(w io.Writer, id string, p core.Point) {
	fmt.Fprintf(w, "  %-16s (%.1f, %.1f, %.1f)\n", id, p.X, p.Y, p.Z)
}
