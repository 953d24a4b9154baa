package timectrl

import (
	"context"
	"math"
	"sync"
	"time"
)

// Mode describes how the TimeController advances mission time.
type Mode int

const (
	// RealTime advances one tick per Pace of wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as quickly as listeners allow.
	Accelerated
)

// DefaultPace is the wall-clock interval between ticks in RealTime mode.
const DefaultPace = time.Second

// TimeController steps mission time across a window and notifies registered
// listeners on every tick.
type TimeController struct {
	mu    sync.RWMutex
	start float64
	step  float64
	mode  Mode
	pace  time.Duration

	current float64

	listeners []func(float64)
}

// NewTimeController constructs a controller starting at start and advancing
// step seconds per tick. A non-positive step defaults to one second.
func NewTimeController(start, step float64, mode Mode) *TimeController {
	if step <= 0 || math.IsNaN(step) {
		step = 1
	}
	return &TimeController{
		start:   start,
		step:    step,
		mode:    mode,
		pace:    DefaultPace,
		current: start,
	}
}

// SetPace changes the wall-clock interval between RealTime ticks.
func (tc *TimeController) SetPace(d time.Duration) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if d > 0 {
		tc.pace = d
	}
}

// Step returns the mission-time increment per tick.
func (tc *TimeController) Step() float64 { return tc.step }

// Mode returns the controller's advance mode.
func (tc *TimeController) Mode() Mode { return tc.mode }

// Now returns the current mission time.
func (tc *TimeController) Now() float64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.current
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(float64)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Start runs the controller over [start, start+duration] in a separate
// goroutine. Listeners observe start itself, every intermediate tick, and the
// window end exactly. The returned channel is closed when the run finishes or
// ctx is cancelled.
func (tc *TimeController) Start(ctx context.Context, duration float64) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		tc.mu.RLock()
		start, step, mode, pace := tc.start, tc.step, tc.mode, tc.pace
		listeners := append([]func(float64){}, tc.listeners...)
		tc.mu.RUnlock()

		end := start + math.Max(duration, 0)
		ticks := int(math.Ceil((end - start) / step))

		var ticker *time.Ticker
		if mode == RealTime {
			ticker = time.NewTicker(pace)
			defer ticker.Stop()
		}

		for i := 0; i <= ticks; i++ {
			if i > 0 && ticker != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			} else if ctx.Err() != nil {
				return
			}

			simTime := math.Min(start+float64(i)*step, end)

			tc.mu.Lock()
			tc.current = simTime
			tc.mu.Unlock()

			for _, fn := range listeners {
				fn(simTime)
			}
		}
	}()
	return done
}
