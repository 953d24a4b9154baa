package core

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned for detector parameters that cannot produce a
// sampling grid.
var ErrInvalidConfig = errors.New("invalid detector configuration")

// maxSamples bounds the grid size so the sample count always fits an int on
// every platform.
const maxSamples = math.MaxInt32

// SampleCount returns the number of grid samples used to verify primary at
// the given time resolution: floor(duration/resolution) + 1.
func SampleCount(primary Mission, resolution float64) (int, error) {
	if !isFinite(resolution) || resolution <= 0 {
		return 0, fmt.Errorf("%w: time resolution must be a positive number, got %g", ErrInvalidConfig, resolution)
	}
	steps := math.Floor(primary.Duration() / resolution)
	if steps >= maxSamples {
		return 0, fmt.Errorf("%w: %g s at %g s resolution exceeds %d samples", ErrInvalidConfig, primary.Duration(), resolution, maxSamples)
	}
	return int(steps) + 1, nil
}

// sampleTimes builds n evenly spaced instants covering [start, end] with
// both endpoints included. The last instant is pinned to end.
func sampleTimes(primary Mission, n int) []float64 {
	times := make([]float64, n)
	times[0] = primary.start
	if n == 1 {
		return times
	}
	step := primary.Duration() / float64(n-1)
	for i := 1; i < n-1; i++ {
		times[i] = primary.start + float64(i)*step
	}
	times[n-1] = primary.end
	return times
}
