package core

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/airspace-deconfliction/internal/logging"
)

const (
	// DefaultSafetyBuffer is the minimum separation in metres.
	DefaultSafetyBuffer = 50.0
	// DefaultTimeResolution is the sampling step in seconds.
	DefaultTimeResolution = 1.0
	// DefaultChunkSize is the number of samples evaluated per work unit.
	DefaultChunkSize = 256
)

// Verify is the sequential reference check of primary against others. It
// reports whether no sampled instant brings any other mission within
// safetyBuffer of the primary, together with every such conflict ordered by
// other-mission input order, then time. The only error is an invalid
// timeResolution.
func Verify(primary Mission, others []Mission, safetyBuffer, timeResolution float64) (bool, []Conflict, error) {
	n, err := SampleCount(primary, timeResolution)
	if err != nil {
		return false, nil, err
	}
	times := sampleTimes(primary, n)

	var conflicts []Conflict
	for idx, other := range others {
		for _, t := range times {
			p, ok := PositionAt(primary, t)
			if !ok {
				continue
			}
			o, ok := PositionAt(other, t)
			if !ok {
				continue
			}
			if dist := p.DistanceTo(o); dist < safetyBuffer {
				conflicts = append(conflicts, newConflict(primary, other, idx, p, t, dist, safetyBuffer))
			}
		}
	}
	return len(conflicts) == 0, conflicts, nil
}

// Status is the verdict of a verification run.
type Status int

const (
	// StatusSafe means no sampled instant produced a conflict.
	StatusSafe Status = iota
	// StatusUnsafe means at least one conflict was found.
	StatusUnsafe
	// StatusIncomplete means sampling was cancelled before it covered the
	// whole grid. It never implies safety.
	StatusIncomplete
)

func (s Status) String() string {
	switch s {
	case StatusSafe:
		return "safe"
	case StatusUnsafe:
		return "unsafe"
	case StatusIncomplete:
		return "incomplete"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the outcome of Detector.Verify.
type Result struct {
	Status    Status
	Conflicts []Conflict
	// Samples is the size of the primary's time grid.
	Samples int
	// Evaluated counts (other mission, sample) pairs where both drones were
	// airborne and a distance was measured.
	Evaluated int
}

// IsSafe reports whether the run completed without conflicts.
func (r Result) IsSafe() bool { return r.Status == StatusSafe }

// DetectorConfig holds the detector parameters.
type DetectorConfig struct {
	SafetyBuffer   float64 // metres
	TimeResolution float64 // seconds
	Workers        int     // parallel work units in flight; <= 0 uses runtime.NumCPU()
	ChunkSize      int     // samples per work unit; <= 0 uses DefaultChunkSize
}

// DefaultDetectorConfig returns the stock parameters.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		SafetyBuffer:   DefaultSafetyBuffer,
		TimeResolution: DefaultTimeResolution,
		Workers:        runtime.NumCPU(),
		ChunkSize:      DefaultChunkSize,
	}
}

// Validate checks the configuration.
func (c DetectorConfig) Validate() error {
	if !isFinite(c.SafetyBuffer) {
		return fmt.Errorf("%w: safety buffer must be finite", ErrInvalidConfig)
	}
	if !isFinite(c.TimeResolution) || c.TimeResolution <= 0 {
		return fmt.Errorf("%w: time resolution must be a positive number, got %g", ErrInvalidConfig, c.TimeResolution)
	}
	return nil
}

// Recorder receives one observation per verification run.
type Recorder interface {
	ObserveVerification(status string, conflicts, evaluated int, elapsed time.Duration)
}

// Detector runs the sampled conflict check in parallel. It is immutable and
// safe for concurrent use.
type Detector struct {
	cfg      DetectorConfig
	recorder Recorder
	log      logging.Logger
}

// DetectorOption customises a Detector.
type DetectorOption func(*Detector)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) DetectorOption {
	return func(d *Detector) {
		d.recorder = r
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) DetectorOption {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDetector validates cfg and returns a Detector.
func NewDetector(cfg DetectorConfig, opts ...DetectorOption) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	d := &Detector{cfg: cfg, log: logging.Noop()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the effective configuration.
func (d *Detector) Config() DetectorConfig { return d.cfg }

// workUnit is a contiguous run of grid samples checked against one other
// mission.
type workUnit struct {
	other  int
	lo, hi int
}

type unitResult struct {
	conflicts []Conflict
	evaluated int
	done      bool
}

// Verify checks primary against others over the primary's sampling grid.
//
// Work is split into (other mission, sample chunk) units evaluated
// concurrently into per-unit buffers; the merged list follows the same
// (other-mission order, time) ordering as the package-level Verify. If ctx
// is cancelled before every unit completes, the returned Result has
// StatusIncomplete, carries the conflicts found so far, and the context error
// is returned with it.
func (d *Detector) Verify(ctx context.Context, primary Mission, others []Mission) (Result, error) {
	started := time.Now()

	n, err := SampleCount(primary, d.cfg.TimeResolution)
	if err != nil {
		return Result{}, err
	}
	times := sampleTimes(primary, n)

	units := make([]workUnit, 0, len(others))
	skipped := 0
	for idx, other := range others {
		// Every grid instant lies inside the primary window, so a disjoint
		// window can never yield a position pair.
		if !primary.Overlaps(other) {
			skipped++
			continue
		}
		for lo := 0; lo < n; lo += d.cfg.ChunkSize {
			units = append(units, workUnit{other: idx, lo: lo, hi: min(lo+d.cfg.ChunkSize, n)})
		}
	}

	results := make([]unitResult, len(units))
	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for i, u := range units {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = d.scan(ctx, primary, others[u.other], u.other, times[u.lo:u.hi])
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Samples: n, Status: StatusSafe}
	complete := true
	for _, r := range results {
		complete = complete && r.done
		res.Evaluated += r.evaluated
		res.Conflicts = append(res.Conflicts, r.conflicts...)
	}
	slices.SortStableFunc(res.Conflicts, func(a, b Conflict) int {
		if c := cmp.Compare(a.OtherIndex, b.OtherIndex); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})

	switch {
	case !complete:
		res.Status = StatusIncomplete
	case len(res.Conflicts) > 0:
		res.Status = StatusUnsafe
	}

	elapsed := time.Since(started)
	if d.recorder != nil {
		d.recorder.ObserveVerification(res.Status.String(), len(res.Conflicts), res.Evaluated, elapsed)
	}
	d.log.Debug(ctx, "verification finished",
		logging.String("primary_id", primary.id),
		logging.String("status", res.Status.String()),
		logging.Int("others", len(others)),
		logging.Int("others_skipped", skipped),
		logging.Int("samples", n),
		logging.Int("evaluated", res.Evaluated),
		logging.Int("conflicts", len(res.Conflicts)),
		logging.Any("elapsed", elapsed),
	)

	if !complete {
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		return res, err
	}
	return res, nil
}

func (d *Detector) scan(ctx context.Context, primary, other Mission, otherIdx int, times []float64) unitResult {
	var out unitResult
	for _, t := range times {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		p, ok := PositionAt(primary, t)
		if !ok {
			continue
		}
		o, ok := PositionAt(other, t)
		if !ok {
			continue
		}
		out.evaluated++
		if dist := p.DistanceTo(o); dist < d.cfg.SafetyBuffer {
			out.conflicts = append(out.conflicts, newConflict(primary, other, otherIdx, p, t, dist, d.cfg.SafetyBuffer))
		}
	}
	out.done = true
	return out
}
