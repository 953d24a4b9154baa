package core

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"
)

func scenarioPrimary(t *testing.T) Mission {
	return mustMission(t, "primary", []Point{{X: 0, Y: 0, Z: 100}, {X: 500, Y: 0, Z: 100}}, 0, 100)
}

func TestVerify_ScenarioCrossing(t *testing.T) {
	primary := scenarioPrimary(t)
	other := mustMission(t, "crossing", []Point{{X: 250, Y: -100, Z: 100}, {X: 250, Y: 100, Z: 100}}, 40, 60)

	safe, conflicts, err := Verify(primary, []Mission{other}, 50, 1)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if safe || len(conflicts) == 0 {
		t.Fatalf("expected a conflict, got safe=%v conflicts=%d", safe, len(conflicts))
	}

	closest := conflicts[0]
	for _, c := range conflicts {
		if c.Distance < closest.Distance {
			closest = c
		}
		if c.Distance >= 50 {
			t.Fatalf("conflict recorded at distance %v >= buffer", c.Distance)
		}
		if c.PrimaryID != "primary" || c.OtherID != "crossing" {
			t.Fatalf("unexpected ids %q/%q", c.PrimaryID, c.OtherID)
		}
	}
	if !approxEqual(closest.Time, 50, 1) {
		t.Fatalf("closest conflict at t=%v, want ~50", closest.Time)
	}
	if !pointsClose(closest.Location, Point{X: 250, Y: 0, Z: 100}, 5) {
		t.Fatalf("closest conflict at %+v, want ~(250,0,100)", closest.Location)
	}
	if closest.Description != "Conflict at t=50.0s: distance=0.00m (min=50.0m)" {
		t.Fatalf("description = %q", closest.Description)
	}
}

func TestVerify_ScenarioParallelSafe(t *testing.T) {
	primary := scenarioPrimary(t)
	other := mustMission(t, "parallel", []Point{{X: 0, Y: 100, Z: 100}, {X: 500, Y: 100, Z: 100}}, 0, 100)

	safe, conflicts, err := Verify(primary, []Mission{other}, 50, 1)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !safe || len(conflicts) != 0 {
		t.Fatalf("expected safe, got safe=%v conflicts=%v", safe, conflicts)
	}
}

func TestVerify_ScenarioSamePathDisjointTime(t *testing.T) {
	primary := scenarioPrimary(t)
	other := mustMission(t, "later", primary.Waypoints(), 120, 220)

	safe, conflicts, err := Verify(primary, []Mission{other}, 50, 1)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !safe || len(conflicts) != 0 {
		t.Fatalf("expected safe, got safe=%v conflicts=%v", safe, conflicts)
	}
}

func TestVerify_ScenarioHoverCollision(t *testing.T) {
	primary := mustMission(t, "p", []Point{{X: 50, Y: 50, Z: 100}}, 0, 10)
	other := mustMission(t, "o", []Point{{X: 60, Y: 60, Z: 100}}, 0, 10)

	safe, conflicts, err := Verify(primary, []Mission{other}, 50, 1)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if safe {
		t.Fatalf("expected hover collision")
	}
	// Both drones hover for the whole window, so every grid instant conflicts.
	if len(conflicts) != 11 {
		t.Fatalf("conflicts = %d, want 11", len(conflicts))
	}
	if conflicts[0].Time != 0 || !approxEqual(conflicts[0].Distance, math.Sqrt(200), 1e-9) {
		t.Fatalf("first conflict = %+v", conflicts[0])
	}
}

func TestVerify_InstantaneousPrimarySamplesOnce(t *testing.T) {
	primary := mustMission(t, "p", []Point{{X: 50, Y: 50, Z: 100}}, 0, 0)
	other := mustMission(t, "o", []Point{{X: 60, Y: 60, Z: 100}}, 0, 10)

	safe, conflicts, err := Verify(primary, []Mission{other}, 50, 1)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if safe || len(conflicts) != 1 || conflicts[0].Time != 0 {
		t.Fatalf("expected exactly one conflict at t=0, got safe=%v %+v", safe, conflicts)
	}
}

func TestVerify_NoOthersIsSafe(t *testing.T) {
	safe, conflicts, err := Verify(scenarioPrimary(t), nil, 50, 1)
	if err != nil || !safe || len(conflicts) != 0 {
		t.Fatalf("got safe=%v conflicts=%v err=%v", safe, conflicts, err)
	}
}

func TestVerify_BufferEqualityIsNotAConflict(t *testing.T) {
	primary := mustMission(t, "p", []Point{{X: 0}, {X: 100}}, 0, 10)
	other := mustMission(t, "o", []Point{{X: 0, Y: 50}, {X: 100, Y: 50}}, 0, 10)

	if safe, _, _ := Verify(primary, []Mission{other}, 50, 1); !safe {
		t.Fatalf("distance equal to the buffer must not conflict")
	}
	if safe, conflicts, _ := Verify(primary, []Mission{other}, 50.001, 1); safe || len(conflicts) != 11 {
		t.Fatalf("expected 11 conflicts just above the buffer, got %d", len(conflicts))
	}
	if safe, _, _ := Verify(primary, []Mission{other}, -1, 1); !safe {
		t.Fatalf("negative buffer must never conflict")
	}
}

func TestVerify_InvalidResolution(t *testing.T) {
	for _, res := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, _, err := Verify(scenarioPrimary(t), nil, 50, res); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("resolution %v: expected ErrInvalidConfig, got %v", res, err)
		}
	}
}

func TestVerify_OrderingByOtherThenTime(t *testing.T) {
	primary := scenarioPrimary(t)
	b := mustMission(t, "b", []Point{{X: 0, Y: 10, Z: 100}, {X: 500, Y: 10, Z: 100}}, 0, 100)
	a := mustMission(t, "a", []Point{{X: 500, Y: 0, Z: 100}, {X: 0, Y: 0, Z: 100}}, 0, 100)

	_, conflicts, err := Verify(primary, []Mission{b, a}, 50, 1)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	assertOrdered(t, conflicts)
	if conflicts[0].OtherID != "b" || conflicts[len(conflicts)-1].OtherID != "a" {
		t.Fatalf("expected b's conflicts before a's")
	}
}

func assertOrdered(t *testing.T, conflicts []Conflict) {
	t.Helper()
	for i := 1; i < len(conflicts); i++ {
		prev, cur := conflicts[i-1], conflicts[i]
		if cur.OtherIndex < prev.OtherIndex || (cur.OtherIndex == prev.OtherIndex && cur.Time < prev.Time) {
			t.Fatalf("conflicts out of order at %d: %+v after %+v", i, cur, prev)
		}
	}
}

func randomMission(t *testing.T, rng *rand.Rand, id string) Mission {
	n := 1 + rng.Intn(5)
	wps := make([]Point, n)
	for i := range wps {
		wps[i] = Point{X: rng.Float64() * 400, Y: rng.Float64() * 400, Z: 80 + rng.Float64()*40}
	}
	start := rng.Float64() * 60
	end := start + rng.Float64()*120
	return mustMission(t, id, wps, start, end)
}

func TestVerify_BufferMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	primary := randomMission(t, rng, "primary")
	others := make([]Mission, 8)
	for i := range others {
		others[i] = randomMission(t, rng, "other")
	}

	type key struct {
		idx int
		at  float64
	}
	prev := map[key]bool{}
	for _, buffer := range []float64{0, 10, 25, 50, 100, 250} {
		_, conflicts, err := Verify(primary, others, buffer, 0.5)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		cur := map[key]bool{}
		for _, c := range conflicts {
			cur[key{c.OtherIndex, c.Time}] = true
		}
		for k := range prev {
			if !cur[k] {
				t.Fatalf("buffer %v dropped conflict %+v", buffer, k)
			}
		}
		prev = cur
	}
}

func TestDetector_MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		primary := randomMission(t, rng, "primary")
		others := make([]Mission, 1+rng.Intn(10))
		for i := range others {
			others[i] = randomMission(t, rng, "other")
		}

		_, want, err := Verify(primary, others, 120, 0.25)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}

		d, err := NewDetector(DetectorConfig{SafetyBuffer: 120, TimeResolution: 0.25, Workers: 4, ChunkSize: 7})
		if err != nil {
			t.Fatalf("NewDetector: %v", err)
		}
		res, err := d.Verify(context.Background(), primary, others)
		if err != nil {
			t.Fatalf("Detector.Verify: %v", err)
		}
		if len(want) == 0 {
			if len(res.Conflicts) != 0 || res.Status != StatusSafe {
				t.Fatalf("trial %d: expected safe, got %v with %d conflicts", trial, res.Status, len(res.Conflicts))
			}
			continue
		}
		if res.Status != StatusUnsafe {
			t.Fatalf("trial %d: status = %v, want unsafe", trial, res.Status)
		}
		if !reflect.DeepEqual(res.Conflicts, want) {
			t.Fatalf("trial %d: parallel result differs from reference (%d vs %d conflicts)", trial, len(res.Conflicts), len(want))
		}
	}
}

func TestDetector_ConfigValidation(t *testing.T) {
	if _, err := NewDetector(DetectorConfig{SafetyBuffer: 50, TimeResolution: 0}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for zero resolution, got %v", err)
	}
	if _, err := NewDetector(DetectorConfig{SafetyBuffer: math.NaN(), TimeResolution: 1}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for NaN buffer, got %v", err)
	}

	d, err := NewDetector(DetectorConfig{SafetyBuffer: 50, TimeResolution: 1})
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	cfg := d.Config()
	if cfg.Workers <= 0 || cfg.ChunkSize != DefaultChunkSize {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	def := DefaultDetectorConfig()
	if def.SafetyBuffer != 50 || def.TimeResolution != 1 {
		t.Fatalf("unexpected defaults %+v", def)
	}
}

func TestDetector_CancelledContextIsIncomplete(t *testing.T) {
	primary := scenarioPrimary(t)
	other := mustMission(t, "crossing", []Point{{X: 250, Y: -100, Z: 100}, {X: 250, Y: 100, Z: 100}}, 40, 60)

	d, err := NewDetector(DefaultDetectorConfig())
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := d.Verify(ctx, primary, []Mission{other})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Status != StatusIncomplete {
		t.Fatalf("status = %v, want incomplete", res.Status)
	}
	if res.IsSafe() {
		t.Fatalf("incomplete result must not report safe")
	}
}

func TestDetector_DisjointOthersAreSkipped(t *testing.T) {
	primary := scenarioPrimary(t)
	later := mustMission(t, "later", primary.Waypoints(), 120, 220)

	d, err := NewDetector(DefaultDetectorConfig())
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	res, err := d.Verify(context.Background(), primary, []Mission{later})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Status != StatusSafe || res.Evaluated != 0 || res.Samples != 101 {
		t.Fatalf("unexpected result %+v", res)
	}
}

type recordedRun struct {
	status    string
	conflicts int
	evaluated int
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []recordedRun
}

func (f *fakeRecorder) ObserveVerification(status string, conflicts, evaluated int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, recordedRun{status, conflicts, evaluated})
}

func TestDetector_RecordsObservation(t *testing.T) {
	rec := &fakeRecorder{}
	d, err := NewDetector(DefaultDetectorConfig(), WithRecorder(rec))
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	primary := scenarioPrimary(t)
	other := mustMission(t, "crossing", []Point{{X: 250, Y: -100, Z: 100}, {X: 250, Y: 100, Z: 100}}, 40, 60)

	res, err := d.Verify(context.Background(), primary, []Mission{other})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(rec.runs) != 1 {
		t.Fatalf("recorder saw %d runs, want 1", len(rec.runs))
	}
	got := rec.runs[0]
	if got.status != "unsafe" || got.conflicts != len(res.Conflicts) || got.evaluated != 21 {
		t.Fatalf("unexpected observation %+v", got)
	}
}

func TestStatusString(t *testing.T) {
	if StatusSafe.String() != "safe" || StatusUnsafe.String() != "unsafe" || StatusIncomplete.String() != "incomplete" {
		t.Fatalf("unexpected status names")
	}
	if Status(9).String() != "Status(9)" {
		t.Fatalf("unexpected fallback %q", Status(9).String())
	}
}

func TestConflictDescriptionBuffer(t *testing.T) {
	cases := map[float64]string{
		50:     "50.0",
		12.25:  "12.25",
		0:      "0.0",
		-3:     "-3.0",
		0.0001: "0.0001",
		1e-5:   "1e-05",
		2.5e-7: "2.5e-07",
		1e15:   "1000000000000000.0",
		1e16:   "1e+16",
	}
	for in, want := range cases {
		if got := formatBuffer(in); got != want {
			t.Fatalf("formatBuffer(%v) = %q, want %q", in, got, want)
		}
	}
}
