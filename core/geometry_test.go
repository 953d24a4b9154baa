package core

import (
	"math"
	"testing"
)

const eps = 1e-9

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func pointsClose(a, b Point, tol float64) bool {
	return a.DistanceTo(b) <= tol
}

func TestDistance_SymmetricAndZero(t *testing.T) {
	a := Point{X: 1, Y: 2, Z: 3}
	b := Point{X: -4, Y: 6, Z: 15}

	if Distance(a, b) != Distance(b, a) {
		t.Fatalf("distance not symmetric: %v vs %v", Distance(a, b), Distance(b, a))
	}
	if Distance(a, a) != 0 {
		t.Fatalf("distance to self = %v, want 0", Distance(a, a))
	}
	if got := Distance(Point{}, Point{X: 3, Y: 4}); got != 5 {
		t.Fatalf("3-4-5 distance = %v, want 5", got)
	}
}

func TestLerp_Endpoints(t *testing.T) {
	a := Point{X: 0, Y: 10, Z: 100}
	b := Point{X: 100, Y: -10, Z: 50}

	if Lerp(a, b, 0) != a {
		t.Fatalf("Lerp(0) = %+v, want %+v", Lerp(a, b, 0), a)
	}
	if !pointsClose(Lerp(a, b, 1), b, eps) {
		t.Fatalf("Lerp(1) = %+v, want %+v", Lerp(a, b, 1), b)
	}
	mid := Lerp(a, b, 0.5)
	if !pointsClose(mid, Point{X: 50, Y: 0, Z: 75}, eps) {
		t.Fatalf("Lerp(0.5) = %+v", mid)
	}
}
