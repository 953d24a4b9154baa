package core

import "math"

// Point is a position in a local Cartesian frame, in metres. Z is altitude
// and stays 0 for planar scenarios.
type Point struct {
	X, Y, Z float64
}

// Distance returns the straight-line distance between a and b.
func Distance(a, b Point) float64 {
	return a.DistanceTo(b)
}

// DistanceTo returns the straight-line distance between two points.
func (p Point) DistanceTo(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Norm returns the Euclidean norm of the vector.
func (p Point) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Sub returns p - other.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y, Z: p.Z - other.Z}
}

// Add returns p + other.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y, Z: p.Z + other.Z}
}

// Scale returns p multiplied by s.
func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s, Z: p.Z * s}
}

// Dot returns the dot product of two vectors.
func (p Point) Dot(other Point) float64 {
	return p.X*other.X + p.Y*other.Y + p.Z*other.Z
}

// Lerp returns a + f*(b - a).
func Lerp(a, b Point, f float64) Point {
	return a.Add(b.Sub(a).Scale(f))
}

func (p Point) finite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
