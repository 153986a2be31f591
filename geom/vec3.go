package geom

import "math"

// Vec3 is a point or displacement in world-space Angstrom coordinates.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns a+b.
func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

// Sub returns a-b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

// Scale returns a*s.
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{a.X * s, a.Y * s, a.Z * s}
}

// Dot returns the dot product of a and b.
func (a Vec3) Dot(b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// SqDist returns the squared Euclidean distance between a and b. Prefer this
// over Dist when only comparing against a squared threshold.
func SqDist(a, b Vec3) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b Vec3) float64 {
	return math.Sqrt(SqDist(a, b))
}

// Finite reports whether every component of v is a finite number (not NaN,
// not +/-Inf). A non-finite atom position is "missing density" per spec.
func (a Vec3) Finite() bool {
	return !math.IsNaN(a.X) && !math.IsInf(a.X, 0) &&
		!math.IsNaN(a.Y) && !math.IsInf(a.Y, 0) &&
		!math.IsNaN(a.Z) && !math.IsInf(a.Z, 0)
}
