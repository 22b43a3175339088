package geom

import (
	"fmt"
	"math"
)

// Epsilon is the length below which two points are treated as coincident.
const Epsilon = 1e-10

// Point is a 2D coordinate in canvas space. It doubles as a vector for offsets.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt returns the point (x, y).
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Add returns p+o.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns p-o.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Scale multiplies both coordinates by f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Neg returns -p.
func (p Point) Neg() Point {
	return Point{X: -p.X, Y: -p.Y}
}

// Dot returns the dot product of p and o.
func (p Point) Dot(o Point) float64 {
	return p.X*o.X + p.Y*o.Y
}

// Magnitude returns the length of p treated as a vector.
func (p Point) Magnitude() float64 {
	return math.Hypot(p.X, p.Y)
}

// Distance returns the euclidean distance between two points.
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// DistanceSquared returns the squared euclidean distance between two points.
func (p Point) DistanceSquared(o Point) float64 {
	x := p.X - o.X
	y := p.Y - o.Y
	return x*x + y*y
}

// Normalize returns the unit vector in the direction of p. The second result
// is false when p is shorter than Epsilon, in which case the zero vector is returned.
func (p Point) Normalize() (Point, bool) {
	m := p.Magnitude()
	if m < Epsilon || math.IsNaN(m) || math.IsInf(m, 0) {
		return Point{}, false
	}
	return Point{X: p.X / m, Y: p.Y / m}, true
}

// IsFinite reports whether neither coordinate is NaN or infinite.
func (p Point) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// Round returns the point with both coordinates rounded to the nearest integer.
func (p Point) Round() Point {
	return Point{X: math.Round(p.X), Y: math.Round(p.Y)}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SegmentProjection returns the point on segment ab closest to p and its
// parameter t in [0, 1]. A degenerate segment projects onto a with t = 0.
func SegmentProjection(p, a, b Point) (Point, float64) {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq < Epsilon*Epsilon {
		return a, 0
	}
	t := Clamp(p.Sub(a).Dot(ab)/lenSq, 0, 1)
	return a.Add(ab.Scale(t)), t
}
