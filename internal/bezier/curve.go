package bezier

import (
	"fmt"

	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
)

// Curve is a cubic bezier segment in absolute coordinates.
type Curve struct {
	Start    geom.Point `json:"start"`
	Control1 geom.Point `json:"control1"`
	Control2 geom.Point `json:"control2"`
	End      geom.Point `json:"end"`
	IsValid  bool       `json:"isValid"`
}

// Line returns a straight segment expressed as a cubic.
func Line(a, b geom.Point) Curve {
	return Curve{Start: a, Control1: a, Control2: b, End: b, IsValid: a.IsFinite() && b.IsFinite()}
}

// IsStraight reports whether both controls sit on their endpoints.
func (c Curve) IsStraight() bool {
	return c.Control1 == c.Start && c.Control2 == c.End
}

// GenerateSmoothCurve fits one cubic per consecutive pair of points. Each
// segment derives its controls from its local neighbourhood only.
func GenerateSmoothCurve(points []geom.Point) (curves []Curve) {
	defer func() {
		if r := recover(); r != nil {
			curves = nil
		}
	}()

	if len(points) < 2 {
		return nil
	}

	c := DefaultConstraints()
	at := func(i int) *geom.Point {
		if i < 0 || i >= len(points) {
			return nil
		}
		return &points[i]
	}

	curves = make([]Curve, 0, len(points)-1)
	for i := 0; i < len(points)-1; i++ {
		from := CalculateControlPoints(at(i-1), points[i], at(i+1), c)
		to := CalculateControlPoints(at(i), points[i+1], at(i+2), c)
		curves = append(curves, Curve{
			Start:    points[i],
			Control1: from.ControlOut,
			Control2: to.ControlIn,
			End:      points[i+1],
			IsValid:  from.IsValid && to.IsValid,
		})
	}
	return curves
}

// EvaluateCurve returns the point at t, clamped to [0, 1], using the cubic
// Bernstein basis. t = 0 and t = 1 return Start and End exactly.
func EvaluateCurve(c Curve, t float64) geom.Point {
	t = geom.Clamp(t, 0, 1)
	mt := 1 - t
	b0 := mt * mt * mt
	b1 := 3 * mt * mt * t
	b2 := 3 * mt * t * t
	b3 := t * t * t
	return geom.Point{
		X: b0*c.Start.X + b1*c.Control1.X + b2*c.Control2.X + b3*c.End.X,
		Y: b0*c.Start.Y + b1*c.Control1.Y + b2*c.Control2.Y + b3*c.End.Y,
	}
}

// CalculateCurveBounds returns the bounding box of the control polygon. It
// always contains the curve but is not tight.
func CalculateCurveBounds(c Curve) geom.Rect {
	return geom.BoundsOf(c.Start, c.Control1, c.Control2, c.End)
}

// Split divides c at t with de Casteljau's construction. The two halves
// trace exactly the same shape as c.
func Split(c Curve, t float64) (Curve, Curve) {
	t = geom.Clamp(t, 0, 1)
	lerp := func(a, b geom.Point) geom.Point { return a.Add(b.Sub(a).Scale(t)) }

	p01 := lerp(c.Start, c.Control1)
	p12 := lerp(c.Control1, c.Control2)
	p23 := lerp(c.Control2, c.End)
	p012 := lerp(p01, p12)
	p123 := lerp(p12, p23)
	mid := lerp(p012, p123)

	return Curve{Start: c.Start, Control1: p01, Control2: p012, End: mid, IsValid: c.IsValid},
		Curve{Start: mid, Control1: p123, Control2: p23, End: c.End, IsValid: c.IsValid}
}

// Flatten approximates the curve with n line segments and returns n+1 points.
// Straight curves always flatten to their two endpoints.
func Flatten(c Curve, n int) []geom.Point {
	if c.IsStraight() || n < 1 {
		return []geom.Point{c.Start, c.End}
	}
	pts := make([]geom.Point, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = EvaluateCurve(c, float64(i)/float64(n))
	}
	return pts
}

// Segment returns the cubic between point i and the following point of the
// path, wrapping to the first point on closed paths.
func Segment(p *document.VectorPath, i int) (Curve, error) {
	n := len(p.Points)
	j := i + 1
	if p.Closed && j == n {
		j = 0
	}
	if i < 0 || i >= n || j >= n || (j == 0 && n < 2) {
		return Curve{}, fmt.Errorf("segment %d out of range for %d points", i, n)
	}

	a, b := p.Points[i], p.Points[j]
	c := Curve{Start: a.Anchor(), Control1: a.Anchor(), Control2: b.Anchor(), End: b.Anchor()}
	if h, ok := a.HandleOut(); ok {
		c.Control1 = h
	}
	if h, ok := b.HandleIn(); ok {
		c.Control2 = h
	}
	c.IsValid = c.Start.IsFinite() && c.Control1.IsFinite() && c.Control2.IsFinite() && c.End.IsFinite()
	return c, nil
}

// SegmentCount returns the number of segments of the path.
func SegmentCount(p *document.VectorPath) int {
	n := len(p.Points)
	if n < 2 {
		return 0
	}
	if p.Closed {
		return n
	}
	return n - 1
}

// PathCurves returns every segment of the path in order.
func PathCurves(p *document.VectorPath) []Curve {
	n := SegmentCount(p)
	curves := make([]Curve, 0, n)
	for i := 0; i < n; i++ {
		c, err := Segment(p, i)
		if err != nil {
			break
		}
		curves = append(curves, c)
	}
	return curves
}
