package bezier

import (
	"testing"

	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
)

func TestGenerateSmoothCurve(t *testing.T) {
	pts := []geom.Point{geom.Pt(0, 0), geom.Pt(50, 0), geom.Pt(100, 50), geom.Pt(150, 0)}
	curves := GenerateSmoothCurve(pts)
	if len(curves) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(curves))
	}
	for i, c := range curves {
		if !c.IsValid {
			t.Errorf("segment %d invalid", i)
		}
		diff(t, pts[i], c.Start)
		diff(t, pts[i+1], c.End)
	}

	// the first segment leaves the start point toward the second point
	diff(t, geom.Pt(25, 0), curves[0].Control1, approx)

	if got := GenerateSmoothCurve(pts[:1]); got != nil {
		t.Errorf("single point should produce no curves, got %v", got)
	}
}

func TestEvaluateCurveEndpoints(t *testing.T) {
	curves := []Curve{
		{Start: geom.Pt(0.1, 0.2), Control1: geom.Pt(33.3, -7), Control2: geom.Pt(1e6, 3), End: geom.Pt(-0.3, 1e-7), IsValid: true},
		Line(geom.Pt(1, 1), geom.Pt(2, 2)),
	}
	curves = append(curves, GenerateSmoothCurve([]geom.Point{geom.Pt(3, 7), geom.Pt(19, -4), geom.Pt(0.5, 0.25)})...)

	for i, c := range curves {
		if got := EvaluateCurve(c, 0); got != c.Start {
			t.Errorf("curve %d: B(0) = %v, want %v", i, got, c.Start)
		}
		if got := EvaluateCurve(c, 1); got != c.End {
			t.Errorf("curve %d: B(1) = %v, want %v", i, got, c.End)
		}
	}
}

func TestEvaluateCurveMidpoint(t *testing.T) {
	c := Curve{Start: geom.Pt(0, 0), Control1: geom.Pt(0, 100), Control2: geom.Pt(100, 100), End: geom.Pt(100, 0)}
	diff(t, geom.Pt(50, 75), EvaluateCurve(c, 0.5), approx)

	// t is clamped
	diff(t, c.Start, EvaluateCurve(c, -3))
	diff(t, c.End, EvaluateCurve(c, 7))
}

func TestCalculateCurveBounds(t *testing.T) {
	c := Curve{Start: geom.Pt(0, 0), Control1: geom.Pt(-10, 100), Control2: geom.Pt(100, 120), End: geom.Pt(80, 0)}
	diff(t, geom.Rect{X: -10, Y: 0, Width: 110, Height: 120}, CalculateCurveBounds(c))

	// the loose bound always contains sampled curve points
	b := CalculateCurveBounds(c)
	for _, p := range Flatten(c, 32) {
		if !b.Contains(p) {
			t.Errorf("%v outside control polygon bounds %+v", p, b)
		}
	}
}

func TestSplit(t *testing.T) {
	c := Curve{Start: geom.Pt(0, 0), Control1: geom.Pt(0, 100), Control2: geom.Pt(100, 100), End: geom.Pt(100, 0), IsValid: true}
	left, right := Split(c, 0.5)

	diff(t, geom.Pt(50, 75), left.End, approx)
	diff(t, left.End, right.Start)
	diff(t, c.Start, left.Start)
	diff(t, c.End, right.End)

	// both halves follow the original curve
	for _, u := range []float64{0.1, 0.3, 0.7, 1} {
		diff(t, EvaluateCurve(c, u/2), EvaluateCurve(left, u), approx)
		diff(t, EvaluateCurve(c, 0.5+u/2), EvaluateCurve(right, u), approx)
	}
}

func TestFlatten(t *testing.T) {
	if got := Flatten(Line(geom.Pt(0, 0), geom.Pt(5, 5)), 16); len(got) != 2 {
		t.Errorf("straight segment flattened to %d points, want 2", len(got))
	}
	c := Curve{Start: geom.Pt(0, 0), Control1: geom.Pt(0, 10), Control2: geom.Pt(10, 10), End: geom.Pt(10, 0)}
	got := Flatten(c, 8)
	if len(got) != 9 {
		t.Fatalf("expected 9 points, got %d", len(got))
	}
	diff(t, c.Start, got[0])
	diff(t, c.End, got[8])
}

func TestPathCurves(t *testing.T) {
	p := document.NewVectorPath([]document.VectorPoint{
		{X: 0, Y: 0, Type: document.PointSmooth, ControlOut: ptr(10, 0)},
		{X: 50, Y: 0, Type: document.PointSmooth, ControlIn: ptr(-10, 5)},
		{X: 50, Y: 50, Type: document.PointCorner},
	}, false)

	open := PathCurves(p)
	if len(open) != 2 {
		t.Fatalf("open path: expected 2 segments, got %d", len(open))
	}
	diff(t, Curve{
		Start: geom.Pt(0, 0), Control1: geom.Pt(10, 0), Control2: geom.Pt(40, 5), End: geom.Pt(50, 0), IsValid: true,
	}, open[0])
	if !open[1].IsStraight() {
		t.Error("segment without handles should be straight")
	}

	p.Closed = true
	closed := PathCurves(p)
	if len(closed) != 3 {
		t.Fatalf("closed path: expected 3 segments, got %d", len(closed))
	}
	diff(t, geom.Pt(0, 0), closed[2].End)

	if _, err := Segment(p, 3); err == nil {
		t.Error("expected out of range error")
	}
}
