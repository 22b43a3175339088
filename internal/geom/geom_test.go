package geom

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestNormalize(t *testing.T) {
	v, ok := Pt(3, 4).Normalize()
	if !ok {
		t.Fatal("expected (3, 4) to normalize")
	}
	diff(t, Pt(0.6, 0.8), v, approx)

	if _, ok := Pt(1e-12, 0).Normalize(); ok {
		t.Error("expected sub-epsilon vector to be rejected")
	}
	if _, ok := Pt(math.NaN(), 0).Normalize(); ok {
		t.Error("expected NaN vector to be rejected")
	}
}

func TestIsFinite(t *testing.T) {
	tests := []struct {
		p    Point
		want bool
	}{
		{Pt(1, 2), true},
		{Pt(math.NaN(), 0), false},
		{Pt(0, math.Inf(1)), false},
		{Pt(math.Inf(-1), math.Inf(-1)), false},
	}
	for _, tt := range tests {
		if got := tt.p.IsFinite(); got != tt.want {
			t.Errorf("%v.IsFinite() = %t, want %t", tt.p, got, tt.want)
		}
	}
}

func TestSegmentProjection(t *testing.T) {
	tests := []struct {
		name    string
		p, a, b Point
		want    Point
		wantT   float64
	}{
		{"interior", Pt(5, 3), Pt(0, 0), Pt(10, 0), Pt(5, 0), 0.5},
		{"before start", Pt(-4, 2), Pt(0, 0), Pt(10, 0), Pt(0, 0), 0},
		{"after end", Pt(14, -1), Pt(0, 0), Pt(10, 0), Pt(10, 0), 1},
		{"degenerate", Pt(3, 3), Pt(1, 1), Pt(1, 1), Pt(1, 1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotT := SegmentProjection(tt.p, tt.a, tt.b)
			diff(t, tt.want, got, approx)
			if math.Abs(gotT-tt.wantT) > 1e-12 {
				t.Errorf("got t=%g, want %g", gotT, tt.wantT)
			}
		})
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	tests := []struct {
		b    Rect
		want bool
	}{
		{Rect{X: 5, Y: 5, Width: 10, Height: 10}, true},
		{Rect{X: 10, Y: 0, Width: 5, Height: 5}, true}, // touching edge
		{Rect{X: 11, Y: 0, Width: 5, Height: 5}, false},
		{Rect{X: 0, Y: -6, Width: 5, Height: 5}, false},
	}
	for _, tt := range tests {
		if got := a.Intersects(tt.b); got != tt.want {
			t.Errorf("Intersects(%+v) = %t, want %t", tt.b, got, tt.want)
		}
	}
}

func TestUnionKeepsDegenerateExtent(t *testing.T) {
	line := Rect{X: 0, Y: 5, Width: 20, Height: 0}
	box := Rect{X: 30, Y: 0, Width: 10, Height: 10}
	diff(t, Rect{X: 0, Y: 0, Width: 40, Height: 10}, line.Union(box))
}

func TestUnionAll(t *testing.T) {
	got, ok := UnionAll([]Rect{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 20, Y: 20, Width: 10, Height: 10},
	})
	if !ok {
		t.Fatal("expected union")
	}
	diff(t, Rect{X: 0, Y: 0, Width: 30, Height: 30}, got)

	if _, ok := UnionAll(nil); ok {
		t.Error("expected no union of nothing")
	}
}

func TestMatrixAbout(t *testing.T) {
	m := About(Pt(10, 10), Rotate(math.Pi/2))
	diff(t, Pt(10, 10), m.TransformPoint(Pt(10, 10)), approx)
	diff(t, Pt(10, 20), m.TransformPoint(Pt(20, 10)), approx)
	// vectors ignore translation
	diff(t, Pt(0, 5), m.TransformVector(Pt(5, 0)), approx)
}

func TestMatrixDeterminant(t *testing.T) {
	diff(t, 8.0, Scale(2, 4).Multiply(Rotate(0.3)).Determinant(), approx)
	diff(t, 0.0, Scale(0, 1).Determinant())
}

func TestTransformRect(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 20}
	got := Rotate(math.Pi / 2).TransformRect(r)
	diff(t, Rect{X: -20, Y: 0, Width: 20, Height: 10}, got, approx)
}
