package bezier

import (
	"math"
	"testing"

	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
)

func threePointPath(typ document.PointType) *document.VectorPath {
	return document.NewVectorPath([]document.VectorPoint{
		document.NewPoint(geom.Pt(0, 0), document.PointCorner),
		document.NewPoint(geom.Pt(40, 0), typ),
		document.NewPoint(geom.Pt(40, 100), document.PointCorner),
	}, false)
}

func TestRecomputeAnchorsByType(t *testing.T) {
	c := DefaultConstraints()

	t.Run("corner untouched", func(t *testing.T) {
		p := threePointPath(document.PointCorner)
		RecomputeAnchors(p, []int{0, 1, 2}, c)
		for i, pt := range p.Points {
			if pt.ControlIn != nil || pt.ControlOut != nil {
				t.Errorf("corner point %d got handles", i)
			}
		}
	})

	t.Run("auto scales by smoothness", func(t *testing.T) {
		p := threePointPath(document.PointAuto)
		RecomputeAnchors(p, []int{1}, c)
		diff(t, geom.Pt(-20*c.Smoothness, 0), *p.Points[1].ControlIn, approx)
		diff(t, geom.Pt(0, 50*c.Smoothness), *p.Points[1].ControlOut, approx)
	})

	t.Run("smooth is collinear", func(t *testing.T) {
		p := threePointPath(document.PointSmooth)
		RecomputeAnchors(p, []int{1}, c)
		in, out := *p.Points[1].ControlIn, *p.Points[1].ControlOut
		if cross := in.X*out.Y - in.Y*out.X; math.Abs(cross) > 1e-9 {
			t.Errorf("handles not collinear: %v %v", in, out)
		}
		if in.Dot(out) >= 0 {
			t.Errorf("handles should point in opposite directions: %v %v", in, out)
		}
		if math.Abs(in.Magnitude()-20) > 1e-9 || math.Abs(out.Magnitude()-50) > 1e-9 {
			t.Errorf("smooth handles should keep independent lengths, got %g and %g", in.Magnitude(), out.Magnitude())
		}
	})

	t.Run("symmetric mirrors", func(t *testing.T) {
		p := threePointPath(document.PointSymmetric)
		RecomputeAnchors(p, []int{1}, c)
		diff(t, p.Points[1].ControlOut.Neg(), *p.Points[1].ControlIn, approx)
		if got := p.Points[1].ControlOut.Magnitude(); math.Abs(got-35) > 1e-9 {
			t.Errorf("symmetric length = %g, want 35", got)
		}
	})

	t.Run("locked untouched", func(t *testing.T) {
		p := threePointPath(document.PointAuto)
		p.Points[1].Locked = true
		RecomputeAnchors(p, []int{1}, c)
		if p.Points[1].ControlIn != nil {
			t.Error("locked point got handles")
		}
	})
}

func TestRecomputeAnchorsUpdatesBounds(t *testing.T) {
	p := threePointPath(document.PointSmooth)
	before := p.Bounds
	RecomputeAnchors(p, []int{1, 7, -1}, DefaultConstraints())
	if p.Bounds == before {
		t.Error("bounds should include the new handles")
	}
}

func TestConvertAnchor(t *testing.T) {
	c := DefaultConstraints()
	p := threePointPath(document.PointCorner)

	if _, err := ConvertAnchor(p, 1, document.PointSmooth, c); err != nil {
		t.Fatalf("ConvertAnchor: %v", err)
	}
	if p.Points[1].Type != document.PointSmooth || p.Points[1].ControlOut == nil {
		t.Errorf("expected smooth point with handles, got %+v", p.Points[1])
	}

	if _, err := ConvertAnchor(p, 1, document.PointCorner, c); err != nil {
		t.Fatalf("ConvertAnchor: %v", err)
	}
	if p.Points[1].ControlIn != nil || p.Points[1].ControlOut != nil {
		t.Error("corner conversion should drop handles")
	}

	if _, err := ConvertAnchor(p, 5, document.PointSmooth, c); err == nil {
		t.Error("expected range error")
	}
	if _, err := ConvertAnchor(p, 1, "bogus", c); err == nil {
		t.Error("expected type error")
	}
}

func TestDragHandle(t *testing.T) {
	base := document.VectorPoint{X: 0, Y: 0, ControlIn: ptr(-10, 0), ControlOut: ptr(30, 0)}

	tests := []struct {
		typ     document.PointType
		wantTyp document.PointType
		wantIn  geom.Point
	}{
		{document.PointSymmetric, document.PointSymmetric, geom.Pt(0, -20)},
		{document.PointSmooth, document.PointSmooth, geom.Pt(0, -10)},
		{document.PointAuto, document.PointSmooth, geom.Pt(0, -10)},
		{document.PointCorner, document.PointCorner, geom.Pt(-10, 0)},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			pt := base.Clone()
			pt.Type = tt.typ
			got := DragHandle(pt, document.HandleOut, geom.Pt(0, 20))
			if got.Type != tt.wantTyp {
				t.Errorf("type = %s, want %s", got.Type, tt.wantTyp)
			}
			diff(t, geom.Pt(0, 20), *got.ControlOut)
			diff(t, tt.wantIn, *got.ControlIn, approx)
			if pt.ControlOut.X != 30 {
				t.Error("input point was modified")
			}
		})
	}
}

func TestLimitHandle(t *testing.T) {
	tests := []struct {
		in   geom.Point
		want geom.Point
	}{
		{geom.Pt(30, 40), geom.Pt(30, 40)},
		{geom.Pt(3000, 4000), geom.Pt(600, 800)},
		{geom.Pt(0, -2950), geom.Pt(0, -1000)},
	}
	for _, tt := range tests {
		got := LimitHandle(tt.in)
		diff(t, tt.want, got, approx)
		if got.Magnitude() > MaxHandleLength {
			t.Errorf("LimitHandle(%v) = %v, longer than %v", tt.in, got, MaxHandleLength)
		}
	}
}

func TestDragHandleLimitsLength(t *testing.T) {
	pt := document.VectorPoint{Type: document.PointSymmetric, ControlIn: ptr(-10, 0), ControlOut: ptr(10, 0)}
	got := DragHandle(pt, document.HandleOut, geom.Pt(2950, 0))
	diff(t, geom.Pt(1000, 0), *got.ControlOut, approx)
	diff(t, geom.Pt(-1000, 0), *got.ControlIn, approx)

	p := document.NewVectorPath([]document.VectorPoint{
		{X: 0, Y: 0, Type: document.PointCorner, ControlOut: ptr(0, 5000)},
		{X: 10, Y: 0, Type: document.PointCorner, ControlIn: ptr(-5, 0)},
	}, false)
	if n := LimitHandles(p); n != 1 {
		t.Errorf("LimitHandles changed %d handles, want 1", n)
	}
	if v := ValidateAndRepair(p.Points); !v.IsValid {
		t.Errorf("limited path invalid: %v", v.Errors)
	}
	diff(t, 1000.0, p.Bounds.Height, approx)
}
