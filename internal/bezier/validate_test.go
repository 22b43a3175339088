package bezier

import (
	"math"
	"testing"

	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
)

func TestValidateEmptyPath(t *testing.T) {
	v := ValidateAndRepair(nil)
	if v.IsValid {
		t.Error("empty path must be invalid")
	}
	if len(v.Errors) != 1 || len(v.Warnings) != 0 {
		t.Errorf("expected one error and no warnings, got %+v", v)
	}
}

func TestValidateRepairs(t *testing.T) {
	input := []document.VectorPoint{
		{X: math.NaN(), Y: 4, Type: document.PointCorner},
		{X: 10, Y: 10, Type: document.PointSmooth, ControlIn: ptr(math.Inf(1), 0), ControlOut: ptr(5, 0)},
		{X: 20, Y: 20, Type: "weird"},
		{X: 30, Y: 30, Type: document.PointSmooth, ControlIn: ptr(20, 30), ControlOut: ptr(40, 30), Absolute: true},
	}

	v := ValidateAndRepair(input)
	if !v.IsValid {
		t.Fatalf("repairs are not errors: %v", v.Errors)
	}
	if len(v.Warnings) != 4 {
		t.Errorf("expected 4 warnings, got %d: %v", len(v.Warnings), v.Warnings)
	}

	want := []document.VectorPoint{
		{X: 0, Y: 0, Type: document.PointCorner},
		{X: 10, Y: 10, Type: document.PointSmooth, ControlOut: ptr(5, 0)},
		{X: 20, Y: 20, Type: document.PointCorner},
		{X: 30, Y: 30, Type: document.PointSmooth, ControlIn: ptr(-10, 0), ControlOut: ptr(10, 0)},
	}
	diff(t, want, v.Repaired)

	if !math.IsNaN(input[0].X) || input[1].ControlIn == nil || !input[3].Absolute {
		t.Error("input was modified")
	}
}

func TestValidateHandleRange(t *testing.T) {
	v := ValidateAndRepair([]document.VectorPoint{
		{X: 0, Y: 0, Type: document.PointSmooth, ControlOut: ptr(1200, 0)},
		{X: 10, Y: 0, Type: document.PointSmooth, ControlIn: ptr(0.05, 0)},
	})
	if v.IsValid {
		t.Error("a handle longer than 1000 must be an error")
	}
	if len(v.Errors) != 1 {
		t.Errorf("expected one error, got %v", v.Errors)
	}
	if !hasWarning(v.Warnings, "nearly zero-length") {
		t.Errorf("expected near-zero warning, got %v", v.Warnings)
	}
	if len(v.Repaired) != 2 {
		t.Errorf("repaired points should still be returned, got %d", len(v.Repaired))
	}
}

func TestValidateIdempotent(t *testing.T) {
	input := []document.VectorPoint{
		{X: math.Inf(-1), Y: 1, Type: document.PointAuto, ControlOut: ptr(math.NaN(), 1)},
		{X: 3, Y: 4, Type: "", ControlIn: ptr(1, 1), ControlOut: ptr(7, 8), Absolute: true},
		{X: 9, Y: 9, Type: document.PointSymmetric, ControlIn: ptr(-3, 0), ControlOut: ptr(3, 0)},
	}

	once := ValidateAndRepair(input)
	twice := ValidateAndRepair(once.Repaired)
	diff(t, once.Repaired, twice.Repaired)
	if len(twice.Warnings) != 0 {
		t.Errorf("second pass should find nothing to repair, got %v", twice.Warnings)
	}
}

func TestRecomputedHandlesWithinRange(t *testing.T) {
	pts := []geom.Point{
		geom.Pt(0, 0), geom.Pt(0.001, 0), geom.Pt(400, 3), geom.Pt(2000, -900),
		geom.Pt(2000, -900), geom.Pt(10, 10), geom.Pt(11, 10.5),
	}
	for _, typ := range []document.PointType{document.PointAuto, document.PointSmooth, document.PointSymmetric} {
		var vps []document.VectorPoint
		for _, p := range pts {
			vps = append(vps, document.NewPoint(p, typ))
		}
		path := document.NewVectorPath(vps, true)
		all := make([]int, len(vps))
		for i := range all {
			all[i] = i
		}
		RecomputeAnchors(path, all, DefaultConstraints())

		for i, p := range path.Points {
			for _, h := range []*geom.Point{p.ControlIn, p.ControlOut} {
				if h == nil {
					continue
				}
				m := h.Magnitude()
				if !h.IsFinite() || m > MaxHandleLength || m < MinHandleLength {
					t.Errorf("%s point %d: handle %v out of range", typ, i, *h)
				}
			}
		}
		if v := ValidateAndRepair(path.Points); !v.IsValid {
			t.Errorf("%s: recomputed path fails validation: %v", typ, v.Errors)
		}
	}
}
