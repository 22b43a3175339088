package bezier

import (
	"fmt"

	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
)

const (
	// MaxHandleLength is the longest handle offset accepted by ValidateAndRepair.
	MaxHandleLength = 1000
	// MinHandleLength is the length below which a handle is reported as nearly zero.
	MinHandleLength = 0.1
)

// Validation is the outcome of ValidateAndRepair. Repaired is set whenever
// the input was non-empty, even if errors remain.
type Validation struct {
	IsValid  bool                   `json:"isValid"`
	Errors   []string               `json:"errors,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
	Repaired []document.VectorPoint `json:"repairedPoints,omitempty"`
}

// ValidateAndRepair checks an anchor sequence and returns a repaired copy.
// Non-finite anchors become (0, 0), non-finite handles are dropped, absolute
// handles are rewritten as offsets and unknown anchor types become corners.
// Handles longer than MaxHandleLength are errors. The input is not modified,
// and repairing a repaired sequence changes nothing.
func ValidateAndRepair(points []document.VectorPoint) (v Validation) {
	defer func() {
		if r := recover(); r != nil {
			v = Validation{
				IsValid: false,
				Errors:  []string{fmt.Sprintf("validation failed: %v", r)},
			}
		}
	}()

	if len(points) == 0 {
		return Validation{IsValid: false, Errors: []string{"path is empty"}}
	}

	v.Repaired = make([]document.VectorPoint, len(points))
	for i, in := range points {
		pt := in.Clone()

		if !pt.Anchor().IsFinite() {
			v.Warnings = append(v.Warnings, fmt.Sprintf("point %d: non-finite coordinates replaced with (0, 0)", i))
			pt.X, pt.Y = 0, 0
		}
		if pt.ControlIn != nil && !pt.ControlIn.IsFinite() {
			v.Warnings = append(v.Warnings, fmt.Sprintf("point %d: invalid controlIn dropped", i))
			pt.ControlIn = nil
		}
		if pt.ControlOut != nil && !pt.ControlOut.IsFinite() {
			v.Warnings = append(v.Warnings, fmt.Sprintf("point %d: invalid controlOut dropped", i))
			pt.ControlOut = nil
		}
		if pt.Absolute {
			v.Warnings = append(v.Warnings, fmt.Sprintf("point %d: absolute controls converted to offsets", i))
			toRelative(&pt)
		}
		if !pt.Type.Valid() {
			v.Warnings = append(v.Warnings, fmt.Sprintf("point %d: unknown type %q treated as corner", i, pt.Type))
			pt.Type = document.PointCorner
		}

		checkHandle(&v, i, "controlIn", pt.ControlIn)
		checkHandle(&v, i, "controlOut", pt.ControlOut)

		v.Repaired[i] = pt
	}

	v.IsValid = len(v.Errors) == 0
	return v
}

func toRelative(pt *document.VectorPoint) {
	anchor := pt.Anchor()
	if pt.ControlIn != nil {
		rel := pt.ControlIn.Sub(anchor)
		pt.ControlIn = &rel
	}
	if pt.ControlOut != nil {
		rel := pt.ControlOut.Sub(anchor)
		pt.ControlOut = &rel
	}
	pt.Absolute = false
}

func checkHandle(v *Validation, i int, name string, h *geom.Point) {
	if h == nil {
		return
	}
	m := h.Magnitude()
	switch {
	case m > MaxHandleLength:
		v.Errors = append(v.Errors, fmt.Sprintf("point %d: %s too far from anchor (%.1f)", i, name, m))
	case m < MinHandleLength:
		v.Warnings = append(v.Warnings, fmt.Sprintf("point %d: %s is nearly zero-length", i, name))
	}
}
