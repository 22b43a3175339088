// Package bezier derives cubic control points for path anchors, validates and
// repairs anchor sequences, and evaluates cubic segments.
//
// No function in this package panics or returns an error for bad geometry.
// Problems are repaired locally and reported as warnings, and results carry
// an IsValid flag.
package bezier

import (
	"fmt"
	"math"

	"github.com/closset/vectorcore/internal/geom"
)

// sharpAngle is the angle between incoming and outgoing directions above
// which a "too sharp" warning is emitted.
const sharpAngle = 0.95 * math.Pi

// Constraints bound the handles produced by CalculateControlPoints.
type Constraints struct {
	MaxControlLength float64 `json:"maxControlLength"`
	MinControlLength float64 `json:"minControlLength"`
	Smoothness       float64 `json:"smoothness"`
	Tension          float64 `json:"tension"`
}

// DefaultConstraints returns {100, 5, 0.8, 0.5}.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxControlLength: 100,
		MinControlLength: 5,
		Smoothness:       0.8,
		Tension:          0.5,
	}
}

func (c Constraints) handleLength(distance float64) float64 {
	return geom.Clamp(distance*c.Tension, c.MinControlLength, c.MaxControlLength)
}

// ControlPoints is the result of CalculateControlPoints. ControlIn and
// ControlOut are absolute positions; use InOffset and OutOffset for the
// anchor-relative form stored on document.VectorPoint.
type ControlPoints struct {
	Anchor     geom.Point `json:"anchor"`
	ControlIn  geom.Point `json:"controlIn"`
	ControlOut geom.Point `json:"controlOut"`
	IsValid    bool       `json:"isValid"`
	Warnings   []string   `json:"warnings,omitempty"`
}

// InOffset returns ControlIn relative to the anchor.
func (cp ControlPoints) InOffset() geom.Point {
	return cp.ControlIn.Sub(cp.Anchor)
}

// OutOffset returns ControlOut relative to the anchor.
func (cp ControlPoints) OutOffset() geom.Point {
	return cp.ControlOut.Sub(cp.Anchor)
}

func degenerate(current geom.Point, valid bool, warnings ...string) ControlPoints {
	return ControlPoints{
		Anchor:     current,
		ControlIn:  current,
		ControlOut: current,
		IsValid:    valid,
		Warnings:   warnings,
	}
}

// CalculateControlPoints derives handles for current from its neighbours.
// prev and next may be nil at path ends; a non-finite neighbour is treated
// as absent.
func CalculateControlPoints(prev *geom.Point, current geom.Point, next *geom.Point, c Constraints) (result ControlPoints) {
	defer func() {
		if r := recover(); r != nil {
			result = degenerate(current, false, fmt.Sprintf("control point calculation failed: %v", r))
		}
	}()

	if !current.IsFinite() {
		return degenerate(current, false, "anchor has non-finite coordinates")
	}

	var warnings []string
	if prev != nil && !prev.IsFinite() {
		warnings = append(warnings, "previous point has non-finite coordinates, ignored")
		prev = nil
	}
	if next != nil && !next.IsFinite() {
		warnings = append(warnings, "next point has non-finite coordinates, ignored")
		next = nil
	}

	switch {
	case prev == nil && next == nil:
		result = degenerate(current, true)
	case prev == nil || next == nil:
		result = endpointControls(prev, current, next, c)
	default:
		result = interiorControls(*prev, current, *next, c)
	}

	result.Warnings = append(warnings, result.Warnings...)
	if !result.ControlIn.IsFinite() || !result.ControlOut.IsFinite() {
		return degenerate(current, false, append(result.Warnings, "computed handles are not finite")...)
	}
	return result
}

// endpointControls places symmetric handles along the direction to the only
// neighbour. The outgoing handle always points along the path direction.
func endpointControls(prev *geom.Point, current geom.Point, next *geom.Point, c Constraints) ControlPoints {
	neighbour := prev
	if neighbour == nil {
		neighbour = next
	}

	dir, ok := neighbour.Sub(current).Normalize()
	if !ok {
		return degenerate(current, true, "neighbour coincides with anchor")
	}
	h := dir.Scale(c.handleLength(current.Distance(*neighbour)))

	if next != nil {
		return ControlPoints{
			Anchor:     current,
			ControlIn:  current.Sub(h),
			ControlOut: current.Add(h),
			IsValid:    true,
		}
	}
	return ControlPoints{
		Anchor:     current,
		ControlIn:  current.Add(h),
		ControlOut: current.Sub(h),
		IsValid:    true,
	}
}

func interiorControls(prev, current, next geom.Point, c Constraints) ControlPoints {
	in := current.Sub(prev)
	out := next.Sub(current)
	inLen := in.Magnitude()
	outLen := out.Magnitude()
	if inLen < geom.Epsilon || outLen < geom.Epsilon {
		return degenerate(current, true, "coincident points, handles collapsed")
	}

	inDir, _ := in.Normalize()
	outDir, _ := out.Normalize()

	var warnings []string
	angle := math.Acos(geom.Clamp(inDir.Dot(outDir), -1, 1))
	if angle > sharpAngle {
		warnings = append(warnings, fmt.Sprintf("curve angle too sharp (%.2f rad)", angle))
	}

	return ControlPoints{
		Anchor:     current,
		ControlIn:  current.Sub(inDir.Scale(c.handleLength(inLen))),
		ControlOut: current.Add(outDir.Scale(c.handleLength(outLen))),
		IsValid:    true,
		Warnings:   warnings,
	}
}
