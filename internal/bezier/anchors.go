package bezier

import (
	"fmt"
	"math"

	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
)

// neighbours returns the anchors before and after index i, wrapping on
// closed paths.
func neighbours(p *document.VectorPath, i int) (prev, next *geom.Point) {
	n := len(p.Points)
	pi, ni := i-1, i+1
	if p.Closed && n > 2 {
		pi = (i - 1 + n) % n
		ni = (i + 1) % n
	}
	if pi >= 0 && pi < n {
		a := p.Points[pi].Anchor()
		prev = &a
	}
	if ni >= 0 && ni < n {
		a := p.Points[ni].Anchor()
		next = &a
	}
	return prev, next
}

// RecomputeAnchors derives handles for the anchors at the given indices from
// their neighbours. Corner and locked anchors are left alone. Out-of-range
// indices are ignored. It returns the warnings raised along the way.
func RecomputeAnchors(p *document.VectorPath, indices []int, c Constraints) (warnings []string) {
	defer func() {
		if r := recover(); r != nil {
			warnings = append(warnings, fmt.Sprintf("recompute anchors failed: %v", r))
		}
	}()

	done := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(p.Points) || done[i] {
			continue
		}
		done[i] = true

		pt := p.Points[i]
		if pt.Type == document.PointCorner || pt.Locked {
			continue
		}

		prev, next := neighbours(p, i)
		cp := CalculateControlPoints(prev, pt.Anchor(), next, c)
		for _, w := range cp.Warnings {
			warnings = append(warnings, fmt.Sprintf("point %d: %s", i, w))
		}
		if !cp.IsValid {
			continue
		}

		in, out := shapeHandles(pt.Type, cp.InOffset(), cp.OutOffset(), c)
		pt.ControlIn = handleOrNil(in)
		pt.ControlOut = handleOrNil(out)
		p.Points[i] = pt
	}
	p.RecomputeBounds()
	return warnings
}

// shapeHandles applies the anchor type to raw offsets: smooth anchors get
// collinear handles of independent length, symmetric anchors collinear
// handles of equal length, and auto anchors the raw offsets scaled by
// Smoothness.
func shapeHandles(t document.PointType, in, out geom.Point, c Constraints) (geom.Point, geom.Point) {
	switch t {
	case document.PointAuto:
		return in.Scale(c.Smoothness), out.Scale(c.Smoothness)
	case document.PointSmooth, document.PointSymmetric:
		dir, ok := out.Sub(in).Normalize()
		if !ok {
			return in, out
		}
		inLen, outLen := in.Magnitude(), out.Magnitude()
		if t == document.PointSymmetric {
			inLen = (inLen + outLen) / 2
			outLen = inLen
		}
		return dir.Scale(-inLen), dir.Scale(outLen)
	}
	return in, out
}

func handleOrNil(v geom.Point) *geom.Point {
	if v.Magnitude() < MinHandleLength {
		return nil
	}
	return &v
}

// ConvertAnchor changes the type of anchor i. Converting to corner drops the
// handles; any other type recomputes them.
func ConvertAnchor(p *document.VectorPath, i int, t document.PointType, c Constraints) ([]string, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown anchor type %q", t)
	}
	if i < 0 || i >= len(p.Points) {
		return nil, fmt.Errorf("point %d out of range for %d points", i, len(p.Points))
	}

	pt := p.Points[i]
	pt.Type = t
	if t == document.PointCorner {
		pt.ControlIn, pt.ControlOut = nil, nil
		p.SetPoint(i, pt)
		return nil, nil
	}
	p.Points[i] = pt
	return RecomputeAnchors(p, []int{i}, c), nil
}

// DragHandle sets the named handle of pt to offset and updates the opposite
// handle according to the anchor type. Auto anchors become smooth once a
// handle is dragged by hand.
func DragHandle(pt document.VectorPoint, h document.Handle, offset geom.Point) document.VectorPoint {
	pt = pt.Clone()
	offset = LimitHandle(offset)
	if pt.Type == document.PointAuto {
		pt.Type = document.PointSmooth
	}

	opposite := pt.ControlOut
	if h == document.HandleOut {
		opposite = pt.ControlIn
	}

	var mirrored *geom.Point
	switch pt.Type {
	case document.PointSymmetric:
		m := offset.Neg()
		mirrored = &m
	case document.PointSmooth:
		if opposite != nil {
			if dir, ok := offset.Neg().Normalize(); ok {
				m := dir.Scale(opposite.Magnitude())
				mirrored = &m
			} else {
				mirrored = opposite
			}
		}
	default:
		mirrored = opposite
	}

	if h == document.HandleIn {
		pt.ControlIn = &offset
		pt.ControlOut = mirrored
	} else {
		pt.ControlOut = &offset
		pt.ControlIn = mirrored
	}
	return pt
}

// LimitHandle shortens v to MaxHandleLength, keeping its direction.
func LimitHandle(v geom.Point) geom.Point {
	m := v.Magnitude()
	if !(m > MaxHandleLength) || math.IsInf(m, 0) {
		return v
	}
	f := MaxHandleLength / m
	w := v.Scale(f)
	// rounding can leave the result a hair over the limit
	for w.Magnitude() > MaxHandleLength {
		f = math.Nextafter(f, 0)
		w = v.Scale(f)
	}
	return w
}

// LimitHandles shortens every handle of p that is longer than
// MaxHandleLength and reports how many were changed.
func LimitHandles(p *document.VectorPath) int {
	n := 0
	limit := func(h *geom.Point) *geom.Point {
		if h == nil {
			return nil
		}
		v := LimitHandle(*h)
		if v == *h {
			return h
		}
		n++
		return &v
	}
	for i := range p.Points {
		p.Points[i].ControlIn = limit(p.Points[i].ControlIn)
		p.Points[i].ControlOut = limit(p.Points[i].ControlOut)
	}
	if n > 0 {
		p.RecomputeBounds()
	}
	return n
}
