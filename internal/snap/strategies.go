package snap

import (
	"errors"
	"math"
	"sort"

	"github.com/closset/vectorcore/internal/geom"
)

// ErrUnsupported is returned by strategies that are reserved for constrained
// drags but not implemented yet: angle and distance snapping.
var ErrUnsupported = errors.New("snap strategy not supported")

type Type string

const (
	TypeNone     Type = ""
	TypeGrid     Type = "grid"
	TypeGuide    Type = "guide"
	TypeObject   Type = "object"
	TypeAngle    Type = "angle"
	TypeDistance Type = "distance"
)

type candidate struct {
	point    geom.Point
	distance float64
	typ      Type
}

// better reports whether c beats the current best. Ties keep the earlier
// candidate; a candidate without a finite distance never wins.
func (c candidate) better(best *candidate) bool {
	if math.IsNaN(c.distance) || math.IsInf(c.distance, 0) {
		return false
	}
	return best == nil || c.distance < best.distance
}

func snapToGrid(p geom.Point, s Settings) *candidate {
	step := s.gridStep()
	if !(step > 0) || math.IsInf(step, 0) {
		return nil
	}
	q := geom.Point{
		X: math.Round(p.X/step) * step,
		Y: math.Round(p.Y/step) * step,
	}
	return &candidate{point: q, distance: p.Distance(q), typ: TypeGrid}
}

// nearestSorted returns the value in sorted vs closest to v.
func nearestSorted(vs []float64, v float64) (float64, bool) {
	if len(vs) == 0 {
		return 0, false
	}
	i := sort.SearchFloat64s(vs, v)
	switch {
	case i == 0:
		return vs[0], true
	case i == len(vs):
		return vs[len(vs)-1], true
	case v-vs[i-1] <= vs[i]-v:
		return vs[i-1], true
	default:
		return vs[i], true
	}
}

func snapToGuides(p geom.Point, g Guides) *candidate {
	var best *candidate
	if y, ok := nearestSorted(g.Horizontal, p.Y); ok {
		q := geom.Point{X: p.X, Y: y}
		best = &candidate{point: q, distance: math.Abs(p.Y - y), typ: TypeGuide}
	}
	if x, ok := nearestSorted(g.Vertical, p.X); ok {
		c := candidate{point: geom.Point{X: x, Y: p.Y}, distance: math.Abs(p.X - x), typ: TypeGuide}
		if c.better(best) {
			best = &c
		}
	}
	return best
}

func snapToObjects(p geom.Point, objects []Object, s Settings) *candidate {
	var best *candidate
	for _, obj := range objects {
		n := len(obj.Points)
		for i, v := range obj.Points {
			if !v.IsFinite() || s.excludes(obj.ID, i) {
				continue
			}
			c := candidate{point: v, distance: p.Distance(v), typ: TypeObject}
			if c.better(best) {
				best = &c
			}
		}
		for i, e := range obj.edges() {
			if !e[0].IsFinite() || !e[1].IsFinite() {
				continue
			}
			if s.excludes(obj.ID, i) || s.excludes(obj.ID, (i+1)%n) {
				continue
			}
			q, _ := geom.SegmentProjection(p, e[0], e[1])
			c := candidate{point: q, distance: p.Distance(q), typ: TypeObject}
			if c.better(best) {
				best = &c
			}
		}
	}
	return best
}

func snapToAngles(geom.Point, Settings) (*candidate, error) {
	return nil, ErrUnsupported
}

func snapToDistances(geom.Point, Settings) (*candidate, error) {
	return nil, ErrUnsupported
}
