// Package hittest finds the anchor, control handle or path edge under the
// pointer.
//
// Targets are searched in priority tiers. The first tier with any match wins
// outright, so an anchor within its radius beats an edge that is closer.
// Within a tier the nearest match wins and equal distances go to the topmost
// shape. Radii and tolerance are screen sizes and are divided by the zoom so
// targets keep a constant apparent size.
package hittest

import (
	"cmp"
	"math"
	"slices"

	"github.com/closset/vectorcore/internal/bezier"
	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
)

type Kind string

const (
	KindNone   Kind = "none"
	KindAnchor Kind = "anchor"
	KindHandle Kind = "handle"
	KindEdge   Kind = "edge"
)

// DefaultPriority is the tier order used when Options.Priority is empty.
var DefaultPriority = []Kind{KindAnchor, KindHandle, KindEdge}

// flattenSteps is the number of chords used to approximate curved edges.
const flattenSteps = 24

type Options struct {
	// Tolerance is the maximum distance to an edge.
	Tolerance    float64 `json:"tolerance"`
	AnchorRadius float64 `json:"anchorRadius"`
	HandleRadius float64 `json:"handleRadius"`
	Zoom         float64 `json:"zoom"`
	Priority     []Kind  `json:"priority,omitempty"`
	// MultiSelect collects every match of the winning tier in Result.All.
	MultiSelect bool `json:"multiSelect"`
}

func DefaultOptions() Options {
	return Options{
		Tolerance:    5,
		AnchorRadius: 6,
		HandleRadius: 5,
		Zoom:         1,
	}
}

// Hit describes one target. PointIndex and Handle are set for anchors and
// handles; Segment and T for edges. Point is the target position, which for
// edges is the closest point on the curve.
type Hit struct {
	Type       Kind            `json:"type"`
	PathID     string          `json:"pathId,omitempty"`
	PointIndex int             `json:"pointIndex"`
	Handle     document.Handle `json:"handle,omitempty"`
	Segment    int             `json:"segment"`
	T          float64         `json:"t"`
	Point      geom.Point      `json:"point"`
	Distance   float64         `json:"distance"`
}

type Result struct {
	Hit
	All []Hit `json:"all,omitempty"`
}

// None is the empty result.
func None() Result {
	return Result{Hit: Hit{Type: KindNone, PointIndex: -1, Segment: -1}}
}

// Detect returns the best target for p among shapes, which are ordered from
// bottom to top.
func Detect(p geom.Point, shapes []*document.VectorPath, opts Options) Result {
	if !p.IsFinite() {
		return None()
	}
	zoom := opts.Zoom
	if !(zoom > 0) || math.IsInf(zoom, 1) {
		zoom = 1
	}
	priority := opts.Priority
	if len(priority) == 0 {
		priority = DefaultPriority
	}

	for _, kind := range priority {
		var hits []Hit
		switch kind {
		case KindAnchor:
			hits = anchors(p, shapes, opts.AnchorRadius/zoom)
		case KindHandle:
			hits = handles(p, shapes, opts.HandleRadius/zoom)
		case KindEdge:
			hits = edges(p, shapes, opts.Tolerance/zoom)
		default:
			continue
		}
		if len(hits) == 0 {
			continue
		}
		// hits are gathered topmost first, so a stable sort leaves ties with
		// the topmost shape
		slices.SortStableFunc(hits, func(a, b Hit) int { return cmp.Compare(a.Distance, b.Distance) })
		r := Result{Hit: hits[0]}
		if opts.MultiSelect {
			r.All = hits
		}
		return r
	}
	return None()
}

// topDown calls fn for every shape from the topmost to the bottommost.
func topDown(shapes []*document.VectorPath, fn func(*document.VectorPath)) {
	for i := len(shapes) - 1; i >= 0; i-- {
		if shapes[i] != nil {
			fn(shapes[i])
		}
	}
}

func anchors(p geom.Point, shapes []*document.VectorPath, radius float64) []Hit {
	var hits []Hit
	topDown(shapes, func(path *document.VectorPath) {
		for i, pt := range path.Points {
			a := pt.Anchor()
			if d := p.Distance(a); d <= radius {
				hits = append(hits, Hit{Type: KindAnchor, PathID: path.ID, PointIndex: i, Segment: -1, Point: a, Distance: d})
			}
		}
	})
	return hits
}

func handles(p geom.Point, shapes []*document.VectorPath, radius float64) []Hit {
	var hits []Hit
	topDown(shapes, func(path *document.VectorPath) {
		for i, pt := range path.Points {
			for _, h := range []document.Handle{document.HandleIn, document.HandleOut} {
				pos, ok := handlePosition(pt, h)
				if !ok {
					continue
				}
				if d := p.Distance(pos); d <= radius {
					hits = append(hits, Hit{Type: KindHandle, PathID: path.ID, PointIndex: i, Handle: h, Segment: -1, Point: pos, Distance: d})
				}
			}
		}
	})
	return hits
}

func handlePosition(pt document.VectorPoint, h document.Handle) (geom.Point, bool) {
	if h == document.HandleIn {
		return pt.HandleIn()
	}
	return pt.HandleOut()
}

func edges(p geom.Point, shapes []*document.VectorPath, tolerance float64) []Hit {
	var hits []Hit
	topDown(shapes, func(path *document.VectorPath) {
		for i, c := range bezier.PathCurves(path) {
			if !c.IsValid {
				continue
			}
			if !nearBounds(bezier.CalculateCurveBounds(c), p, tolerance) {
				continue
			}
			q, t := closestOnCurve(p, c)
			if d := p.Distance(q); d <= tolerance {
				hits = append(hits, Hit{Type: KindEdge, PathID: path.ID, PointIndex: -1, Segment: i, T: t, Point: q, Distance: d})
			}
		}
	})
	return hits
}

// nearBounds reports whether p lies within tolerance of r. The control
// polygon bounds contain the whole curve.
func nearBounds(r geom.Rect, p geom.Point, tolerance float64) bool {
	return p.X >= r.X-tolerance && p.X <= r.Right()+tolerance &&
		p.Y >= r.Y-tolerance && p.Y <= r.Bottom()+tolerance
}

// closestOnCurve returns the closest point to p on c and its approximate
// curve parameter. Curves are flattened into chords first.
func closestOnCurve(p geom.Point, c bezier.Curve) (geom.Point, float64) {
	if c.IsStraight() {
		return geom.SegmentProjection(p, c.Start, c.End)
	}
	poly := bezier.Flatten(c, flattenSteps)
	n := float64(len(poly) - 1)
	var (
		best  geom.Point
		bestT float64
		bestD = -1.0
	)
	for i := 0; i+1 < len(poly); i++ {
		q, t := geom.SegmentProjection(p, poly[i], poly[i+1])
		if d := p.DistanceSquared(q); bestD < 0 || d < bestD {
			best, bestT, bestD = q, (float64(i)+t)/n, d
		}
	}
	return best, bestT
}
