// Package stitch turns vector paths into embroidery stitch plans.
//
// A plan is a flat list of needle positions. Paths are flattened and
// resampled at the stitch length, then offset across the path normal by
// the chosen strategy. A color_change marker opens every layer.
package stitch

import (
	"errors"
	"fmt"
	"math"

	"github.com/closset/vectorcore/internal/bezier"
	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
)

type Strategy string

const (
	Outline     Strategy = "outline"
	Satin       Strategy = "satin"
	Zigzag      Strategy = "zigzag"
	DoubleSatin Strategy = "double_satin"
	Meander     Strategy = "meander"
	Contour     Strategy = "contour"
	Ripple      Strategy = "ripple"
	Fill        Strategy = "fill"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{Outline, Satin, Zigzag, DoubleSatin, Meander, Contour, Ripple, Fill}

type Kind string

const (
	KindStitch      Kind = "stitch"
	KindColorChange Kind = "color_change"
)

var (
	ErrUnknownStrategy = errors.New("unknown stitch strategy")
	ErrInvalidOptions  = errors.New("invalid stitch options")
)

// flattenSteps is the number of chords used per curved segment.
const flattenSteps = 24

type Stitch struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Type  Kind    `json:"type"`
	Color string  `json:"color,omitempty"`
}

// Options are given in millimetres and converted to canvas units with
// MMPerPx.
type Options struct {
	Strategy    Strategy `json:"strategy"`
	Density     float64  `json:"density"`
	WidthMM     float64  `json:"widthMm"`
	Passes      int      `json:"passes"`
	StitchLenMM float64  `json:"stitchLenMm"`
	MMPerPx     float64  `json:"mmPerPx"`
}

func DefaultOptions() Options {
	return Options{
		Strategy:    Outline,
		Density:     1,
		WidthMM:     2,
		Passes:      1,
		StitchLenMM: 2.5,
		MMPerPx:     0.26,
	}
}

func (o Options) Validate() error {
	known := false
	for _, s := range Strategies {
		known = known || s == o.Strategy
	}
	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, o.Strategy)
	}
	for name, v := range map[string]float64{"density": o.Density, "widthMm": o.WidthMM, "mmPerPx": o.MMPerPx} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidOptions, name, v)
		}
	}
	if !(o.StitchLenMM > 0) || math.IsInf(o.StitchLenMM, 0) {
		return fmt.Errorf("%w: stitchLenMm = %v", ErrInvalidOptions, o.StitchLenMM)
	}
	return nil
}

// spacing is the stitch length in canvas units, shortened by density. It is
// never below one unit.
func (o Options) spacing() float64 {
	l := o.StitchLenMM
	if o.MMPerPx > 0 {
		l /= o.MMPerPx
	}
	if o.Density > 0 {
		l /= max(0.25, o.Density)
	}
	return max(1, l)
}

func (o Options) width() float64 {
	if o.MMPerPx > 0 {
		return o.WidthMM / o.MMPerPx
	}
	return o.WidthMM
}

type Layer struct {
	PathID string `json:"pathId,omitempty"`
	Count  int    `json:"count"`
	Color  string `json:"color"`
}

type Info struct {
	StitchCount int      `json:"stitchCount"`
	Strategy    Strategy `json:"strategy"`
	MMPerPx     float64  `json:"mmPerPx"`
	StitchLenMM float64  `json:"stitchLenMm"`
	WidthMM     float64  `json:"widthMm"`
	Passes      int      `json:"passes"`
	Layers      []Layer  `json:"layers"`
}

type Plan struct {
	Points []Stitch `json:"points"`
	Info   Info     `json:"info"`
}

func newPlan(o Options) Plan {
	return Plan{
		Points: []Stitch{},
		Info: Info{
			Strategy:    o.Strategy,
			MMPerPx:     o.MMPerPx,
			StitchLenMM: o.StitchLenMM,
			WidthMM:     o.WidthMM,
			Passes:      o.Passes,
			Layers:      []Layer{},
		},
	}
}

// add appends one layer. Polylines shorter than two points add nothing.
func (p *Plan) add(pathID, color string, line []geom.Point, o Options) {
	stitches := stitchLine(line, o)
	if len(stitches) == 0 {
		return
	}
	p.Points = append(p.Points, Stitch{X: stitches[0].X, Y: stitches[0].Y, Type: KindColorChange, Color: color})
	p.Points = append(p.Points, stitches...)
	p.Info.StitchCount += len(stitches)
	p.Info.Layers = append(p.Info.Layers, Layer{PathID: pathID, Count: len(stitches), Color: color})
}

// FromPoints plans a single black layer along a freehand polyline.
func FromPoints(points []geom.Point, o Options) (Plan, error) {
	if err := o.Validate(); err != nil {
		return Plan{}, err
	}
	plan := newPlan(o)
	plan.add("", "#000000", finite(points), o)
	return plan, nil
}

// FromDocument plans one layer per path in z-order. A layer takes the path's
// stroke color, then its fill, then black.
func FromDocument(doc *document.Document, o Options) (Plan, error) {
	if err := o.Validate(); err != nil {
		return Plan{}, err
	}
	plan := newPlan(o)
	for _, p := range doc.Paths {
		color := p.Style.Stroke
		if color == "" {
			color = p.Style.Fill
		}
		if color == "" {
			color = "#000000"
		}
		plan.add(p.ID, color, Polyline(p), o)
	}
	return plan, nil
}

// Polyline flattens a path, including the closing segment of closed paths.
func Polyline(p *document.VectorPath) []geom.Point {
	curves := bezier.PathCurves(p)
	if len(curves) == 0 {
		return nil
	}
	out := []geom.Point{curves[0].Start}
	for _, c := range curves {
		out = append(out, bezier.Flatten(c, flattenSteps)[1:]...)
	}
	return finite(out)
}

func finite(pts []geom.Point) []geom.Point {
	out := make([]geom.Point, 0, len(pts))
	for _, p := range pts {
		if p.IsFinite() {
			out = append(out, p)
		}
	}
	return out
}

// Resample walks the polyline and returns points spaced evenly along it,
// starting at the first point and always ending at the last one.
func Resample(pts []geom.Point, spacing float64) []geom.Point {
	if len(pts) < 2 || !(spacing > 0) {
		return pts
	}
	out := []geom.Point{pts[0]}
	walked := 0.0 // distance since the last emitted point
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		seg := b.Sub(a)
		length := seg.Magnitude()
		if length <= geom.Epsilon {
			continue
		}
		dir := seg.Scale(1 / length)
		d := spacing - walked
		for ; d <= length; d += spacing {
			out = append(out, a.Add(dir.Scale(d)))
		}
		walked = length - (d - spacing)
	}
	if last := pts[len(pts)-1]; out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}

// normal returns the unit normal of the polyline at i from the central
// difference of its neighbours, or zero when they coincide.
func normal(pts []geom.Point, i int) geom.Point {
	a, b := pts[max(0, i-1)], pts[min(len(pts)-1, i+1)]
	t, ok := b.Sub(a).Normalize()
	if !ok {
		return geom.Point{}
	}
	return geom.Pt(-t.Y, t.X)
}

func stitchLine(line []geom.Point, o Options) []Stitch {
	if len(line) < 2 {
		return nil
	}
	base := Resample(line, o.spacing())
	w := o.width()
	passes := max(1, o.Passes)
	bands := max(1, int(max(2, w)/o.spacing()))

	var out []Stitch
	at := func(p, n geom.Point, off float64) {
		q := p.Add(n.Scale(off))
		out = append(out, Stitch{X: q.X, Y: q.Y, Type: KindStitch})
	}

	side, phase := 1.0, 0.0
	for i, b := range base {
		n := normal(base, i)
		switch o.Strategy {
		case Outline:
			at(b, n, 0)
		case Satin:
			// later passes run narrower
			for pass := range passes {
				at(b, n, side*w*(1-float64(pass)/float64(passes))/2)
			}
			side = -side
		case Zigzag:
			at(b, n, side*w/2)
			side = -side
		case DoubleSatin:
			at(b, n, w/4)
			at(b, n, -w/2)
		case Meander:
			phase += max(0.2, 2/o.spacing())
			at(b, n, math.Sin(phase)*w/2)
		case Contour:
			for band := -bands; band <= bands; band += 2 {
				at(b, n, float64(band)/float64(bands)*w/2)
			}
		case Ripple:
			phase += 0.5
			at(b, n, (0.5+0.5*math.Sin(phase))*w/2)
		case Fill:
			for band := -bands; band <= bands; band++ {
				at(b, n, float64(band)/float64(bands)*w/2)
			}
		}
	}
	return out
}
