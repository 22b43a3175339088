package render

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"golang.org/x/image/vector"

	"github.com/closset/vectorcore/internal/bezier"
	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
)

// strokeSteps is the number of chords used to stroke a curved segment.
const strokeSteps = 16

type RasterOptions struct {
	Width, Height int
	// Padding is kept free around the fitted document, in pixels.
	Padding    float64
	Background color.Color
}

func DefaultRasterOptions() RasterOptions {
	return RasterOptions{Width: 256, Height: 256, Padding: 8, Background: color.White}
}

// Rasterize draws a thumbnail of doc, scaled to fit the image. Closed paths
// are filled, then every path is stroked; paths without any style use the
// pen tool default.
func Rasterize(doc *document.Document, opts RasterOptions) *image.RGBA {
	w, h := max(opts.Width, 1), max(opts.Height, 1)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := opts.Background
	if bg == nil {
		bg = color.White
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	fit, scale, ok := fitMatrix(doc, w, h, opts.Padding)
	if !ok {
		return img
	}
	for _, p := range doc.Paths {
		if len(p.Points) < 2 {
			continue
		}
		style := p.Style
		if style.Fill == "" && style.Stroke == "" {
			style = document.DefaultStyle()
		}
		q := p.Clone()
		q.Transform(fit)
		curves := bezier.PathCurves(q)

		if c, ok := parseColor(style.Fill, style.Opacity); ok && q.Closed {
			fillPath(img, curves, c)
		}
		if c, ok := parseColor(style.Stroke, style.Opacity); ok {
			strokePath(img, curves, max(style.StrokeWidth*scale, 1), c)
		}
	}
	return img
}

// fitMatrix maps the document bounds into the padded image, keeping the
// aspect ratio.
func fitMatrix(doc *document.Document, w, h int, padding float64) (geom.Matrix, float64, bool) {
	rects := make([]geom.Rect, 0, len(doc.Paths))
	for _, p := range doc.Paths {
		if len(p.Points) > 0 {
			rects = append(rects, p.Bounds)
		}
	}
	b, ok := geom.UnionAll(rects)
	if !ok {
		return geom.Identity(), 0, false
	}
	aw := max(float64(w)-2*padding, 1)
	ah := max(float64(h)-2*padding, 1)
	scale := 1.0
	if b.Width > 0 || b.Height > 0 {
		scale = min(aw/max(b.Width, geom.Epsilon), ah/max(b.Height, geom.Epsilon))
	}
	// center the scaled bounds in the image
	tx := (float64(w)-b.Width*scale)/2 - b.X*scale
	ty := (float64(h)-b.Height*scale)/2 - b.Y*scale
	return geom.Translate(tx, ty).Multiply(geom.Scale(scale, scale)), scale, true
}

func fillPath(img *image.RGBA, curves []bezier.Curve, c color.Color) {
	if len(curves) == 0 {
		return
	}
	b := img.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	start := curves[0].Start
	r.MoveTo(float32(start.X), float32(start.Y))
	for _, cv := range curves {
		if cv.IsStraight() {
			r.LineTo(float32(cv.End.X), float32(cv.End.Y))
			continue
		}
		r.CubeTo(
			float32(cv.Control1.X), float32(cv.Control1.Y),
			float32(cv.Control2.X), float32(cv.Control2.Y),
			float32(cv.End.X), float32(cv.End.Y),
		)
	}
	r.ClosePath()
	r.Draw(img, b, image.NewUniform(c), image.Point{})
}

// strokePath covers every chord of the flattened path with a quad of the
// stroke width. All quads share one winding so overlaps do not cancel.
func strokePath(img *image.RGBA, curves []bezier.Curve, width float64, c color.Color) {
	b := img.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	half := width / 2
	for _, cv := range curves {
		pts := bezier.Flatten(cv, strokeSteps)
		for i := 1; i < len(pts); i++ {
			a, e := pts[i-1], pts[i]
			dir, ok := e.Sub(a).Normalize()
			if !ok {
				continue
			}
			n := geom.Pt(-dir.Y, dir.X).Scale(half)
			// extend along the chord so consecutive quads overlap at joints
			a, e = a.Sub(dir.Scale(half)), e.Add(dir.Scale(half))
			quad := [4]geom.Point{a.Add(n), e.Add(n), e.Sub(n), a.Sub(n)}
			r.MoveTo(float32(quad[0].X), float32(quad[0].Y))
			for _, q := range quad[1:] {
				r.LineTo(float32(q.X), float32(q.Y))
			}
			r.ClosePath()
		}
	}
	r.Draw(img, b, image.NewUniform(c), image.Point{})
}

// parseColor reads "#rgb" or "#rrggbb". Empty strings and "none" mean no
// paint.
func parseColor(s string, opacity float64) (color.NRGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	a := uint8(geom.Clamp(opacity, 0, 1) * 255)
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: a}, true
}
