// Package render compiles a document into draw commands for a Canvas2D
// frontend. Commands are in painter's order: paths back to front, then the
// editing overlays.
package render

import (
	"encoding/json"
	"slices"

	"github.com/closset/vectorcore/internal/bezier"
	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
)

// PathCommand is a single path segment.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []any

const (
	OpPath    = "path"
	OpAnchor  = "anchor"
	OpHandle  = "handle"
	OpBounds  = "bounds"
	OpMarquee = "marquee"
)

// DrawCommand is one drawing operation for the frontend to execute.
type DrawCommand struct {
	Op          string             `json:"op"`                  // "path", "anchor", "handle", "bounds", "marquee"
	ObjectID    string             `json:"objectId,omitempty"`  // for hit correlation
	Path        []PathCommand      `json:"path,omitempty"`      // path data for "path" ops
	Points      []geom.Point       `json:"points,omitempty"`    // anchor, or anchor and handle
	Rect        *geom.Rect         `json:"rect,omitempty"`      // bounds and marquee ops
	Index       int                `json:"index"`               // point index for overlay ops
	PointType   document.PointType `json:"pointType,omitempty"` // anchor ops
	Selected    bool               `json:"selected,omitempty"`
	Fill        string             `json:"fill,omitempty"`
	Stroke      string             `json:"stroke,omitempty"`
	StrokeWidth float64            `json:"strokeWidth,omitempty"`
	Opacity     float64            `json:"opacity,omitempty"`
}

// Options select the overlays drawn on top of the paths.
type Options struct {
	// Selected paths get anchor and handle overlays.
	Selected []string
	// Transform is previewed on the Transformed paths without touching the
	// document.
	Transform   geom.Matrix
	Transformed []string
	// Draft is an uncommitted path, drawn last.
	Draft   *document.VectorPath
	Bounds  *geom.Rect
	Marquee *geom.Rect
}

// Renderer compiles documents, reusing path data for unchanged geometry.
type Renderer struct {
	cache *Cache
}

func NewRenderer() *Renderer {
	return &Renderer{cache: NewCache(DefaultCacheSize)}
}

// Cache returns the path data cache.
func (r *Renderer) Cache() *Cache {
	return r.cache
}

// Compile generates the draw command buffer for doc.
func (r *Renderer) Compile(doc *document.Document, opts Options) []DrawCommand {
	if doc == nil {
		return nil
	}

	var commands []DrawCommand
	var overlays []*document.VectorPath
	for _, p := range doc.Paths {
		if slices.Contains(opts.Transformed, p.ID) {
			p = p.Clone()
			p.Transform(opts.Transform)
		}
		if cmd, ok := r.pathCommand(p); ok {
			commands = append(commands, cmd)
		}
		if slices.Contains(opts.Selected, p.ID) {
			overlays = append(overlays, p)
		}
	}
	if opts.Draft != nil {
		if cmd, ok := r.pathCommand(opts.Draft); ok {
			commands = append(commands, cmd)
		}
		overlays = append(overlays, opts.Draft)
	}

	for _, p := range overlays {
		commands = append(commands, pointOverlays(p)...)
	}
	if opts.Bounds != nil {
		b := *opts.Bounds
		commands = append(commands, DrawCommand{Op: OpBounds, Rect: &b})
	}
	if opts.Marquee != nil {
		m := *opts.Marquee
		commands = append(commands, DrawCommand{Op: OpMarquee, Rect: &m})
	}
	return commands
}

func (r *Renderer) pathCommand(p *document.VectorPath) (DrawCommand, bool) {
	data := r.cache.PathData(p)
	if len(data) == 0 {
		return DrawCommand{}, false
	}
	return DrawCommand{
		Op:          OpPath,
		ObjectID:    p.ID,
		Path:        data,
		Fill:        p.Style.Fill,
		Stroke:      p.Style.Stroke,
		StrokeWidth: p.Style.StrokeWidth,
		Opacity:     p.Style.Opacity,
	}, true
}

// pointOverlays emits handle lines first so anchors are drawn over them.
func pointOverlays(p *document.VectorPath) []DrawCommand {
	var handles, anchors []DrawCommand
	for i, pt := range p.Points {
		a := pt.Anchor()
		if h, ok := pt.HandleIn(); ok {
			handles = append(handles, DrawCommand{Op: OpHandle, ObjectID: p.ID, Index: i, Points: []geom.Point{a, h}})
		}
		if h, ok := pt.HandleOut(); ok {
			handles = append(handles, DrawCommand{Op: OpHandle, ObjectID: p.ID, Index: i, Points: []geom.Point{a, h}})
		}
		anchors = append(anchors, DrawCommand{
			Op:        OpAnchor,
			ObjectID:  p.ID,
			Index:     i,
			Points:    []geom.Point{a},
			PointType: pt.Type,
			Selected:  pt.Selected,
		})
	}
	return append(handles, anchors...)
}

// PathData converts a path into Canvas2D path commands built from absolute
// handle positions.
func PathData(p *document.VectorPath) []PathCommand {
	if p == nil || len(p.Points) == 0 {
		return nil
	}
	first := p.Points[0].Anchor()
	data := []PathCommand{{"M", first.X, first.Y}}
	for _, c := range bezier.PathCurves(p) {
		if c.IsStraight() {
			data = append(data, PathCommand{"L", c.End.X, c.End.Y})
			continue
		}
		data = append(data, PathCommand{"C", c.Control1.X, c.Control1.Y, c.Control2.X, c.Control2.Y, c.End.X, c.End.Y})
	}
	if p.Closed && len(p.Points) > 1 {
		data = append(data, PathCommand{"Z"})
	}
	return data
}

// ToJSON serializes draw commands to JSON.
func ToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
