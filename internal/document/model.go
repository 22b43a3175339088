package document

import (
	"github.com/closset/vectorcore/internal/geom"
	"github.com/closset/vectorcore/internal/typeid"
)

type PointType string

const (
	PointCorner    PointType = "corner"
	PointSmooth    PointType = "smooth"
	PointSymmetric PointType = "symmetric"
	PointAuto      PointType = "auto"
)

// Valid reports whether t is one of the known anchor types.
func (t PointType) Valid() bool {
	switch t {
	case PointCorner, PointSmooth, PointSymmetric, PointAuto:
		return true
	}
	return false
}

// VectorPoint is an anchor on a path. ControlIn and ControlOut are offsets
// relative to the anchor, never absolute coordinates. Absolute marks points
// imported from external data whose controls are still absolute; repair
// rewrites them and clears the flag.
type VectorPoint struct {
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Type       PointType   `json:"type"`
	ControlIn  *geom.Point `json:"controlIn,omitempty"`
	ControlOut *geom.Point `json:"controlOut,omitempty"`
	Selected   bool        `json:"selected,omitempty"`
	Locked     bool        `json:"locked,omitempty"`
	Absolute   bool        `json:"absolute,omitempty"`
}

// NewPoint returns an anchor of the given type with no handles.
func NewPoint(p geom.Point, t PointType) VectorPoint {
	return VectorPoint{X: p.X, Y: p.Y, Type: t}
}

// Anchor returns the anchor position.
func (p VectorPoint) Anchor() geom.Point {
	return geom.Point{X: p.X, Y: p.Y}
}

// HandleIn returns the absolute position of the incoming handle.
func (p VectorPoint) HandleIn() (geom.Point, bool) {
	if p.ControlIn == nil {
		return geom.Point{}, false
	}
	return p.Anchor().Add(*p.ControlIn), true
}

// HandleOut returns the absolute position of the outgoing handle.
func (p VectorPoint) HandleOut() (geom.Point, bool) {
	if p.ControlOut == nil {
		return geom.Point{}, false
	}
	return p.Anchor().Add(*p.ControlOut), true
}

// Clone returns a deep copy; handle pointers are never shared.
func (p VectorPoint) Clone() VectorPoint {
	if p.ControlIn != nil {
		c := *p.ControlIn
		p.ControlIn = &c
	}
	if p.ControlOut != nil {
		c := *p.ControlOut
		p.ControlOut = &c
	}
	return p
}

type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
}

// DefaultStyle is applied to paths created by the pen tool.
func DefaultStyle() Style {
	return Style{Fill: "", Stroke: "#000000", StrokeWidth: 1, Opacity: 1}
}

// VectorPath owns its points exclusively. Bounds is derived from the points
// and refreshed by every mutator; it is never authoritative.
type VectorPath struct {
	ID     string        `json:"id"`
	Points []VectorPoint `json:"points"`
	Closed bool          `json:"closed"`
	Style  Style         `json:"style"`
	Bounds geom.Rect     `json:"bounds"`
}

// NewVectorPath creates a path with a fresh id.
func NewVectorPath(points []VectorPoint, closed bool) *VectorPath {
	p := &VectorPath{
		ID:     typeid.NewPathID(),
		Closed: closed,
		Style:  DefaultStyle(),
	}
	p.SetPoints(points)
	return p
}

// Clone returns a deep copy of the path.
func (p *VectorPath) Clone() *VectorPath {
	if p == nil {
		return nil
	}
	c := *p
	c.Points = make([]VectorPoint, len(p.Points))
	for i, pt := range p.Points {
		c.Points[i] = pt.Clone()
	}
	return &c
}

// SetPoints replaces all points with copies of pts.
func (p *VectorPath) SetPoints(pts []VectorPoint) {
	p.Points = make([]VectorPoint, len(pts))
	for i, pt := range pts {
		p.Points[i] = pt.Clone()
	}
	p.RecomputeBounds()
}

// SetPoint replaces the point at index i.
func (p *VectorPath) SetPoint(i int, pt VectorPoint) bool {
	if i < 0 || i >= len(p.Points) {
		return false
	}
	p.Points[i] = pt.Clone()
	p.RecomputeBounds()
	return true
}

// InsertPoint inserts pt before index i. i == len(Points) appends.
func (p *VectorPath) InsertPoint(i int, pt VectorPoint) bool {
	if i < 0 || i > len(p.Points) {
		return false
	}
	p.Points = append(p.Points, VectorPoint{})
	copy(p.Points[i+1:], p.Points[i:])
	p.Points[i] = pt.Clone()
	p.RecomputeBounds()
	return true
}

// RemovePoint deletes the point at index i.
func (p *VectorPath) RemovePoint(i int) bool {
	if i < 0 || i >= len(p.Points) {
		return false
	}
	p.Points = append(p.Points[:i], p.Points[i+1:]...)
	p.RecomputeBounds()
	return true
}

// Transform applies m to every anchor and the linear part of m to every
// handle offset.
func (p *VectorPath) Transform(m geom.Matrix) {
	for i := range p.Points {
		pt := &p.Points[i]
		a := m.TransformPoint(pt.Anchor())
		pt.X, pt.Y = a.X, a.Y
		if pt.ControlIn != nil {
			v := m.TransformVector(*pt.ControlIn)
			pt.ControlIn = &v
		}
		if pt.ControlOut != nil {
			v := m.TransformVector(*pt.ControlOut)
			pt.ControlOut = &v
		}
	}
	p.RecomputeBounds()
}

// RecomputeBounds refreshes Bounds over anchors and handle positions.
func (p *VectorPath) RecomputeBounds() {
	pts := make([]geom.Point, 0, len(p.Points)*3)
	for _, pt := range p.Points {
		if !pt.Anchor().IsFinite() {
			continue
		}
		pts = append(pts, pt.Anchor())
		if h, ok := pt.HandleIn(); ok && h.IsFinite() {
			pts = append(pts, h)
		}
		if h, ok := pt.HandleOut(); ok && h.IsFinite() {
			pts = append(pts, h)
		}
	}
	p.Bounds = geom.BoundsOf(pts...)
}

// Anchors returns the anchor positions in order.
func (p *VectorPath) Anchors() []geom.Point {
	out := make([]geom.Point, len(p.Points))
	for i, pt := range p.Points {
		out[i] = pt.Anchor()
	}
	return out
}

// Size estimates the memory held by the path in bytes.
func (p *VectorPath) Size() int {
	if p == nil {
		return 0
	}
	const (
		pathOverhead = 128
		pointSize    = 64
		handleSize   = 24
	)
	n := pathOverhead + len(p.ID) + len(p.Style.Fill) + len(p.Style.Stroke)
	for _, pt := range p.Points {
		n += pointSize
		if pt.ControlIn != nil {
			n += handleSize
		}
		if pt.ControlOut != nil {
			n += handleSize
		}
	}
	return n
}

// Handle names one of the two control handles of an anchor.
type Handle string

const (
	HandleIn  Handle = "in"
	HandleOut Handle = "out"
)

// Valid reports whether h names a handle.
func (h Handle) Valid() bool {
	return h == HandleIn || h == HandleOut
}

// Control returns the offset of the named handle, or nil.
func (p VectorPoint) Control(h Handle) *geom.Point {
	if h == HandleIn {
		return p.ControlIn
	}
	return p.ControlOut
}
