package document

import (
	"github.com/closset/vectorcore/internal/geom"
	"github.com/closset/vectorcore/internal/typeid"
)

// NewSampleDocument returns a small document with a closed corner shape and
// an open smooth stroke, used by the playground session.
func NewSampleDocument(docID string) *Document {
	doc := NewDocument(docID, "Untitled")

	panel := NewVectorPath([]VectorPoint{
		NewPoint(geom.Pt(100, 100), PointCorner),
		NewPoint(geom.Pt(300, 100), PointCorner),
		NewPoint(geom.Pt(340, 320), PointCorner),
		NewPoint(geom.Pt(60, 320), PointCorner),
	}, true)
	panel.Style = Style{Fill: "#e94560", Stroke: "#1a1a2e", StrokeWidth: 2, Opacity: 1}

	in := geom.Pt(-40, 0)
	out := geom.Pt(40, 0)
	collar := &VectorPath{
		ID: typeid.NewPathID(),
		Points: []VectorPoint{
			{X: 140, Y: 100, Type: PointAuto, ControlOut: &geom.Point{X: 20, Y: 30}},
			{X: 200, Y: 160, Type: PointSmooth, ControlIn: &in, ControlOut: &out},
			{X: 260, Y: 100, Type: PointAuto, ControlIn: &geom.Point{X: -20, Y: 30}},
		},
		Style: Style{Stroke: "#0f3460", StrokeWidth: 3, Opacity: 1},
	}
	collar.RecomputeBounds()

	doc.Put(panel)
	doc.Put(collar)
	return doc
}
