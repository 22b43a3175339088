package editor

import (
	"fmt"

	"github.com/closset/vectorcore/internal/bezier"
	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
	"github.com/closset/vectorcore/internal/hittest"
	"github.com/closset/vectorcore/internal/selection"
	"github.com/closset/vectorcore/internal/snap"
)

// BeginPath starts drawing a new path with its first anchor at the snapped
// pointer position.
func (s *Session) BeginPath(x, y float64, typ document.PointType) (err error) {
	defer s.guard("begin path", &err)

	if s.draft != nil {
		return ErrDrafting
	}
	p, err := s.place(x, y)
	if err != nil {
		return err
	}
	s.draft = document.NewVectorPath([]document.VectorPoint{document.NewPoint(p, pointType(typ))}, false)
	return nil
}

// AddAnchor appends an anchor to the path being drawn and recomputes the
// handles of the anchors around it.
func (s *Session) AddAnchor(x, y float64, typ document.PointType) (warnings []string, err error) {
	defer s.guard("add anchor", &err)

	if s.draft == nil {
		return nil, ErrNoDraft
	}
	p, err := s.place(x, y)
	if err != nil {
		return nil, err
	}
	n := len(s.draft.Points)
	s.draft.InsertPoint(n, document.NewPoint(p, pointType(typ)))
	return bezier.RecomputeAnchors(s.draft, []int{n - 1, n}, s.opts.Constraints), nil
}

// FinishPath validates the path being drawn and commits it to the document
// as one undo step. The new path becomes the selection.
func (s *Session) FinishPath(closed bool) (id string, err error) {
	defer s.guard("finish path", &err)

	d := s.draft
	if d == nil {
		return "", ErrNoDraft
	}
	if len(d.Points) < 2 {
		return "", ErrDraftTooShort
	}
	v := bezier.ValidateAndRepair(d.Points)
	if !v.IsValid {
		return "", fmt.Errorf("finish path: %v", v.Errors)
	}

	d.Closed = closed
	d.SetPoints(v.Repaired)
	// closing connects the ends, so their auto handles change
	bezier.RecomputeAnchors(d, []int{0, len(d.Points) - 1}, s.opts.Constraints)

	err = s.mutate("draw path", []string{d.ID}, func() error {
		s.doc.Put(d)
		return nil
	})
	if err != nil {
		return "", err
	}
	s.draft = nil
	s.sel.SelectElement(d.ID, selection.Replace)
	return d.ID, nil
}

// Draft returns a copy of the path being drawn.
func (s *Session) Draft() (*document.VectorPath, bool) {
	if s.draft == nil {
		return nil, false
	}
	return s.draft.Clone(), true
}

// InsertAnchor splits the path edge under the pointer with a new anchor.
// Curved edges are split without changing their shape.
func (s *Session) InsertAnchor(x, y float64) (pathID string, index int, err error) {
	defer s.guard("insert anchor", &err)

	opts := s.opts.Hit
	opts.Priority = []hittest.Kind{hittest.KindEdge}
	hit := hittest.Detect(geom.Pt(x, y), s.doc.Paths, opts)
	if hit.Type != hittest.KindEdge {
		return "", -1, ErrNoEdge
	}
	path, _ := s.doc.Get(hit.PathID)
	curve, err := bezier.Segment(path, hit.Segment)
	if err != nil {
		return "", -1, err
	}

	i := hit.Segment
	j := (i + 1) % len(path.Points)
	index = i + 1

	err = s.mutate("insert anchor", []string{path.ID}, func() error {
		if curve.IsStraight() {
			pt := document.NewPoint(hit.Point, document.PointCorner)
			path.InsertPoint(index, pt)
			return nil
		}

		left, right := bezier.Split(curve, hit.T)
		a, b := path.Points[i].Clone(), path.Points[j].Clone()
		a.ControlOut = offset(left.Control1, a.Anchor())
		b.ControlIn = offset(right.Control2, b.Anchor())
		mid := document.VectorPoint{
			X:          left.End.X,
			Y:          left.End.Y,
			Type:       document.PointSmooth,
			ControlIn:  offset(left.Control2, left.End),
			ControlOut: offset(right.Control1, left.End),
		}
		path.SetPoint(i, a)
		path.SetPoint(j, b)
		path.InsertPoint(index, mid)
		return nil
	})
	if err != nil {
		return "", -1, err
	}
	return path.ID, index, nil
}

// offset returns h relative to anchor, or nil when the handle is collapsed
// onto the anchor.
func offset(h, anchor geom.Point) *geom.Point {
	v := h.Sub(anchor)
	if v.Magnitude() < bezier.MinHandleLength {
		return nil
	}
	return &v
}

// MoveAnchor moves an anchor. Its handles move with it, and auto anchors next
// to it are recomputed.
func (s *Session) MoveAnchor(pathID string, i int, x, y float64) (err error) {
	defer s.guard("move anchor", &err)

	path, pt, err := s.point(pathID, i)
	if err != nil {
		return err
	}
	p, err := s.drag(x, y, snap.Excluding(pathID, i))
	if err != nil {
		return err
	}
	return s.mutate("move anchor", []string{pathID}, func() error {
		pt.X, pt.Y = p.X, p.Y
		path.SetPoint(i, pt)
		bezier.RecomputeAnchors(path, autoAnchors(path, i-1, i, i+1), s.opts.Constraints)
		return nil
	})
}

// MoveHandle drags a control handle of an anchor to an absolute position,
// keeping the opposite handle consistent with the anchor type.
func (s *Session) MoveHandle(pathID string, i int, h document.Handle, x, y float64) (err error) {
	defer s.guard("move handle", &err)

	if !h.Valid() {
		return ErrInvalidHandle
	}
	path, pt, err := s.point(pathID, i)
	if err != nil {
		return err
	}
	p, err := s.drag(x, y, snap.Excluding(pathID, i))
	if err != nil {
		return err
	}
	return s.mutate("move handle", []string{pathID}, func() error {
		path.SetPoint(i, bezier.DragHandle(pt, h, p.Sub(pt.Anchor())))
		return nil
	})
}

// RemoveAnchor deletes an anchor. Removing the last anchor of a path
// deletes the path.
func (s *Session) RemoveAnchor(pathID string, i int) (err error) {
	defer s.guard("remove anchor", &err)

	path, _, err := s.point(pathID, i)
	if err != nil {
		return err
	}
	if len(path.Points) == 1 {
		return s.DeletePath(pathID)
	}
	return s.mutate("remove anchor", []string{pathID}, func() error {
		path.RemovePoint(i)
		if len(path.Points) < 3 {
			path.Closed = false
		}
		bezier.RecomputeAnchors(path, autoAnchors(path, i-1, i), s.opts.Constraints)
		return nil
	})
}

// ConvertAnchor changes the type of an anchor and reshapes its handles.
func (s *Session) ConvertAnchor(pathID string, i int, typ document.PointType) (warnings []string, err error) {
	defer s.guard("convert anchor", &err)

	path, _, err := s.point(pathID, i)
	if err != nil {
		return nil, err
	}
	err = s.mutate("convert anchor", []string{pathID}, func() error {
		warnings, err = bezier.ConvertAnchor(path, i, typ, s.opts.Constraints)
		return err
	})
	return warnings, err
}

// DeletePath removes a path from the document.
func (s *Session) DeletePath(id string) (err error) {
	defer s.guard("delete path", &err)

	if _, ok := s.doc.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrPathNotFound, id)
	}
	return s.mutate("delete path", []string{id}, func() error {
		s.doc.Remove(id)
		return nil
	})
}

// SetLocked locks or unlocks an anchor against edits.
func (s *Session) SetLocked(pathID string, i int, locked bool) (err error) {
	defer s.guard("lock anchor", &err)

	path, _, err := s.lookup(pathID, i)
	if err != nil {
		return err
	}
	return s.mutate("lock anchor", []string{pathID}, func() error {
		pt := path.Points[i].Clone()
		pt.Locked = locked
		path.SetPoint(i, pt)
		return nil
	})
}

// autoAnchors filters indices down to auto anchors, wrapping on closed
// paths. Smooth and symmetric handles are user-shaped and only move along
// with their anchor.
func autoAnchors(p *document.VectorPath, indices ...int) []int {
	n := len(p.Points)
	var out []int
	for _, i := range indices {
		if p.Closed && n > 2 {
			i = (i + n) % n
		}
		if i >= 0 && i < n && p.Points[i].Type == document.PointAuto {
			out = append(out, i)
		}
	}
	return out
}

// point returns the live path and a copy of its anchor i. Locked anchors are
// rejected.
func (s *Session) point(pathID string, i int) (*document.VectorPath, document.VectorPoint, error) {
	path, pt, err := s.lookup(pathID, i)
	if err != nil {
		return nil, pt, err
	}
	if pt.Locked {
		return path, pt, ErrPointLocked
	}
	return path, pt, nil
}

func (s *Session) lookup(pathID string, i int) (*document.VectorPath, document.VectorPoint, error) {
	path, ok := s.doc.Get(pathID)
	if !ok {
		return nil, document.VectorPoint{}, fmt.Errorf("%w: %s", ErrPathNotFound, pathID)
	}
	if i < 0 || i >= len(path.Points) {
		return nil, document.VectorPoint{}, fmt.Errorf("%w: %d of %d", ErrPointOutOfRange, i, len(path.Points))
	}
	return path, path.Points[i].Clone(), nil
}

func pointType(t document.PointType) document.PointType {
	if t.Valid() {
		return t
	}
	return document.PointCorner
}
