package editor

import (
	"github.com/closset/vectorcore/internal/bezier"
	"github.com/closset/vectorcore/internal/geom"
	"github.com/closset/vectorcore/internal/hittest"
	"github.com/closset/vectorcore/internal/selection"
)

// Select applies mode to the selection with the path or group id.
func (s *Session) Select(id string, mode selection.Mode) bool {
	return s.sel.SelectElement(id, mode)
}

// SelectAt selects the path under the pointer. Clicking empty canvas with
// replace mode clears the selection.
func (s *Session) SelectAt(x, y float64, mode selection.Mode) hittest.Result {
	hit := s.HitTest(x, y)
	if hit.Type == hittest.KindNone {
		if mode == selection.Replace {
			s.sel.Clear()
		}
		return hit
	}
	id := hit.PathID
	if e, ok := s.sel.Element(id); ok && e.Parent != "" {
		id = e.Parent
	}
	s.sel.SelectElement(id, mode)
	return hit
}

// Selected returns the selected ids.
func (s *Session) Selected() []string {
	return s.sel.Selected()
}

// SelectionBounds returns the combined bounds of the selection.
func (s *Session) SelectionBounds() (geom.Rect, bool) {
	return s.sel.CombinedBounds()
}

func (s *Session) BeginMarquee(x, y float64) bool {
	return s.sel.BeginMarquee(geom.Pt(x, y))
}

func (s *Session) UpdateMarquee(x, y float64) bool {
	return s.sel.UpdateMarquee(geom.Pt(x, y))
}

func (s *Session) EndMarquee(mode selection.Mode) []string {
	return s.sel.EndMarquee(mode)
}

// Group groups the selected elements; at least two are required.
func (s *Session) Group() (string, bool) {
	return s.sel.Group()
}

// Ungroup dissolves a group and selects its members.
func (s *Session) Ungroup(id string) bool {
	return s.sel.Ungroup(id)
}

// BeginTransform starts moving, scaling or rotating the selection. The
// start position is snapped like a placement.
func (s *Session) BeginTransform(kind selection.Kind, x, y float64, constrain bool) bool {
	p, err := s.place(x, y)
	if err != nil {
		return false
	}
	return s.sel.BeginTransform(kind, p, constrain)
}

// UpdateTransform moves the transform pointer. The committed paths are not
// changed until EndTransform; Render previews the transform.
func (s *Session) UpdateTransform(x, y float64) (err error) {
	defer s.guard("update transform", &err)

	if !s.sel.Transforming() {
		return ErrNoTransform
	}
	p, err := s.drag(x, y)
	if err != nil {
		return err
	}
	_, err = s.sel.UpdateTransform(p)
	return err
}

// EndTransform bakes the transform into the selected paths as one undo step.
func (s *Session) EndTransform() (err error) {
	defer s.guard("end transform", &err)

	leaves := s.sel.Leaves()
	start := make(map[string]float64, len(leaves))
	for _, id := range leaves {
		if b, ok := s.sel.TransformStart(id); ok {
			start[id] = b.Rotation
		}
	}
	m, ok := s.sel.EndTransform()
	if !ok {
		return ErrNoTransform
	}
	if m.IsIdentity() || len(leaves) == 0 {
		return nil
	}
	before := s.capture(leaves)
	for i := range before {
		if r, ok := start[before[i].id]; ok {
			before[i].rotation = r
		}
	}
	return s.record("transform", leaves, before, func() error {
		for _, id := range leaves {
			if p, ok := s.doc.Get(id); ok {
				p.Transform(m)
				if n := bezier.LimitHandles(p); n > 0 {
					s.logger.Warn("handles shortened after transform", "path", id, "handles", n)
				}
			}
		}
		return nil
	})
}

// BeginBatch groups every following edit into a single undo step until
// EndBatch, e.g. for the updates of a drag.
func (s *Session) BeginBatch(description string) bool {
	return s.hist.Begin(description)
}

// EndBatch records the batch opened by BeginBatch.
func (s *Session) EndBatch() error {
	_, err := s.hist.Commit()
	return err
}

// Undo reverts the last undo step. It is rejected while a transform or
// batch is in progress.
func (s *Session) Undo() bool {
	if s.sel.Transforming() {
		return false
	}
	return s.hist.Undo()
}

// Redo reapplies the last undone step.
func (s *Session) Redo() bool {
	if s.sel.Transforming() {
		return false
	}
	return s.hist.Redo()
}

func (s *Session) CanUndo() bool { return s.hist.CanUndo() }

func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// Cancel discards whatever is in progress: a transform, a marquee, a draft
// path or an open batch. Committed paths are left as they were before the
// cancelled interaction. Cancelling with nothing in progress is a no-op and
// returns false.
func (s *Session) Cancel() bool {
	cancelled := s.sel.Cancel()
	if s.draft != nil {
		s.draft = nil
		cancelled = true
	}
	if s.hist.InTransaction() {
		if err := s.hist.Rollback(); err != nil {
			s.logger.Warn("rollback failed", "error", err)
		}
		cancelled = true
	}
	return cancelled
}
