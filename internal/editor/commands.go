package editor

import (
	"slices"

	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/selection"
	"github.com/closset/vectorcore/internal/snap"
)

// pathState is a deep snapshot of one path, its z-index and the rotation
// accumulated on its selectable element. A nil path means the path does not
// exist in that state.
type pathState struct {
	id       string
	index    int
	path     *document.VectorPath
	rotation float64
}

// snapshotCommand swaps whole-path snapshots in and out of the document.
// It never holds a live reference to a document path. A fresh command was
// recorded after the change was made, so its first Execute is a no-op.
type snapshotCommand struct {
	s      *Session
	desc   string
	before []pathState
	after  []pathState
	fresh  bool
}

func (c *snapshotCommand) Execute() error {
	if c.fresh {
		c.fresh = false
		return nil
	}
	c.s.apply(c.after)
	return nil
}

func (c *snapshotCommand) Undo() error {
	c.s.apply(c.before)
	return nil
}

func (c *snapshotCommand) Description() string { return c.desc }

func (c *snapshotCommand) Size() int {
	n := 0
	for _, st := range c.before {
		n += st.path.Size()
	}
	for _, st := range c.after {
		n += st.path.Size()
	}
	return n
}

func (s *Session) capture(ids []string) []pathState {
	states := make([]pathState, 0, len(ids))
	for _, id := range ids {
		st := pathState{id: id, index: s.doc.IndexOf(id)}
		if p, ok := s.doc.Get(id); ok {
			st.path = p.Clone()
		}
		if e, ok := s.sel.Element(id); ok {
			st.rotation = e.Bounds.Rotation
		}
		states = append(states, st)
	}
	return states
}

// apply puts every snapshot back into the document. Removals run first so
// recorded z-indexes refer to the document without the removed paths.
func (s *Session) apply(states []pathState) {
	for _, st := range states {
		s.doc.Remove(st.id)
	}
	ordered := slices.Clone(states)
	slices.SortStableFunc(ordered, func(a, b pathState) int { return a.index - b.index })
	for _, st := range ordered {
		if st.path != nil {
			s.doc.Insert(st.index, st.path.Clone())
		}
	}
	ids := make([]string, len(states))
	for i, st := range states {
		ids[i] = st.id
	}
	s.sync()
	s.rotate(states)
	s.changes.Publish(Change{Op: "apply", PathIDs: ids})
}

// mutate runs fn against the live document and records the difference for
// the given paths as one undoable command. If fn fails the paths are
// restored.
func (s *Session) mutate(desc string, ids []string, fn func() error) error {
	return s.record(desc, ids, s.capture(ids), fn)
}

// record is mutate with a caller-provided before state.
func (s *Session) record(desc string, ids []string, before []pathState, fn func() error) error {
	if err := fn(); err != nil {
		s.restore(before)
		return err
	}
	cmd := &snapshotCommand{s: s, desc: desc, before: before, after: s.capture(ids), fresh: true}
	if !s.hist.Execute(cmd) {
		s.restore(before)
		return ErrHistory
	}
	s.sync()
	s.logger.Debug("document changed", "op", desc, "paths", ids)
	s.changes.Publish(Change{Op: desc, PathIDs: ids})
	return nil
}

func (s *Session) restore(states []pathState) {
	for _, st := range states {
		s.doc.Remove(st.id)
	}
	for _, st := range states {
		if st.path != nil {
			s.doc.Insert(st.index, st.path)
		}
	}
	s.sync()
	s.rotate(states)
}

// rotate puts the recorded element rotations back.
func (s *Session) rotate(states []pathState) {
	for _, st := range states {
		if st.path != nil {
			s.sel.SetRotation(st.id, st.rotation)
		}
	}
}

// sync refreshes the selectable elements and the snap objects from the
// document. Rotation accumulated by rotate transforms is kept per element.
func (s *Session) sync() {
	elems := make([]selection.Element, 0, len(s.doc.Paths))
	objects := make([]snap.Object, 0, len(s.doc.Paths))
	for _, p := range s.doc.Paths {
		e := selection.Element{ID: p.ID, Bounds: p.Bounds}
		if old, ok := s.sel.Element(p.ID); ok {
			e.Bounds.Rotation = old.Bounds.Rotation
			e.Locked = old.Locked
		}
		elems = append(elems, e)
		objects = append(objects, snap.Object{ID: p.ID, Points: p.Anchors(), Closed: p.Closed, Type: "path"})
	}
	s.sel.SetElements(elems)
	s.snap.SetObjects(objects)
}
