// Package selection tracks which elements are selected and runs transform
// sessions over them.
//
// Selection and transforming are independent state machines. A marquee goes
// idle → selecting → idle; a transform goes idle → transforming → idle. Only
// one transform session may be active at a time.
package selection

import (
	"errors"
	"log/slog"
	"math"
	"slices"

	"github.com/closset/vectorcore/internal/events"
	"github.com/closset/vectorcore/internal/geom"
	"github.com/closset/vectorcore/internal/typeid"
)

var (
	ErrNoTransform      = errors.New("no transform in progress")
	ErrSkewUnsupported  = errors.New("skew transform not supported")
	ErrUnknownTransform = errors.New("unknown transform kind")
)

type Mode string

const (
	Replace   Mode = "replace"
	Add       Mode = "add"
	Subtract  Mode = "subtract"
	Intersect Mode = "intersect"
)

type Kind string

const (
	Move   Kind = "move"
	Scale  Kind = "scale"
	Rotate Kind = "rotate"
	Skew   Kind = "skew"
)

// Element is a selectable item. Groups are elements with children; their
// bounds are the union of their children at grouping time.
type Element struct {
	ID       string    `json:"id"`
	Bounds   geom.Rect `json:"bounds"`
	Children []string  `json:"children,omitempty"`
	Parent   string    `json:"parent,omitempty"`
	Locked   bool      `json:"locked,omitempty"`
}

// IsGroup reports whether e groups other elements.
func (e Element) IsGroup() bool {
	return len(e.Children) > 0
}

// Session is an active transform. Origin is the center of the combined
// bounds at transform start and stays fixed for the whole session.
type Session struct {
	Kind      Kind       `json:"kind"`
	Origin    geom.Point `json:"origin"`
	Start     geom.Point `json:"start"`
	Current   geom.Point `json:"current"`
	Constrain bool       `json:"constrain"`
	Box       geom.Rect  `json:"box"`
}

// Changed is published whenever the selection or the selected bounds change.
type Changed struct {
	Selected []string  `json:"selected"`
	Bounds   geom.Rect `json:"bounds"`
}

type marquee struct {
	start, current geom.Point
}

// Manager owns selection state for one editing session. It is not safe for
// concurrent use.
type Manager struct {
	elements map[string]*Element
	order    []string
	selected []string

	marquee  *marquee
	session  *Session
	snapshot map[string]geom.Rect

	logger *slog.Logger
	bus    *events.Bus[Changed]
	newID  func() string
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithBus publishes selection changes on b.
func WithBus(b *events.Bus[Changed]) Option {
	return func(m *Manager) { m.bus = b }
}

// WithIDs replaces the group id generator.
func WithIDs(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		elements: make(map[string]*Element),
		logger:   slog.New(slog.DiscardHandler),
		bus:      events.NewBus[Changed](),
		newID:    typeid.NewGroupID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Changes returns the bus on which selection changes are published.
func (m *Manager) Changes() *events.Bus[Changed] {
	return m.bus
}

// SetElements replaces the selectable elements. Existing groups survive as
// long as at least two of their children are still present; selected ids
// that no longer exist are dropped.
func (m *Manager) SetElements(elems []Element) {
	groups := make([]Element, 0)
	for _, id := range m.order {
		if e := m.elements[id]; e.IsGroup() {
			groups = append(groups, *e)
		}
	}

	m.elements = make(map[string]*Element, len(elems)+len(groups))
	m.order = m.order[:0]
	for _, e := range elems {
		e.Parent = ""
		m.put(e)
	}
	for _, g := range groups {
		children := slices.DeleteFunc(slices.Clone(g.Children), func(id string) bool {
			_, ok := m.elements[id]
			return !ok
		})
		if len(children) < 2 {
			continue
		}
		g.Children = children
		g.Bounds = m.unionOf(children)
		for _, id := range children {
			m.elements[id].Parent = g.ID
		}
		m.put(g)
	}

	before := len(m.selected)
	m.selected = slices.DeleteFunc(m.selected, func(id string) bool {
		_, ok := m.elements[id]
		return !ok
	})
	if len(m.selected) != before {
		m.publish()
	}
}

func (m *Manager) put(e Element) {
	if _, ok := m.elements[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	m.elements[e.ID] = &e
}

// Element returns a copy of the element with the given id.
func (m *Manager) Element(id string) (Element, bool) {
	e, ok := m.elements[id]
	if !ok {
		return Element{}, false
	}
	c := *e
	c.Children = slices.Clone(e.Children)
	return c, true
}

// Selected returns the selected ids in selection order.
func (m *Manager) Selected() []string {
	return slices.Clone(m.selected)
}

// IsSelected reports whether id is selected.
func (m *Manager) IsSelected(id string) bool {
	return slices.Contains(m.selected, id)
}

// Leaves returns the selected ids with groups expanded into their children.
func (m *Manager) Leaves() []string {
	var out []string
	var walk func(id string)
	walk = func(id string) {
		e, ok := m.elements[id]
		if !ok {
			return
		}
		if !e.IsGroup() {
			if !slices.Contains(out, id) {
				out = append(out, id)
			}
			return
		}
		for _, c := range e.Children {
			walk(c)
		}
	}
	for _, id := range m.selected {
		walk(id)
	}
	return out
}

// SelectElement applies mode to the selection with the single element id.
// Unknown and locked elements are rejected.
func (m *Manager) SelectElement(id string, mode Mode) bool {
	e, ok := m.elements[id]
	if !ok || e.Locked {
		return false
	}
	return m.apply([]string{id}, mode)
}

// Clear deselects everything.
func (m *Manager) Clear() {
	if len(m.selected) == 0 {
		return
	}
	m.selected = nil
	m.publish()
}

func (m *Manager) apply(ids []string, mode Mode) bool {
	var next []string
	switch mode {
	case Replace, "":
		next = slices.Clone(ids)
	case Add:
		next = slices.Clone(m.selected)
		for _, id := range ids {
			if !slices.Contains(next, id) {
				next = append(next, id)
			}
		}
	case Subtract:
		next = slices.DeleteFunc(slices.Clone(m.selected), func(id string) bool {
			return slices.Contains(ids, id)
		})
	case Intersect:
		next = slices.DeleteFunc(slices.Clone(m.selected), func(id string) bool {
			return !slices.Contains(ids, id)
		})
	default:
		m.logger.Warn("unknown selection mode", "mode", mode)
		return false
	}
	changed := !slices.Equal(next, m.selected)
	m.selected = next
	if changed {
		m.publish()
	}
	return true
}

// BeginMarquee starts a rubber-band selection. It is rejected while a
// transform is active.
func (m *Manager) BeginMarquee(p geom.Point) bool {
	if m.session != nil || !p.IsFinite() {
		return false
	}
	m.marquee = &marquee{start: p, current: p}
	return true
}

// UpdateMarquee moves the free corner of the marquee.
func (m *Manager) UpdateMarquee(p geom.Point) bool {
	if m.marquee == nil || !p.IsFinite() {
		return false
	}
	m.marquee.current = p
	return true
}

// Marquee returns the current marquee rectangle.
func (m *Manager) Marquee() (geom.Rect, bool) {
	if m.marquee == nil {
		return geom.Rect{}, false
	}
	return geom.RectFromPoints(m.marquee.start, m.marquee.current), true
}

// EndMarquee combines every top-level, unlocked element overlapping the
// marquee with the selection using mode and returns the new selection.
func (m *Manager) EndMarquee(mode Mode) []string {
	r, ok := m.Marquee()
	if !ok {
		return m.Selected()
	}
	m.marquee = nil

	var hits []string
	for _, id := range m.order {
		e := m.elements[id]
		if e.Locked || e.Parent != "" {
			continue
		}
		if e.Bounds.Intersects(r) {
			hits = append(hits, id)
		}
	}
	m.apply(hits, mode)
	return m.Selected()
}

// CombinedBounds returns the union of the selected elements' bounds.
func (m *Manager) CombinedBounds() (geom.Rect, bool) {
	if len(m.selected) == 0 {
		return geom.Rect{}, false
	}
	return m.unionOf(m.selected), true
}

func (m *Manager) unionOf(ids []string) geom.Rect {
	rects := make([]geom.Rect, 0, len(ids))
	for _, id := range ids {
		if e, ok := m.elements[id]; ok {
			rects = append(rects, e.Bounds)
		}
	}
	r, _ := geom.UnionAll(rects)
	return r
}

// Group combines the selected elements into a new group element and selects
// it. At least two elements must be selected.
func (m *Manager) Group() (string, bool) {
	if len(m.selected) < 2 || m.session != nil {
		return "", false
	}
	g := Element{
		ID:       m.newID(),
		Bounds:   m.unionOf(m.selected),
		Children: slices.Clone(m.selected),
	}
	for _, id := range g.Children {
		m.elements[id].Parent = g.ID
	}
	m.put(g)
	m.selected = []string{g.ID}
	m.publish()
	m.logger.Debug("group created", "group", g.ID, "children", len(g.Children))
	return g.ID, true
}

// Ungroup dissolves the group id and selects its children.
func (m *Manager) Ungroup(id string) bool {
	g, ok := m.elements[id]
	if !ok || !g.IsGroup() || m.session != nil {
		return false
	}
	for _, c := range g.Children {
		if e, ok := m.elements[c]; ok {
			e.Parent = g.Parent
		}
	}
	delete(m.elements, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	m.selected = slices.Clone(g.Children)
	m.publish()
	return true
}

// Groups returns copies of every group element.
func (m *Manager) Groups() []Element {
	var out []Element
	for _, id := range m.order {
		if e, _ := m.Element(id); e.IsGroup() {
			out = append(out, e)
		}
	}
	return out
}

// Transforming reports whether a transform session is active.
func (m *Manager) Transforming() bool {
	return m.session != nil
}

// Session returns a copy of the active transform session.
func (m *Manager) Session() (Session, bool) {
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// BeginTransform starts a transform of the selection. It is rejected when a
// transform is already active or nothing is selected.
func (m *Manager) BeginTransform(kind Kind, start geom.Point, constrain bool) bool {
	if m.session != nil || len(m.selected) == 0 || !start.IsFinite() {
		return false
	}
	switch kind {
	case Move, Scale, Rotate, Skew:
	default:
		return false
	}
	box, _ := m.CombinedBounds()
	m.session = &Session{
		Kind:      kind,
		Origin:    box.Center(),
		Start:     start,
		Current:   start,
		Constrain: constrain,
		Box:       box,
	}
	m.snapshot = make(map[string]geom.Rect)
	for _, id := range m.affected() {
		m.snapshot[id] = m.elements[id].Bounds
	}
	m.marquee = nil
	return true
}

// affected returns the selected ids plus every descendant of a selected group.
func (m *Manager) affected() []string {
	out := slices.Clone(m.selected)
	for i := 0; i < len(out); i++ {
		if e, ok := m.elements[out[i]]; ok {
			for _, c := range e.Children {
				if !slices.Contains(out, c) {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// UpdateTransform moves the pointer of the active session to current and
// updates the affected bounds from their state at transform start. Pointer
// positions that would scale the selection to zero width or height are
// ignored. It returns
// the matrix mapping start geometry to current geometry.
func (m *Manager) UpdateTransform(current geom.Point) (geom.Matrix, error) {
	s := m.session
	if s == nil {
		return geom.Identity(), ErrNoTransform
	}
	if !current.IsFinite() {
		return m.Matrix(), nil
	}
	next := *s
	next.Current = current
	mat, err := m.matrixFor(next)
	if err != nil {
		return geom.Identity(), err
	}
	// a zero scale would flatten the selection beyond recovery
	if math.Abs(mat.Determinant()) < geom.Epsilon {
		return m.Matrix(), nil
	}
	s.Current = current
	angle := 0.0
	if s.Kind == Rotate {
		angle = rotation(*s)
	}
	for id, b := range m.snapshot {
		if e, ok := m.elements[id]; ok {
			e.Bounds = transformBounds(b, mat, angle)
		}
	}
	return mat, nil
}

// Matrix returns the matrix of the active session, or identity.
func (m *Manager) Matrix() geom.Matrix {
	if m.session == nil {
		return geom.Identity()
	}
	mat, err := m.matrixFor(*m.session)
	if err != nil {
		return geom.Identity()
	}
	return mat
}

// TransformStart returns the bounds an element had when the active transform
// began.
func (m *Manager) TransformStart(id string) (geom.Rect, bool) {
	b, ok := m.snapshot[id]
	return b, ok
}

// SetRotation sets the accumulated rotation of an element.
func (m *Manager) SetRotation(id string, r float64) bool {
	e, ok := m.elements[id]
	if !ok {
		return false
	}
	e.Bounds.Rotation = r
	return true
}

// EndTransform commits the active session and returns its final matrix.
func (m *Manager) EndTransform() (geom.Matrix, bool) {
	if m.session == nil {
		return geom.Identity(), false
	}
	mat := m.Matrix()
	m.session = nil
	m.snapshot = nil
	m.publish()
	return mat, true
}

// Cancel discards the active transform, restoring the bounds it changed, and
// any marquee in progress. Calling it with nothing active is a no-op.
func (m *Manager) Cancel() bool {
	cancelled := m.marquee != nil
	m.marquee = nil
	if m.session != nil {
		for id, b := range m.snapshot {
			if e, ok := m.elements[id]; ok {
				e.Bounds = b
			}
		}
		m.session = nil
		m.snapshot = nil
		cancelled = true
	}
	return cancelled
}

func (m *Manager) matrixFor(s Session) (geom.Matrix, error) {
	d := s.Current.Sub(s.Start)
	switch s.Kind {
	case Move:
		return geom.Translate(d.X, d.Y), nil
	case Scale:
		sx, sy := scaleFactors(s.Box, d, s.Constrain)
		return geom.About(s.Origin, geom.Scale(sx, sy)), nil
	case Rotate:
		return geom.About(s.Origin, geom.Rotate(rotation(s))), nil
	case Skew:
		return geom.Identity(), ErrSkewUnsupported
	}
	return geom.Identity(), ErrUnknownTransform
}

// scaleFactors derives per-axis scale from the pointer delta relative to the
// box size. A degenerate axis keeps scale 1.
func scaleFactors(box geom.Rect, d geom.Point, constrain bool) (float64, float64) {
	sx, sy := 1.0, 1.0
	if box.Width > geom.Epsilon {
		sx = 1 + d.X/box.Width
	}
	if box.Height > geom.Epsilon {
		sy = 1 + d.Y/box.Height
	}
	if constrain {
		s := math.Max(sx, sy)
		sx, sy = s, s
	}
	return sx, sy
}

// rotation is the angle of the pointer delta, atan2(dy, dx).
func rotation(s Session) float64 {
	d := s.Current.Sub(s.Start)
	if d.X == 0 && d.Y == 0 {
		return 0
	}
	return math.Atan2(d.Y, d.X)
}

// transformBounds maps b through mat. For rotations the box keeps its size,
// its center follows the matrix and the angle accumulates onto Rotation.
func transformBounds(b geom.Rect, mat geom.Matrix, angle float64) geom.Rect {
	if angle == 0 {
		r := mat.TransformRect(b)
		r.Rotation = b.Rotation
		return r
	}
	c := mat.TransformPoint(b.Center())
	return geom.Rect{
		X:        c.X - b.Width/2,
		Y:        c.Y - b.Height/2,
		Width:    b.Width,
		Height:   b.Height,
		Rotation: b.Rotation + angle,
	}
}

func (m *Manager) publish() {
	b, _ := m.CombinedBounds()
	m.bus.Publish(Changed{Selected: m.Selected(), Bounds: b})
}
