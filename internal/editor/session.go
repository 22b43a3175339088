// Package editor runs an editing session over one vector document.
//
// A Session owns the document, the snap engine, the selection manager and
// the undo buffer, and wires them in the order pointer input flows through
// them: snap, hit test, mutation, control point recompute, selection bounds,
// history. Sessions are explicitly constructed and not safe for concurrent
// use; transports serialize access.
package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/closset/vectorcore/internal/bezier"
	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/events"
	"github.com/closset/vectorcore/internal/geom"
	"github.com/closset/vectorcore/internal/history"
	"github.com/closset/vectorcore/internal/hittest"
	"github.com/closset/vectorcore/internal/render"
	"github.com/closset/vectorcore/internal/selection"
	"github.com/closset/vectorcore/internal/snap"
)

var (
	ErrPathNotFound    = errors.New("path not found")
	ErrPointOutOfRange = errors.New("point index out of range")
	ErrPointLocked     = errors.New("point is locked")
	ErrInvalidHandle   = errors.New("invalid handle")
	ErrInvalidPoint    = errors.New("coordinates must be finite")
	ErrDrafting        = errors.New("a path is already being drawn")
	ErrNoDraft         = errors.New("no path is being drawn")
	ErrDraftTooShort   = errors.New("a path needs at least two anchors")
	ErrNoEdge          = errors.New("no path edge under the pointer")
	ErrNoSelection     = errors.New("nothing selected")
	ErrNoTransform     = errors.New("no transform in progress")
	ErrHistory         = errors.New("history rejected the change")
)

type Options struct {
	Snap        snap.Settings
	Hit         hittest.Options
	Constraints bezier.Constraints
	History     history.Options
	Logger      *slog.Logger
	Now         func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Snap:        snap.DefaultSettings(),
		Hit:         hittest.DefaultOptions(),
		Constraints: bezier.DefaultConstraints(),
		History:     history.DefaultOptions(),
	}
}

// Change is published after every committed document change, including undo
// and redo.
type Change struct {
	Op      string   `json:"op"`
	PathIDs []string `json:"pathIds,omitempty"`
}

type Session struct {
	doc *document.Document

	snap     *snap.Engine
	sel      *selection.Manager
	hist     *history.Buffer
	renderer *render.Renderer

	draft *document.VectorPath

	opts    Options
	logger  *slog.Logger
	changes *events.Bus[Change]
}

// NewSession creates a session over an empty document.
func NewSession(docID string, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	hopts := opts.History
	hopts.Logger = logger
	hopts.Now = now

	s := &Session{
		doc:      document.NewDocument(docID, "Untitled"),
		snap:     snap.New(opts.Snap, snap.WithLogger(logger), snap.WithClock(now)),
		sel:      selection.NewManager(selection.WithLogger(logger)),
		hist:     history.New(hopts),
		renderer: render.NewRenderer(),
		opts:     opts,
		logger:   logger,
		changes:  events.NewBus[Change](),
	}
	return s
}

// Changes returns the bus on which document changes are published.
func (s *Session) Changes() *events.Bus[Change] { return s.changes }

// Snap returns the snap engine, for guide and settings management.
func (s *Session) Snap() *snap.Engine { return s.snap }

// Selection returns the selection manager.
func (s *Session) Selection() *selection.Manager { return s.sel }

// History returns the undo buffer.
func (s *Session) History() *history.Buffer { return s.hist }

// LoadDocument replaces the document with one decoded from JSON. Paths are
// validated and repaired; history and selection are reset.
func (s *Session) LoadDocument(data []byte) (warnings []string, err error) {
	defer s.guard("load document", &err)

	doc, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	for _, p := range doc.Paths {
		v := bezier.ValidateAndRepair(p.Points)
		for _, w := range v.Warnings {
			warnings = append(warnings, fmt.Sprintf("path %s: %s", p.ID, w))
		}
		if !v.IsValid {
			return warnings, fmt.Errorf("path %s: %v", p.ID, v.Errors)
		}
		p.SetPoints(v.Repaired)
	}
	s.replace(doc)
	return warnings, nil
}

// LoadSampleDocument replaces the document with the built-in sample.
func (s *Session) LoadSampleDocument() {
	s.replace(document.NewSampleDocument(s.doc.ID))
}

func (s *Session) replace(doc *document.Document) {
	s.doc = doc
	s.draft = nil
	s.sel.Cancel()
	s.sel.Clear()
	s.hist.Clear()
	s.renderer.Cache().Clear()
	s.sync()
	s.changes.Publish(Change{Op: "load"})
	s.logger.Info("document loaded", "doc", doc.ID, "paths", len(doc.Paths))
}

// Document returns a deep copy of the document.
func (s *Session) Document() *document.Document {
	return s.doc.Clone()
}

// DocumentJSON returns the document as JSON.
func (s *Session) DocumentJSON() string {
	data, err := json.Marshal(s.doc)
	if err != nil {
		s.logger.Warn("encode document", "error", err)
		return "{}"
	}
	return string(data)
}

// Render returns the draw commands for the document and the editing
// overlays as JSON.
func (s *Session) Render() string {
	leaves := s.sel.Leaves()
	opts := render.Options{Selected: leaves, Draft: s.draft}
	if s.sel.Transforming() {
		opts.Transform = s.sel.Matrix()
		opts.Transformed = leaves
	}
	if b, ok := s.sel.CombinedBounds(); ok {
		opts.Bounds = &b
	}
	if m, ok := s.sel.Marquee(); ok {
		opts.Marquee = &m
	}
	out, err := render.ToJSON(s.renderer.Compile(s.doc, opts))
	if err != nil {
		s.logger.Warn("encode draw commands", "error", err)
	}
	return out
}

// SetZoom sets the canvas zoom used to scale hit targets.
func (s *Session) SetZoom(zoom float64) {
	if zoom > 0 {
		s.opts.Hit.Zoom = zoom
	}
}

// SnapPoint resolves a pointer position with the session's snap settings.
func (s *Session) SnapPoint(x, y float64) snap.Result {
	return s.snap.SnapPoint(geom.Pt(x, y))
}

// HitTest finds the anchor, handle or edge under the pointer.
func (s *Session) HitTest(x, y float64) hittest.Result {
	return hittest.Detect(geom.Pt(x, y), s.doc.Paths, s.opts.Hit)
}

// place snaps a position used to create or drop geometry. Placements always
// snap; drags snap only with magnetic snapping.
func (s *Session) place(x, y float64) (geom.Point, error) {
	p := geom.Pt(x, y)
	if !p.IsFinite() {
		return p, ErrInvalidPoint
	}
	return s.snap.SnapPoint(p).Point(), nil
}

// drag snaps a pointer position during a drag. opts usually exclude the
// dragged anchor so it does not snap to its own stale position.
func (s *Session) drag(x, y float64, opts ...snap.Option) (geom.Point, error) {
	p := geom.Pt(x, y)
	if !p.IsFinite() {
		return p, ErrInvalidPoint
	}
	if !s.snap.Settings().MagneticSnap {
		return p, nil
	}
	return s.snap.SnapPoint(p, opts...).Point(), nil
}

// guard converts a panic in an operation into an error so a single bad
// operation never takes down the editing loop.
func (s *Session) guard(op string, err *error) {
	if r := recover(); r != nil {
		s.logger.Error("editor operation panicked", "op", op, "panic", r)
		if err != nil {
			*err = fmt.Errorf("%s: internal error: %v", op, r)
		}
	}
}
