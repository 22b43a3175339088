// Package snap resolves raw pointer coordinates to snapped coordinates.
//
// Grid, guide and object strategies are evaluated independently against the
// original point and the single closest candidate within tolerance wins,
// whatever its category. Angle and distance snapping are reserved and
// currently report ErrUnsupported.
package snap

import (
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"math"
	"slices"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/closset/vectorcore/internal/events"
	"github.com/closset/vectorcore/internal/geom"
)

const (
	// ThrottleWindow is how long a cached result is returned verbatim.
	ThrottleWindow = 16 * time.Millisecond

	maxCacheEntries = 512
)

// Result is a resolved pointer position. Precision is the distance to the
// snap target, or 0 when the point was not snapped.
type Result struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Precision float64 `json:"precision"`
	Snapped   bool    `json:"snapped"`
	Type      Type    `json:"snapType,omitempty"`
}

// Point returns the resolved position.
func (r Result) Point() geom.Point {
	return geom.Point{X: r.X, Y: r.Y}
}

type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Guides holds guide line positions, each list sorted ascending.
type Guides struct {
	Horizontal []float64 `json:"horizontal"`
	Vertical   []float64 `json:"vertical"`
}

// Object is a shape tracked for vertex and edge snapping.
type Object struct {
	ID     string       `json:"id"`
	Points []geom.Point `json:"points"`
	Closed bool         `json:"closed"`
	Type   string       `json:"type"`
}

func (o Object) edges() [][2]geom.Point {
	n := len(o.Points)
	if n < 2 {
		return nil
	}
	edges := make([][2]geom.Point, 0, n)
	for i := 0; i < n-1; i++ {
		edges = append(edges, [2]geom.Point{o.Points[i], o.Points[i+1]})
	}
	if o.Closed && n > 2 {
		edges = append(edges, [2]geom.Point{o.Points[n-1], o.Points[0]})
	}
	return edges
}

// Change is published whenever settings, guides or tracked objects change.
type Change struct {
	Reason   string   `json:"reason"`
	Settings Settings `json:"settings"`
}

type cacheEntry struct {
	result Result
	at     time.Time
}

// Engine is the snapping state of one editing session. It is not safe for
// concurrent use.
type Engine struct {
	settings Settings
	guides   Guides
	objects  []Object
	cache    map[[32]byte]cacheEntry

	now     func() time.Time
	logger  *slog.Logger
	changes *events.Bus[Change]
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock replaces time.Now, used for the cache throttle.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithBus publishes changes on b instead of a private bus.
func WithBus(b *events.Bus[Change]) EngineOption {
	return func(e *Engine) { e.changes = b }
}

// New creates an engine with the given base settings.
func New(settings Settings, opts ...EngineOption) *Engine {
	e := &Engine{
		settings: settings,
		cache:    make(map[[32]byte]cacheEntry),
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
		changes:  events.NewBus[Change](),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Changes returns the bus on which setting and registry changes are published.
func (e *Engine) Changes() *events.Bus[Change] {
	return e.changes
}

// Settings returns a copy of the base settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// UpdateSettings replaces the base settings and clears the cache.
func (e *Engine) UpdateSettings(s Settings) {
	e.settings = s
	e.invalidate("settings")
}

// ClearCache drops every cached result.
func (e *Engine) ClearCache() {
	clear(e.cache)
}

// CacheLen returns the number of cached results.
func (e *Engine) CacheLen() int {
	return len(e.cache)
}

func (e *Engine) invalidate(reason string) {
	e.ClearCache()
	e.changes.Publish(Change{Reason: reason, Settings: e.settings})
}

// AddGuide registers a guide line. Duplicates are ignored.
func (e *Engine) AddGuide(o Orientation, pos float64) bool {
	if math.IsNaN(pos) || math.IsInf(pos, 0) {
		return false
	}
	list := e.guideList(o)
	if list == nil {
		return false
	}
	i, found := slices.BinarySearch(*list, pos)
	if found {
		return false
	}
	*list = slices.Insert(*list, i, pos)
	e.invalidate("guides")
	return true
}

// RemoveGuide removes a guide line at exactly pos.
func (e *Engine) RemoveGuide(o Orientation, pos float64) bool {
	list := e.guideList(o)
	if list == nil {
		return false
	}
	i, found := slices.BinarySearch(*list, pos)
	if !found {
		return false
	}
	*list = slices.Delete(*list, i, i+1)
	e.invalidate("guides")
	return true
}

// Guides returns a copy of the guide registry.
func (e *Engine) Guides() Guides {
	return Guides{
		Horizontal: slices.Clone(e.guides.Horizontal),
		Vertical:   slices.Clone(e.guides.Vertical),
	}
}

func (e *Engine) guideList(o Orientation) *[]float64 {
	switch o {
	case Horizontal:
		return &e.guides.Horizontal
	case Vertical:
		return &e.guides.Vertical
	}
	return nil
}

// TrackObject registers obj for object snapping, replacing any object with
// the same id.
func (e *Engine) TrackObject(obj Object) {
	obj.Points = slices.Clone(obj.Points)
	if i := e.objectIndex(obj.ID); i >= 0 {
		e.objects[i] = obj
	} else {
		e.objects = append(e.objects, obj)
	}
	e.invalidate("objects")
}

// UntrackObject removes the object with the given id.
func (e *Engine) UntrackObject(id string) bool {
	i := e.objectIndex(id)
	if i < 0 {
		return false
	}
	e.objects = slices.Delete(e.objects, i, i+1)
	e.invalidate("objects")
	return true
}

// SetObjects replaces the whole object registry.
func (e *Engine) SetObjects(objs []Object) {
	e.objects = make([]Object, len(objs))
	for i, o := range objs {
		o.Points = slices.Clone(o.Points)
		e.objects[i] = o
	}
	e.invalidate("objects")
}

// Objects returns the number of tracked objects.
func (e *Engine) Objects() int {
	return len(e.objects)
}

func (e *Engine) objectIndex(id string) int {
	for i, o := range e.objects {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// SnapPoint resolves p against the base settings merged with opts. The
// returned point is never farther than the tolerance from p; when no
// candidate is close enough p is returned unchanged.
func (e *Engine) SnapPoint(p geom.Point, opts ...Option) Result {
	s := e.settings
	for _, opt := range opts {
		opt(&s)
	}

	unsnapped := Result{X: p.X, Y: p.Y}
	if !s.Enabled {
		return unsnapped
	}
	if !p.IsFinite() {
		e.logger.Warn("snap skipped for non-finite point", "x", p.X, "y", p.Y)
		return unsnapped
	}

	key := cacheKey(p, s)
	now := e.now()
	if entry, ok := e.cache[key]; ok && now.Sub(entry.at) < ThrottleWindow {
		return entry.result
	}

	result := e.resolve(p, s)
	if len(e.cache) >= maxCacheEntries {
		e.ClearCache()
	}
	e.cache[key] = cacheEntry{result: result, at: now}
	return result
}

func (e *Engine) resolve(p geom.Point, s Settings) Result {
	var best *candidate
	consider := func(c *candidate) {
		if c != nil && c.better(best) {
			best = c
		}
	}

	if s.SnapToGrid {
		consider(snapToGrid(p, s))
	}
	if s.SnapToGuides {
		consider(snapToGuides(p, e.guides))
	}
	if s.SnapToObjects {
		consider(snapToObjects(p, e.objects, s))
	}
	if s.SnapToAngles {
		c, err := snapToAngles(p, s)
		if err != nil {
			e.logger.Debug("snap strategy unavailable", "strategy", TypeAngle, "error", err)
		}
		consider(c)
	}
	if s.SnapToDistances {
		c, err := snapToDistances(p, s)
		if err != nil {
			e.logger.Debug("snap strategy unavailable", "strategy", TypeDistance, "error", err)
		}
		consider(c)
	}

	if best == nil || !(best.distance <= s.Tolerance) {
		return Result{X: p.X, Y: p.Y}
	}
	return Result{
		X:         best.point.X,
		Y:         best.point.Y,
		Precision: best.distance,
		Snapped:   true,
		Type:      best.typ,
	}
}

// cacheKey hashes the rounded pointer position together with the effective
// settings.
func cacheKey(p geom.Point, s Settings) [32]byte {
	buf, err := json.Marshal(s)
	if err != nil {
		buf = nil
	}
	for _, x := range s.Exclude {
		buf = append(buf, x.ObjectID...)
		buf = binary.AppendVarint(buf, int64(x.Index))
	}
	r := p.Round()
	buf = binary.AppendVarint(buf, int64(r.X))
	buf = binary.AppendVarint(buf, int64(r.Y))
	return blake2b.Sum256(buf)
}
