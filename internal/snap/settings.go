package snap

// Settings control which strategies SnapPoint evaluates and how far a
// candidate may be from the pointer.
type Settings struct {
	Enabled           bool    `json:"enabled"`
	Tolerance         float64 `json:"tolerance"`
	SnapToGrid        bool    `json:"snapToGrid"`
	SnapToGuides      bool    `json:"snapToGuides"`
	SnapToObjects     bool    `json:"snapToObjects"`
	SnapToAngles      bool    `json:"snapToAngles"`
	SnapToDistances   bool    `json:"snapToDistances"`
	GridSize          float64 `json:"gridSize"`
	GridSubdivisions  int     `json:"gridSubdivisions"`
	AngleIncrement    float64 `json:"angleIncrement"`
	DistanceIncrement float64 `json:"distanceIncrement"`
	// MagneticSnap makes editors snap continuously while dragging instead of
	// only when a point is placed or released.
	MagneticSnap bool `json:"magneticSnap"`

	// Exclude lists object vertices ignored by object snapping, for
	// example the anchor being dragged. It is set per call with Excluding.
	Exclude []Exclusion `json:"-"`
}

// Exclusion names vertex Index of the tracked object ObjectID. The vertex
// and the edges that meet it are skipped.
type Exclusion struct {
	ObjectID string
	Index    int
}

func (s Settings) excludes(objectID string, i int) bool {
	for _, x := range s.Exclude {
		if x.ObjectID == objectID && x.Index == i {
			return true
		}
	}
	return false
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		Enabled:           true,
		Tolerance:         5,
		SnapToGrid:        true,
		SnapToGuides:      true,
		SnapToObjects:     true,
		GridSize:          20,
		AngleIncrement:    15,
		DistanceIncrement: 10,
		MagneticSnap:      true,
	}
}

// gridStep returns the spacing of grid intersections, honouring subdivisions.
func (s Settings) gridStep() float64 {
	if s.GridSubdivisions > 1 {
		return s.GridSize / float64(s.GridSubdivisions)
	}
	return s.GridSize
}

// Option overrides settings for a single SnapPoint call.
type Option func(*Settings)

// WithSettings replaces the base settings entirely.
func WithSettings(s Settings) Option {
	return func(dst *Settings) { *dst = s }
}

// WithTolerance overrides the snap tolerance.
func WithTolerance(tolerance float64) Option {
	return func(s *Settings) { s.Tolerance = tolerance }
}

// WithGrid enables or disables grid snapping.
func WithGrid(enabled bool) Option {
	return func(s *Settings) { s.SnapToGrid = enabled }
}

// WithGuides enables or disables guide snapping.
func WithGuides(enabled bool) Option {
	return func(s *Settings) { s.SnapToGuides = enabled }
}

// WithObjects enables or disables object snapping.
func WithObjects(enabled bool) Option {
	return func(s *Settings) { s.SnapToObjects = enabled }
}

// Excluding skips vertex index of object id, and the edges that meet it,
// when snapping to objects.
func Excluding(id string, index int) Option {
	return func(s *Settings) {
		s.Exclude = append(s.Exclude[:len(s.Exclude):len(s.Exclude)], Exclusion{ObjectID: id, Index: index})
	}
}

// Disabled turns snapping off for the call.
func Disabled() Option {
	return func(s *Settings) { s.Enabled = false }
}
