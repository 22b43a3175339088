// Package ops invokes editor session operations by name with JSON
// arguments, for transports that cannot call the session directly.
package ops

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/editor"
	"github.com/closset/vectorcore/internal/selection"
	"github.com/closset/vectorcore/internal/snap"
)

var (
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrRejected is returned for operations the session declined without a
	// more specific error, such as an undo with nothing to undo.
	ErrRejected = errors.New("operation rejected")
)

// Operation invokes one editor operation by name with JSON arguments.
type Operation struct {
	ID   string          `json:"id"`
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Args is the union of the arguments of every operation; each
// operation reads the fields it needs.
type Args struct {
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	PathID      string          `json:"pathId"`
	Index       int             `json:"index"`
	Type        string          `json:"type"`
	Handle      string          `json:"handle"`
	Closed      bool            `json:"closed"`
	Locked      bool            `json:"locked"`
	ID          string          `json:"id"`
	Mode        string          `json:"mode"`
	Kind        string          `json:"kind"`
	Constrain   bool            `json:"constrain"`
	Description string          `json:"description"`
	Orientation string          `json:"orientation"`
	Position    float64         `json:"position"`
	Zoom        float64         `json:"zoom"`
	Settings    json.RawMessage `json:"settings,omitempty"`
	Document    json.RawMessage `json:"document,omitempty"`
}

type opFunc func(s *editor.Session, a Args) (any, error)

var operations = map[string]opFunc{
	// pen tool
	"path.begin": func(s *editor.Session, a Args) (any, error) {
		return nil, s.BeginPath(a.X, a.Y, document.PointType(a.Type))
	},
	"path.add": func(s *editor.Session, a Args) (any, error) {
		return s.AddAnchor(a.X, a.Y, document.PointType(a.Type))
	},
	"path.finish": func(s *editor.Session, a Args) (any, error) {
		id, err := s.FinishPath(a.Closed)
		return map[string]string{"pathId": id}, err
	},
	"path.delete": func(s *editor.Session, a Args) (any, error) {
		return nil, s.DeletePath(a.PathID)
	},

	// anchors
	"anchor.insert": func(s *editor.Session, a Args) (any, error) {
		id, i, err := s.InsertAnchor(a.X, a.Y)
		return map[string]any{"pathId": id, "index": i}, err
	},
	"anchor.move": func(s *editor.Session, a Args) (any, error) {
		return nil, s.MoveAnchor(a.PathID, a.Index, a.X, a.Y)
	},
	"anchor.remove": func(s *editor.Session, a Args) (any, error) {
		return nil, s.RemoveAnchor(a.PathID, a.Index)
	},
	"anchor.convert": func(s *editor.Session, a Args) (any, error) {
		return s.ConvertAnchor(a.PathID, a.Index, document.PointType(a.Type))
	},
	"anchor.lock": func(s *editor.Session, a Args) (any, error) {
		return nil, s.SetLocked(a.PathID, a.Index, a.Locked)
	},
	"handle.move": func(s *editor.Session, a Args) (any, error) {
		return nil, s.MoveHandle(a.PathID, a.Index, document.Handle(a.Handle), a.X, a.Y)
	},

	// selection
	"select": func(s *editor.Session, a Args) (any, error) {
		return s.Selected(), accepted(s.Select(a.ID, selection.Mode(a.Mode)))
	},
	"select.at": func(s *editor.Session, a Args) (any, error) {
		return s.SelectAt(a.X, a.Y, selection.Mode(a.Mode)), nil
	},
	"marquee.begin": func(s *editor.Session, a Args) (any, error) {
		return nil, accepted(s.BeginMarquee(a.X, a.Y))
	},
	"marquee.update": func(s *editor.Session, a Args) (any, error) {
		return nil, accepted(s.UpdateMarquee(a.X, a.Y))
	},
	"marquee.end": func(s *editor.Session, a Args) (any, error) {
		return s.EndMarquee(selection.Mode(a.Mode)), nil
	},
	"group": func(s *editor.Session, a Args) (any, error) {
		id, ok := s.Group()
		return map[string]string{"groupId": id}, accepted(ok)
	},
	"ungroup": func(s *editor.Session, a Args) (any, error) {
		return nil, accepted(s.Ungroup(a.ID))
	},

	// transforms
	"transform.begin": func(s *editor.Session, a Args) (any, error) {
		return nil, accepted(s.BeginTransform(selection.Kind(a.Kind), a.X, a.Y, a.Constrain))
	},
	"transform.update": func(s *editor.Session, a Args) (any, error) {
		return nil, s.UpdateTransform(a.X, a.Y)
	},
	"transform.end": func(s *editor.Session, a Args) (any, error) {
		return nil, s.EndTransform()
	},

	// history
	"batch.begin": func(s *editor.Session, a Args) (any, error) {
		return nil, accepted(s.BeginBatch(a.Description))
	},
	"batch.end": func(s *editor.Session, a Args) (any, error) {
		return nil, s.EndBatch()
	},
	"undo": func(s *editor.Session, a Args) (any, error) {
		return nil, accepted(s.Undo())
	},
	"redo": func(s *editor.Session, a Args) (any, error) {
		return nil, accepted(s.Redo())
	},
	"cancel": func(s *editor.Session, a Args) (any, error) {
		return s.Cancel(), nil
	},

	// canvas
	"hit": func(s *editor.Session, a Args) (any, error) {
		return s.HitTest(a.X, a.Y), nil
	},
	"snap": func(s *editor.Session, a Args) (any, error) {
		return s.SnapPoint(a.X, a.Y), nil
	},
	"snap.settings": func(s *editor.Session, a Args) (any, error) {
		settings := s.Snap().Settings()
		if len(a.Settings) > 0 {
			if err := json.Unmarshal(a.Settings, &settings); err != nil {
				return nil, fmt.Errorf("decode settings: %w", err)
			}
			s.Snap().UpdateSettings(settings)
		}
		return settings, nil
	},
	"guide.add": func(s *editor.Session, a Args) (any, error) {
		return nil, accepted(s.Snap().AddGuide(snap.Orientation(a.Orientation), a.Position))
	},
	"guide.remove": func(s *editor.Session, a Args) (any, error) {
		return nil, accepted(s.Snap().RemoveGuide(snap.Orientation(a.Orientation), a.Position))
	},
	"zoom": func(s *editor.Session, a Args) (any, error) {
		s.SetZoom(a.Zoom)
		return nil, nil
	},
	"render": func(s *editor.Session, a Args) (any, error) {
		return json.RawMessage(s.Render()), nil
	},

	// documents
	"document.load": func(s *editor.Session, a Args) (any, error) {
		return s.LoadDocument(a.Document)
	},
	"document.sample": func(s *editor.Session, a Args) (any, error) {
		s.LoadSampleDocument()
		return nil, nil
	},
}

// Names lists every operation, sorted.
func Names() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Apply runs op against the session. Panics are returned as errors.
func Apply(s *editor.Session, op Operation) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("operation %s panicked: %v", op.Op, r)
		}
	}()

	fn, ok := operations[op.Op]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op.Op)
	}
	var args Args
	if len(op.Args) > 0 {
		if err := json.Unmarshal(op.Args, &args); err != nil {
			return nil, fmt.Errorf("decode args: %w", err)
		}
	}
	return fn(s, args)
}

func accepted(ok bool) error {
	if !ok {
		return ErrRejected
	}
	return nil
}
