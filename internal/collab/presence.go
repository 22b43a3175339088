package collab

import (
	"maps"
	"slices"

	"github.com/closset/vectorcore/internal/editor"
	"github.com/closset/vectorcore/internal/geom"
	"github.com/closset/vectorcore/internal/hittest"
)

// presence tracks where every connection of a room points and which anchor,
// handle or edge sits under that pointer. It is owned by the hub goroutine.
type presence struct {
	byClient map[string]*PresencePayload
}

func newPresence() *presence {
	return &presence{byClient: make(map[string]*PresencePayload)}
}

// update stores p for c, stamped with c's identity and the target under its
// cursor, and returns the stored value.
func (ps *presence) update(c *Client, p PresencePayload, s *editor.Session) PresencePayload {
	p.ClientID, p.UserID, p.DisplayName = c.ClientID, c.UserID, c.DisplayName
	p.Hover = hoverAt(s, p.Cursor)
	ps.byClient[c.ClientID] = &p
	return p
}

func (ps *presence) remove(clientID string) {
	delete(ps.byClient, clientID)
}

// rehover resolves every cursor again after the document changed and returns
// the entries whose target moved, ordered by client id.
func (ps *presence) rehover(s *editor.Session) []PresencePayload {
	var changed []PresencePayload
	for _, id := range slices.Sorted(maps.Keys(ps.byClient)) {
		p := ps.byClient[id]
		h := hoverAt(s, p.Cursor)
		if sameTarget(p.Hover, h) {
			continue
		}
		p.Hover = h
		changed = append(changed, *p)
	}
	return changed
}

func (ps *presence) state() PresenceStatePayload {
	out := make(map[string]PresencePayload, len(ps.byClient))
	for id, p := range ps.byClient {
		out[id] = *p
	}
	return PresenceStatePayload{Presences: out}
}

func hoverAt(s *editor.Session, cursor *geom.Point) *hittest.Hit {
	if cursor == nil {
		return nil
	}
	r := s.HitTest(cursor.X, cursor.Y)
	if r.Type == hittest.KindNone {
		return nil
	}
	return &r.Hit
}

// sameTarget ignores the exact hit position so that edits elsewhere on a
// path do not re-announce an unchanged target.
func sameTarget(a, b *hittest.Hit) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Type == b.Type && a.PathID == b.PathID &&
		a.PointIndex == b.PointIndex && a.Handle == b.Handle && a.Segment == b.Segment
}
