package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/go-cmp/cmp"

	"github.com/closset/vectorcore/internal/api"
	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/editor"
	"github.com/closset/vectorcore/internal/geom"
	"github.com/closset/vectorcore/internal/hittest"
	"github.com/closset/vectorcore/internal/ops"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

func newTestHub(opts ...HubOption) *Hub {
	eopts := editor.DefaultOptions()
	eopts.Snap.Enabled = false
	base := []HubOption{WithLogger(slog.New(slog.DiscardHandler)), WithEditorOptions(eopts)}
	return NewHub(append(base, opts...)...)
}

func join(h *Hub, clientID, userID, docID string) *Client {
	c := NewClient(h, nil, userID, "User "+userID, docID, clientID)
	h.addClient(c)
	return c
}

// drain returns the queued messages of c without blocking.
func drain(t *testing.T, c *Client) []Message {
	t.Helper()
	var out []Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var m Message
			if err := json.Unmarshal(data, &m); err != nil {
				t.Fatal(err)
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func types(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func submit(h *Hub, c *Client, id, op, args string) {
	payload, _ := json.Marshal(ops.Operation{ID: id, Op: op, Args: json.RawMessage(args)})
	h.handleMessage(c, &Message{Type: TypeOpSubmit, Payload: payload})
}

func TestJoin(t *testing.T) {
	h := newTestHub()
	a := join(h, "c1", "u1", "doc_1")
	diff(t, []string{TypeWelcome, TypeDocSync, TypePresenceState}, types(drain(t, a)))

	b := join(h, "c2", "u2", "doc_1")
	diff(t, []string{TypeWelcome, TypeDocSync, TypePresenceState}, types(drain(t, b)))
	diff(t, []string{TypePresenceJoin}, types(drain(t, a)))

	h.removeClient(b)
	diff(t, []string{TypePresenceLeave}, types(drain(t, a)))
}

func TestOperations(t *testing.T) {
	h := newTestHub()
	a := join(h, "c1", "u1", "doc_1")
	b := join(h, "c2", "u2", "doc_1")
	drain(t, a)
	drain(t, b)

	submit(h, a, "op1", "path.begin", `{"x":0,"y":0,"type":"corner"}`)
	submit(h, a, "op2", "path.add", `{"x":100,"y":0,"type":"corner"}`)
	submit(h, a, "op3", "path.finish", `{"closed":false}`)

	diff(t, []string{TypeOpAck, TypeOpAck, TypeOpAck, TypeDocSync}, types(drain(t, a)))
	got := drain(t, b)
	diff(t, []string{TypeOpBroadcast, TypeOpBroadcast, TypeOpBroadcast, TypeDocSync}, types(got))

	var sync DocSyncPayload
	if err := json.Unmarshal(got[3].Payload, &sync); err != nil {
		t.Fatal(err)
	}
	doc, err := document.Parse(sync.Document)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Paths) != 1 || !sync.CanUndo || sync.ServerSeq != 3 {
		t.Errorf("sync = %+v with %d paths", sync, len(doc.Paths))
	}

	submit(h, b, "op4", "undo", "")
	drain(t, b)
	live, err := h.document("doc_1")
	if err != nil {
		t.Fatal(err)
	}
	diff(t, 0, len(live.Paths))
}

func TestOperationNack(t *testing.T) {
	h := newTestHub()
	a := join(h, "c1", "u1", "doc_1")
	drain(t, a)

	tests := []struct {
		op, args, reason string
	}{
		{"teleport", "", "unknown operation"},
		{"anchor.move", `{"pathId":"nope","index":0,"x":1,"y":1}`, "path not found"},
		{"undo", "", "operation rejected"},
		{"path.begin", `{"x":"left"}`, "decode args"},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			submit(h, a, "op", tt.op, tt.args)
			msgs := drain(t, a)
			diff(t, []string{TypeOpNack}, types(msgs))
			var nack OperationNackPayload
			json.Unmarshal(msgs[0].Payload, &nack)
			if !strings.Contains(nack.Reason, tt.reason) {
				t.Errorf("reason = %q, want %q", nack.Reason, tt.reason)
			}
		})
	}
}

func TestOperationResult(t *testing.T) {
	h := newTestHub(WithPlayground("doc_play"))
	a := join(h, "c1", "u1", "doc_play")
	drain(t, a)

	submit(h, a, "op1", "snap.settings", `{"settings":{"gridSize":50}}`)
	msgs := drain(t, a)
	var ack struct {
		Result struct {
			GridSize float64 `json:"gridSize"`
			Enabled  bool    `json:"enabled"`
		} `json:"result"`
	}
	json.Unmarshal(msgs[0].Payload, &ack)
	diff(t, 50.0, ack.Result.GridSize)
	diff(t, false, ack.Result.Enabled)
}

func TestRoomSavedOnLeave(t *testing.T) {
	h := newTestHub()
	a := join(h, "c1", "u1", "doc_1")
	submit(h, a, "op1", "document.sample", "")
	want, _ := h.document("doc_1")
	h.removeClient(a)

	if len(h.rooms) != 0 {
		t.Fatal("empty room kept open")
	}
	saved, err := h.document("doc_1")
	if err != nil {
		t.Fatal(err)
	}
	diff(t, len(want.Paths), len(saved.Paths))

	if _, err := h.document("doc_2"); err != api.ErrNoDocument {
		t.Errorf("unknown document: %v", err)
	}

	b := join(h, "c2", "u2", "doc_1")
	live, _ := h.document("doc_1")
	diff(t, len(want.Paths), len(live.Paths))
	drain(t, b)
}

func TestUnrestorableDocumentKept(t *testing.T) {
	h := newTestHub()
	bad := []byte(`{"id":"doc_bad","name":"bad","paths":[{"id":"p","points":[
		{"x":0,"y":0,"type":"corner","controlOut":{"x":2950,"y":0}},{"x":50,"y":0,"type":"corner"}]}]}`)
	h.saved["doc_bad"] = bad

	a := join(h, "c1", "u1", "doc_bad")
	drain(t, a)
	submit(h, a, "op1", "path.begin", `{"x":0,"y":0,"type":"corner"}`)
	got := drain(t, a)
	diff(t, []string{TypeOpNack}, types(got))
	var nack OperationNackPayload
	if err := json.Unmarshal(got[0].Payload, &nack); err != nil {
		t.Fatal(err)
	}
	diff(t, ErrUnrestored.Error(), nack.Reason)

	doc, err := h.document("doc_bad")
	if err != nil {
		t.Fatal(err)
	}
	diff(t, 1, len(doc.Paths))

	h.removeClient(a)
	diff(t, string(bad), string(h.saved["doc_bad"]))
}

func TestPlayground(t *testing.T) {
	h := newTestHub(WithPlayground("doc_play"))
	join(h, "c1", "u1", "doc_play")
	doc, _ := h.document("doc_play")
	diff(t, len(document.NewSampleDocument("doc_play").Paths), len(doc.Paths))
}

func TestPresence(t *testing.T) {
	h := newTestHub()
	a := join(h, "c1", "u1", "doc_1")
	b := join(h, "c2", "u2", "doc_1")
	drain(t, a)
	drain(t, b)

	h.handleMessage(a, &Message{Type: TypePresenceUpdate, Payload: json.RawMessage(`{"cursor":{"x":3,"y":4},"tool":"pen","userId":"forged"}`)})
	msgs := drain(t, b)
	diff(t, []string{TypePresenceUpdate}, types(msgs))
	var p PresencePayload
	json.Unmarshal(msgs[0].Payload, &p)
	diff(t, PresencePayload{ClientID: "c1", UserID: "u1", DisplayName: "User u1", Cursor: &geom.Point{X: 3, Y: 4}, Tool: "pen"}, p)
	if len(drain(t, a)) != 0 {
		t.Error("presence echoed to its sender")
	}

	c := join(h, "c3", "u1", "doc_1")
	var state PresenceStatePayload
	json.Unmarshal(drain(t, c)[2].Payload, &state)
	diff(t, []string{"c1"}, slices.Sorted(maps.Keys(state.Presences)))

	h.removeClient(c)
	msgs = drain(t, a)
	diff(t, []string{TypePresenceJoin, TypePresenceLeave}, types(msgs))
	var leave PresenceLeavePayload
	json.Unmarshal(msgs[1].Payload, &leave)
	diff(t, PresenceLeavePayload{ClientID: "c3", UserID: "u1"}, leave)
}

func TestPresenceHover(t *testing.T) {
	h := newTestHub()
	h.saved["doc_1"] = []byte(`{"id":"doc_1","name":"d","paths":[{"id":"p","points":[
		{"x":0,"y":0,"type":"corner"},{"x":100,"y":0,"type":"corner"}]}]}`)
	a := join(h, "c1", "u1", "doc_1")
	b := join(h, "c2", "u2", "doc_1")
	drain(t, a)
	drain(t, b)

	hover := func(m Message) *hittest.Hit {
		t.Helper()
		var p PresencePayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			t.Fatal(err)
		}
		return p.Hover
	}

	h.handleMessage(a, &Message{Type: TypePresenceUpdate, Payload: json.RawMessage(`{"cursor":{"x":1,"y":1}}`)})
	got := hover(drain(t, b)[0])
	if got == nil {
		t.Fatal("no hover target")
	}
	diff(t, hittest.KindAnchor, got.Type)
	diff(t, "p", got.PathID)
	diff(t, 0, got.PointIndex)

	h.handleMessage(a, &Message{Type: TypePresenceUpdate, Payload: json.RawMessage(`{"cursor":{"x":50,"y":40}}`)})
	if got := hover(drain(t, b)[0]); got != nil {
		t.Errorf("hover over empty canvas = %+v", got)
	}

	// The path under a's cursor goes away.
	h.handleMessage(a, &Message{Type: TypePresenceUpdate, Payload: json.RawMessage(`{"cursor":{"x":50,"y":1}}`)})
	if got := hover(drain(t, b)[0]); got == nil || got.Type != hittest.KindEdge {
		t.Fatalf("hover = %+v, want edge", got)
	}
	submit(h, b, "op1", "path.delete", `{"pathId":"p"}`)
	msgs := drain(t, b)
	last := msgs[len(msgs)-1]
	diff(t, TypePresenceUpdate, last.Type)
	diff(t, "u1", last.UserID)
	if got := hover(last); got != nil {
		t.Errorf("hover after delete = %+v", got)
	}
	for _, m := range drain(t, a) {
		if m.Type == TypePresenceUpdate {
			t.Error("hover change echoed to its owner")
		}
	}
}

func TestWebsocket(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h := newTestHub()
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(h, conn, "u1", "Tester", "doc_ws", "c1")
		if !h.Register(c) {
			return
		}
		c.Serve(r.Context())
	}))
	defer srv.Close()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatal(err)
		}
		return m
	}

	if m := read(); m.Type != TypeWelcome {
		t.Fatalf("first message = %s", m.Type)
	}

	op, _ := json.Marshal(ops.Operation{ID: "op1", Op: "path.begin", Args: json.RawMessage(`{"x":1,"y":2}`)})
	msg, _ := json.Marshal(Message{Type: TypeOpSubmit, Payload: op})
	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		t.Fatal(err)
	}
	for {
		m := read()
		if m.Type != TypeOpAck {
			continue
		}
		var ack OperationAckPayload
		json.Unmarshal(m.Payload, &ack)
		diff(t, "op1", ack.OperationID)
		return
	}
}
