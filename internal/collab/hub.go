// Package collab shares editing sessions over websockets. One hub goroutine
// owns every room and its editor.Session, so sessions are only ever touched
// from that goroutine.
package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/closset/vectorcore/internal/api"
	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/editor"
	"github.com/closset/vectorcore/internal/ops"
)

var (
	ErrHubClosed  = errors.New("hub closed")
	ErrUnrestored = errors.New("saved document could not be restored")
)

// Room is one shared document. All of its clients edit through a single
// session, so they share selection, transform and undo state.
type Room struct {
	docID    string
	session  *editor.Session
	clients  map[string]*Client // clientID -> client
	presence *presence

	seq         int64
	dirty       bool
	unsubscribe func()
	// unrestored is set when the saved document failed to load; the room
	// then refuses edits and never overwrites the saved copy.
	unrestored bool
}

func (r *Room) syncMessage() *Message {
	s := r.session
	return newMessage(TypeDocSync, DocSyncPayload{
		Document:  json.RawMessage(s.DocumentJSON()),
		ServerSeq: r.seq,
		CanUndo:   s.CanUndo(),
		CanRedo:   s.CanRedo(),
	})
}

type inbound struct {
	client *Client
	msg    *Message
}

type docReply struct {
	doc *document.Document
	err error
}

type docQuery struct {
	docID string
	reply chan docReply
}

type Hub struct {
	rooms map[string]*Room // docID -> room
	// saved keeps the last document of rooms that emptied out.
	saved map[string][]byte

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	queries    chan docQuery
	done       chan struct{}

	editorOpts editor.Options
	playground string
	logger     *slog.Logger
}

type HubOption func(*Hub)

func WithLogger(l *slog.Logger) HubOption {
	return func(h *Hub) { h.logger = l }
}

// WithEditorOptions sets the options of every session the hub creates.
func WithEditorOptions(opts editor.Options) HubOption {
	return func(h *Hub) { h.editorOpts = opts }
}

// WithPlayground makes docID open with the sample document.
func WithPlayground(docID string) HubOption {
	return func(h *Hub) { h.playground = docID }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		rooms:      make(map[string]*Room),
		saved:      make(map[string][]byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, 64),
		queries:    make(chan docQuery),
		done:       make(chan struct{}),
		editorOpts: editor.DefaultOptions(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.editorOpts.Logger == nil {
		h.editorOpts.Logger = h.logger
	}
	return h
}

// Run processes hub events until ctx is cancelled. Every room is saved and
// every client disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case in := <-h.inbound:
			h.handleMessage(in.client, in.msg)
		case q := <-h.queries:
			doc, err := h.document(q.docID)
			q.reply <- docReply{doc: doc, err: err}
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) shutdown() {
	for _, room := range h.rooms {
		h.closeRoom(room)
		for _, c := range room.clients {
			close(c.send)
		}
	}
	h.rooms = map[string]*Room{}
	close(h.done)
	h.logger.Info("hub stopped", "saved", len(h.saved))
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) submit(client *Client, msg *Message) bool {
	select {
	case h.inbound <- inbound{client: client, msg: msg}:
		return true
	case <-h.done:
		return false
	}
}

// Document returns a copy of the live or last saved document with docID.
func (h *Hub) Document(ctx context.Context, docID string) (*document.Document, error) {
	q := docQuery{docID: docID, reply: make(chan docReply, 1)}
	select {
	case h.queries <- q:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrHubClosed
	}
	select {
	case r := <-q.reply:
		return r.doc, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) document(docID string) (*document.Document, error) {
	if room, ok := h.rooms[docID]; ok && !room.unrestored {
		return room.session.Document(), nil
	}
	if data, ok := h.saved[docID]; ok {
		return document.Parse(data)
	}
	return nil, api.ErrNoDocument
}

func (h *Hub) openRoom(docID string) *Room {
	session := editor.NewSession(docID, h.editorOpts)
	unrestored := false
	switch data, ok := h.saved[docID]; {
	case ok:
		if _, err := session.LoadDocument(data); err != nil {
			h.logger.Error("restore document", "doc", docID, "error", err)
			unrestored = true
		}
	case docID == h.playground:
		session.LoadSampleDocument()
	}

	room := &Room{
		docID:      docID,
		session:    session,
		clients:    make(map[string]*Client),
		presence:   newPresence(),
		unrestored: unrestored,
	}
	room.unsubscribe = session.Changes().Subscribe(func(editor.Change) { room.dirty = true })
	h.rooms[docID] = room
	h.logger.Info("room opened", "doc", docID)
	return room
}

func (h *Hub) closeRoom(room *Room) {
	room.unsubscribe()
	if room.unrestored {
		h.logger.Warn("room closed, keeping unrestored document", "doc", room.docID)
		return
	}
	h.saved[room.docID] = []byte(room.session.DocumentJSON())
	h.logger.Info("room closed", "doc", room.docID)
}

func (h *Hub) addClient(client *Client) {
	room, ok := h.rooms[client.DocID]
	if !ok {
		room = h.openRoom(client.DocID)
	}
	room.clients[client.ClientID] = client

	client.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID: client.ClientID,
		UserID:   client.UserID,
		DocID:    client.DocID,
		Ops:      ops.Names(),
	}))
	client.Send(room.syncMessage())
	if room.unrestored {
		client.Send(newMessage(TypeError, ErrorPayload{Error: ErrUnrestored.Error()}))
	}
	client.Send(newMessage(TypePresenceState, room.presence.state()))

	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(room, joinMsg, client.ClientID)

	h.logger.Info("client joined", "user", client.UserID, "doc", client.DocID)
}

func (h *Hub) removeClient(client *Client) {
	room, ok := h.rooms[client.DocID]
	if !ok || room.clients[client.ClientID] != client {
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)
	room.presence.remove(client.ClientID)

	if len(room.clients) == 0 {
		h.closeRoom(room)
		delete(h.rooms, client.DocID)
	} else {
		leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{ClientID: client.ClientID, UserID: client.UserID})
		leaveMsg.UserID = client.UserID
		h.broadcastToRoom(room, leaveMsg, "")
	}

	h.logger.Info("client left", "user", client.UserID, "doc", client.DocID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room, ok := h.rooms[sender.DocID]
	if !ok || room.clients[sender.ClientID] != sender {
		return
	}

	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(room, sender, msg)
	case TypeOpSubmit:
		h.handleOperation(room, sender, msg)
	case TypeDocRequest:
		sender.Send(room.syncMessage())
	default:
		h.logger.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Error: "unknown message type " + msg.Type}))
	}
}

// handlePresenceUpdate relays a cursor move to the rest of the room with the
// target under it resolved against the shared document.
func (h *Hub) handlePresenceUpdate(room *Room, sender *Client, msg *Message) {
	var in PresencePayload
	if err := json.Unmarshal(msg.Payload, &in); err != nil {
		h.logger.Warn("invalid presence payload", "user", sender.UserID, "error", err)
		sender.Send(newMessage(TypeError, ErrorPayload{Error: "invalid presence payload"}))
		return
	}
	h.announce(room, room.presence.update(sender, in, room.session))
}

func (h *Hub) announce(room *Room, p PresencePayload) {
	out := newMessage(TypePresenceUpdate, p)
	out.UserID = p.UserID
	h.broadcastToRoom(room, out, p.ClientID)
}

// handleOperation applies an editor operation. The sender gets an ack or a
// nack, the other clients the operation itself, and everyone a doc.sync when
// the committed document changed.
func (h *Hub) handleOperation(room *Room, sender *Client, msg *Message) {
	var op ops.Operation
	if err := json.Unmarshal(msg.Payload, &op); err != nil || op.Op == "" {
		sender.Send(newMessage(TypeError, ErrorPayload{Error: "invalid operation payload"}))
		return
	}

	if room.unrestored {
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: ErrUnrestored.Error()}))
		return
	}

	result, err := ops.Apply(room.session, op)
	if err != nil {
		h.logger.Debug("operation rejected", "op", op.Op, "user", sender.UserID, "error", err)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: err.Error()}))
		h.flush(room)
		return
	}

	room.seq++
	sender.Send(newMessage(TypeOpAck, OperationAckPayload{
		OperationID: op.ID,
		ServerSeq:   room.seq,
		Result:      result,
	}))

	bcast := newMessage(TypeOpBroadcast, OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: room.seq,
	})
	bcast.Seq = room.seq
	h.broadcastToRoom(room, bcast, sender.ClientID)
	h.flush(room)
}

// flush sends a doc.sync to the whole room if the document changed since the
// last one.
func (h *Hub) flush(room *Room) {
	if !room.dirty {
		return
	}
	room.dirty = false
	h.broadcastToRoom(room, room.syncMessage(), "")
	for _, p := range room.presence.rehover(room.session) {
		h.announce(room, p)
	}
}

func (h *Hub) broadcastToRoom(room *Room, msg *Message, excludeClientID string) {
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}

func newMessage(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "type", typ, "error", err)
		data = []byte("null")
	}
	return &Message{Type: typ, Payload: data}
}
