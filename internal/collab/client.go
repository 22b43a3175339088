package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	// maxFrameSize bounds one inbound frame.
	maxFrameSize = 256 * 1024
	queueSize    = 256
)

var errEmptyType = errors.New("message without type")

// Client is one websocket connection to a room. The hub goroutine queues
// frames on send; only the connection's writer goroutine touches conn for
// writing.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	// slow is set once the queue overflowed and the connection was cut.
	// Only the hub goroutine reads or writes it.
	slow bool

	UserID      string
	DisplayName string
	DocID       string
	ClientID    string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, docID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, queueSize),
		UserID:      userID,
		DisplayName: displayName,
		DocID:       docID,
		ClientID:    clientID,
	}
}

// Serve runs the connection until either side stops. The client must
// already be registered; Serve unregisters it and closes the connection
// before returning. A clean close returns nil.
func (c *Client) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	written := make(chan error, 1)
	go func() {
		err := c.writeLoop(ctx)
		cancel()
		written <- err
	}()

	err := c.readLoop(ctx)
	c.hub.Unregister(c)
	cancel()
	if werr := <-written; err == nil {
		err = werr
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
	return err
}

func (c *Client) readLoop(ctx context.Context) error {
	c.conn.SetReadLimit(maxFrameSize)
	for {
		_, frame, err := c.conn.Read(ctx)
		if err != nil {
			return closeError(ctx, err)
		}
		msg, err := c.decode(frame)
		if err != nil {
			c.hub.logger.Warn("dropping frame", "user", c.UserID, "client", c.ClientID, "error", err)
			continue
		}
		if !c.hub.submit(c, msg) {
			return nil
		}
	}
}

// decode parses an inbound frame and stamps it with the connection's
// identity, overriding whatever the peer claimed.
func (c *Client) decode(frame []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if msg.Type == "" {
		return nil, errEmptyType
	}
	msg.UserID, msg.ClientID, msg.DocID = c.UserID, c.ClientID, c.DocID
	return &msg, nil
}

func (c *Client) writeLoop(ctx context.Context) error {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case frame, open := <-c.send:
			if !open {
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				return closeError(ctx, err)
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return closeError(ctx, err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// closeError maps the ways a connection normally ends to nil.
func closeError(ctx context.Context, err error) error {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Send queues msg for the writer. A client whose queue is full has fallen
// behind the room and is disconnected.
func (c *Client) Send(msg *Message) {
	if c.slow {
		return
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("marshal message", "type", msg.Type, "error", err)
		return
	}
	select {
	case c.send <- frame:
	default:
		c.slow = true
		c.hub.logger.Warn("client queue full, disconnecting", "user", c.UserID, "client", c.ClientID, "doc", c.DocID)
		if c.conn != nil {
			c.conn.CloseNow()
		}
	}
}
