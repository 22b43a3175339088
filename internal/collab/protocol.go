package collab

import (
	"encoding/json"

	"github.com/closset/vectorcore/internal/geom"
	"github.com/closset/vectorcore/internal/hittest"
	"github.com/closset/vectorcore/internal/ops"
)

type Message struct {
	Type     string          `json:"type"`
	DocID    string          `json:"docId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync    = "doc.sync"
	TypeDocRequest = "doc.request"

	// Editor operations
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

type WelcomePayload struct {
	ClientID string   `json:"clientId"`
	UserID   string   `json:"userId"`
	DocID    string   `json:"docId"`
	Ops      []string `json:"ops"`
}

type DocSyncPayload struct {
	Document  json.RawMessage `json:"document"`
	ServerSeq int64           `json:"serverSeq"`
	CanUndo   bool            `json:"canUndo"`
	CanRedo   bool            `json:"canRedo"`
}

// PresencePayload is what one connection points at. Clients send Cursor and
// Tool; the hub fills in the identity fields and Hover, the anchor, handle
// or edge under the cursor.
type PresencePayload struct {
	ClientID    string       `json:"clientId,omitempty"`
	UserID      string       `json:"userId,omitempty"`
	DisplayName string       `json:"displayName,omitempty"`
	Cursor      *geom.Point  `json:"cursor,omitempty"`
	Tool        string       `json:"tool,omitempty"`
	Hover       *hittest.Hit `json:"hover,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]PresencePayload `json:"presences"` // by client id
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type OperationAckPayload struct {
	OperationID string `json:"operationId"`
	ServerSeq   int64  `json:"serverSeq"`
	Result      any    `json:"result,omitempty"`
}

type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

type OperationBroadcastPayload struct {
	Operation ops.Operation `json:"operation"`
	UserID    string        `json:"userId"`
	ServerSeq int64         `json:"serverSeq"`
}
