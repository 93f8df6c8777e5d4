package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello = "hello"
	InboundTypePing  = "ping"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventReady   = "ready"
	EventMessage = "message"
	EventPong    = "pong"
)

// HelloData authenticates the connection. It must be the first frame.
type HelloData struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ReadyData acknowledges a successful hello.
type ReadyData struct {
	UserID   string `json:"user_id"`
	Protocol int    `json:"protocol"`
}

// MessageData is a stored direct message as pushed to participants
// and returned by the REST API.
type MessageData struct {
	ID          string `json:"id"`
	ItemID      string `json:"item_id"`
	ItemTitle   string `json:"item_title,omitempty"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Body        string `json:"body"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
