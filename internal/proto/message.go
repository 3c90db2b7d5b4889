package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client.
// A non-zero ID asks the server to answer with an ack frame carrying the same ID.
type Inbound struct {
	Event string          `json:"event"`
	ID    uint64          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	// Requests sent by the client.
	EventJoin          = "join"
	EventMessage       = "message"
	EventLeave         = "leave"
	EventDeleteAccount = "delete_user_account"

	// Pushes sent by the server. EventMessage is shared with the request above.
	EventInit     = "init"
	EventOnline   = "online"
	EventMessages = "messages"

	OutboundTypeEvent = "event"
	OutboundTypeAck   = "ack"
	OutboundTypeError = "error"

	// SystemUser marks notices authored by the service instead of a participant.
	SystemUser = "System"
)

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	ID    uint64          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// Kind tells participant messages apart from service notices.
type Kind string

const (
	KindUser   Kind = "user"
	KindSystem Kind = "system"
)

// Notice actions.
const (
	ActionJoined  = "joined"
	ActionLeft    = "left"
	ActionDeleted = "deleted"
)

// Notice carries the structured part of a service notice.
type Notice struct {
	User   string `json:"user"`
	Action string `json:"action"`
}

// Message is a chat message as exchanged on the wire. TS is unix milliseconds.
type Message struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Text     string  `json:"text"`
	TS       int64   `json:"ts"`
	Kind     Kind    `json:"kind,omitempty"`
	Notice   *Notice `json:"notice,omitempty"`
}

// IsSystem reports whether the message is a service notice.
func (m Message) IsSystem() bool {
	return m.Kind == KindSystem || m.Username == SystemUser
}

// MessageData is the payload of an outgoing chat message.
type MessageData struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// InitData is the initial state pushed after a successful join.
// A nil field was absent (or null) in the payload and must not touch local state.
type InitData struct {
	Messages []Message `json:"messages"`
	Online   []string  `json:"online"`
}

// Ack answers join, leave and delete_user_account requests.
type Ack struct {
	OK           bool   `json:"ok"`
	Err          string `json:"err,omitempty"`
	RemovedCount *int   `json:"removedCount,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
