package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventAck answers a command that carried a RequestID.
	EventAck EventKind = iota
	// EventInit delivers history and presence to a client that just joined.
	EventInit
	// EventMessage notifies clients about one new message.
	EventMessage
	// EventOnline delivers the full list of joined names.
	EventOnline
	// EventMessages delivers the full message list after a bulk change.
	EventMessages
	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind      EventKind
	RequestID uint64
	Ack       *Ack
	Message   Message
	Messages  []Message
	Online    []string
	Error     *CoreError
}

// Ack is the outcome of a command.
type Ack struct {
	OK           bool
	Err          string
	RemovedCount *int
}
