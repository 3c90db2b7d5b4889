package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin claims a name and enters the room.
	CommandJoin CommandKind = iota
	// CommandSendMessage delivers a chat message to everyone in the room.
	CommandSendMessage
	// CommandLeave leaves the room and frees the name.
	CommandLeave
	// CommandDeleteAccount removes every message of the user and leaves.
	CommandDeleteAccount
)

// Command represents an action requested by a client.
// RequestID is echoed in the ack; zero means no ack is expected.
type Command struct {
	Kind      CommandKind
	RequestID uint64
	Name      string
	Message   Message
}
