package core

import "time"

// SystemUser is the author of notices generated by the hub.
const SystemUser = "System"

// Notice actions.
const (
	NoticeJoined  = "joined"
	NoticeLeft    = "left"
	NoticeDeleted = "deleted"
)

// Message is the domain model for a chat message.
type Message struct {
	ID        string
	From      string
	Text      string
	CreatedAt time.Time
	// Notice is set on messages the hub authors about a participant.
	Notice *Notice
}

// Notice describes what happened to which participant.
type Notice struct {
	User   string
	Action string
}

// IsSystem reports whether the hub authored the message.
func (m Message) IsSystem() bool {
	return m.From == SystemUser
}
