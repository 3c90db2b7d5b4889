package store

import (
	"context"
	"time"
)

// Message represents a persisted chat message.
type Message struct {
	ID       string
	Username string
	Body     string
	// System marks hub notices; NoticeUser and NoticeAction describe them.
	System       bool
	NoticeUser   string
	NoticeAction string
	CreatedAt    time.Time
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message to storage.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns up to limit of the most recent messages, oldest first.
	// A limit <= 0 returns everything.
	ListMessages(ctx context.Context, limit int) ([]*Message, error)

	// DeleteMessagesByUser removes every non-system message written by username
	// and returns how many were removed.
	DeleteMessagesByUser(ctx context.Context, username string) (int, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
