package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeNotInRoom   = "not_in_room"
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNameTaken   = "name_taken"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeTooLong     = "message_too_long"
)

// Ack reasons shown to users.
const (
	ReasonNameRequired = "Username is required"
	ReasonNameTaken    = "Username already taken"
	ReasonNotJoined    = "Not joined"
	ReasonDeleteFailed = "Failed to delete messages"
)

var (
	ErrNotInRoom  = errors.New("not in room")
	ErrBadRequest = errors.New("bad request")
	// ErrHubStopped is returned when the hub is no longer running.
	ErrHubStopped = errors.New("hub stopped")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
