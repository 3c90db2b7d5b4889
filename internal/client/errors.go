package client

import (
	"errors"
	"fmt"
)

// DefaultJoinRejection is shown when the server refuses a join without saying why.
const DefaultJoinRejection = "Failed to join: username not available"

var (
	// ErrNoSession means there is no identity to join with; pick one first.
	ErrNoSession = errors.New("no session identity")
	// ErrNoReply means a request got no acknowledgement: the transport failed or the server timed out.
	ErrNoReply = errors.New("no response from server")
	// ErrNotJoined is returned by operations that need a joined session.
	ErrNotJoined = errors.New("not joined")
	// ErrBusy is returned when a lifecycle operation is already in progress.
	ErrBusy = errors.New("session busy")
)

// JoinRejectedError reports that the server refused the join handshake.
type JoinRejectedError struct {
	Reason string
}

func (e *JoinRejectedError) Error() string {
	return e.Reason
}

// AckError is an explicit failure acknowledgement for a request.
type AckError struct {
	Request string
	Reason  string
}

func (e *AckError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s failed", e.Request)
	}
	return fmt.Sprintf("%s failed: %s", e.Request, e.Reason)
}
