package client

import (
	"context"
	"encoding/json"
)

// Transport is the bidirectional channel to the chat service.
// *socket.Socket implements it.
type Transport interface {
	Connect(ctx context.Context) error
	Connected() bool
	Emit(ctx context.Context, event string, payload any) error
	Request(ctx context.Context, event string, payload any) (json.RawMessage, error)
	On(event string, h func(data json.RawMessage)) func()
	// OnDisconnect runs fn when the remote side drops the connection, not on Close.
	OnDisconnect(fn func()) func()
	Close() error
}
