package core

// Client is a connection as seen by the core layer.
// Name is empty until the hub accepts a join and is owned by the hub goroutine.
type Client struct {
	ID       string
	Name     string
	Commands chan *Command
	Events   chan *Event
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 16),
		Events:   make(chan *Event, 64),
	}
}

// send queues ev without blocking the hub. Slow consumers lose events.
func (c *Client) send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
