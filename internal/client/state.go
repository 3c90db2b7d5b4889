package client

// State is a step of the session lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingJoinAck
	StateJoined
	StateLeavingRequested
	StateDeletingRequested
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingJoinAck:
		return "awaiting_join_ack"
	case StateJoined:
		return "joined"
	case StateLeavingRequested:
		return "leaving_requested"
	case StateDeletingRequested:
		return "deleting_requested"
	default:
		return "unknown"
	}
}
