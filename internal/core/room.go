package core

// Room is the shared room. It keeps joined clients in join order and
// guarantees one client per name.
type Room struct {
	members []*Client
	byName  map[string]*Client
}

// NewRoom constructs an empty room.
func NewRoom() *Room {
	return &Room{byName: make(map[string]*Client)}
}

// Has reports whether name is taken.
func (r *Room) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// AddClient inserts a client under its Name. Returns false if the name is taken.
func (r *Room) AddClient(c *Client) bool {
	if r.Has(c.Name) {
		return false
	}
	r.byName[c.Name] = c
	r.members = append(r.members, c)
	return true
}

// RemoveClient deletes a client. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if r.byName[c.Name] != c {
		return false
	}
	delete(r.byName, c.Name)
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	return true
}

// Names returns joined names in join order.
func (r *Room) Names() []string {
	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.Name)
	}
	return names
}

// Broadcast sends an event to all clients in the room and returns how many were dropped.
func (r *Room) Broadcast(event *Event) int {
	dropped := 0
	for _, client := range r.members {
		if !client.send(event) {
			dropped++
		}
	}
	return dropped
}

// Len returns the number of joined clients.
func (r *Room) Len() int {
	return len(r.members)
}
