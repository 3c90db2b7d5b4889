package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yousefmohseen/chatroom/internal/store"
	"github.com/yousefmohseen/chatroom/internal/utils"
)

// Hub coordinates the shared room. All state lives on the goroutine running Run.
type Hub interface {
	Run(ctx context.Context)
	RegisterClient(c *Client)
	UnregisterClient(c *Client)
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Snapshot is a point-in-time copy of the room state.
type Snapshot struct {
	Online   []string
	Messages []Message
}

// Options tunes hub behaviour. Zero values pick defaults.
type Options struct {
	// HistoryLimit caps how many recent messages are loaded at start and sent to joiners.
	HistoryLimit int
	// MaxMessageBytes rejects longer chat messages.
	MaxMessageBytes int
	Logger          *zerolog.Logger
	// Now is used for message timestamps.
	Now func() time.Time
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

type hub struct {
	store        store.MessageStore
	historyLimit int
	maxBytes     int
	log          *zerolog.Logger
	now          func() time.Time

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	snapshots  chan chan Snapshot
	done       chan struct{}

	clients  map[*Client]struct{}
	room     *Room
	messages []Message
}

// NewHub creates a hub. st may be nil to keep history in memory only.
func NewHub(st store.MessageStore, opts Options) Hub {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 200
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 2000
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &hub{
		store:        st,
		historyLimit: opts.HistoryLimit,
		maxBytes:     opts.MaxMessageBytes,
		log:          opts.Logger,
		now:          opts.Now,
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		commands:     make(chan clientCommand, 64),
		snapshots:    make(chan chan Snapshot),
		done:         make(chan struct{}),
		clients:      make(map[*Client]struct{}),
		room:         NewRoom(),
	}
}

// Run processes registrations and commands until ctx is cancelled.
func (h *hub) Run(ctx context.Context) {
	defer close(h.done)

	h.loadHistory(ctx)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.Events)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			h.handleUnregister(ctx, c)
		case cc := <-h.commands:
			if _, ok := h.clients[cc.client]; !ok {
				continue
			}
			h.handleCommand(ctx, cc.client, cc.cmd)
		case reply := <-h.snapshots:
			reply <- Snapshot{Online: h.room.Names(), Messages: h.recent()}
		}
	}
}

// RegisterClient adds c and starts forwarding its commands to the hub.
func (h *hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		return
	}
	go h.forward(c)
}

// UnregisterClient removes c; if it had joined, the room sees it leave.
// The hub closes c.Events afterwards.
func (h *hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Snapshot returns the current online list and recent history.
func (h *hub) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case h.snapshots <- reply:
	case <-h.done:
		return Snapshot{}, ErrHubStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (h *hub) forward(c *Client) {
	for cmd := range c.Commands {
		select {
		case h.commands <- clientCommand{client: c, cmd: cmd}:
		case <-h.done:
			return
		}
	}
}

func (h *hub) loadHistory(ctx context.Context) {
	if h.store == nil {
		return
	}
	stored, err := h.store.ListMessages(ctx, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Msg("load history")
		return
	}
	for _, sm := range stored {
		h.messages = append(h.messages, fromStore(sm))
	}
	h.log.Info().Int("count", len(h.messages)).Msg("history loaded")
}

func (h *hub) handleUnregister(ctx context.Context, c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	if c.Name != "" {
		h.depart(ctx, c)
	}
	delete(h.clients, c)
	close(c.Events)
}

func (h *hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoin:
		h.handleJoin(ctx, c, cmd)
	case CommandSendMessage:
		h.handleSend(ctx, c, cmd)
	case CommandLeave:
		h.handleLeave(ctx, c, cmd)
	case CommandDeleteAccount:
		h.handleDeleteAccount(ctx, c, cmd)
	default:
		h.sendError(c, coreError(ErrCodeBadRequest, "unknown command"))
	}
}

func (h *hub) handleJoin(ctx context.Context, c *Client, cmd *Command) {
	name := strings.TrimSpace(cmd.Name)
	switch {
	case name == "":
		h.ack(c, cmd, Ack{Err: ReasonNameRequired})
		return
	case strings.EqualFold(name, SystemUser):
		h.ack(c, cmd, Ack{Err: ReasonNameTaken})
		return
	case c.Name != "":
		h.ack(c, cmd, Ack{Err: fmt.Sprintf("Already joined as %s", c.Name)})
		return
	case h.room.Has(name):
		h.ack(c, cmd, Ack{Err: ReasonNameTaken})
		return
	}

	c.Name = name
	h.room.AddClient(c)
	h.log.Info().Str("client_id", c.ID).Str("user", name).Msg("user joined")

	h.ack(c, cmd, Ack{OK: true})
	c.send(&Event{Kind: EventInit, Messages: h.recent(), Online: h.room.Names()})

	notice := h.notice(ctx, name, NoticeJoined, fmt.Sprintf("%s joined the chat", name))
	h.room.Broadcast(&Event{Kind: EventMessage, Message: notice})
	h.broadcastOnline()
}

func (h *hub) handleSend(ctx context.Context, c *Client, cmd *Command) {
	if c.Name == "" {
		h.sendError(c, coreError(ErrCodeNotInRoom, "join before sending messages"))
		return
	}
	if cmd.Message.From != "" && cmd.Message.From != c.Name {
		h.sendError(c, coreError(ErrCodeBadRequest, "username does not match the joined name"))
		return
	}
	text := strings.TrimSpace(cmd.Message.Text)
	if text == "" {
		return
	}
	if len(text) > h.maxBytes {
		h.sendError(c, coreError(ErrCodeTooLong, fmt.Sprintf("message exceeds %d bytes", h.maxBytes)))
		return
	}

	msg := h.record(ctx, Message{
		ID:        utils.NewID(),
		From:      c.Name,
		Text:      text,
		CreatedAt: h.now(),
	})
	if dropped := h.room.Broadcast(&Event{Kind: EventMessage, Message: msg}); dropped > 0 {
		h.log.Warn().Int("dropped", dropped).Msg("slow clients missed a message")
	}
}

func (h *hub) handleLeave(ctx context.Context, c *Client, cmd *Command) {
	if c.Name == "" || strings.TrimSpace(cmd.Name) != c.Name {
		h.ack(c, cmd, Ack{Err: ReasonNotJoined})
		return
	}
	h.depart(ctx, c)
	h.ack(c, cmd, Ack{OK: true})
}

func (h *hub) handleDeleteAccount(ctx context.Context, c *Client, cmd *Command) {
	name := c.Name
	if name == "" || strings.TrimSpace(cmd.Name) != name {
		h.ack(c, cmd, Ack{Err: ReasonNotJoined})
		return
	}

	stored := -1
	if h.store != nil {
		n, err := h.store.DeleteMessagesByUser(ctx, name)
		if err != nil {
			h.log.Error().Err(err).Str("user", name).Msg("delete messages")
			h.ack(c, cmd, Ack{Err: ReasonDeleteFailed})
			return
		}
		stored = n
	}
	kept := h.messages[:0]
	removed := 0
	for _, m := range h.messages {
		if !m.IsSystem() && m.From == name {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	clear(h.messages[len(kept):])
	h.messages = kept
	// The in-memory log is only the recent tail; the store knows the full count.
	if stored >= 0 {
		removed = stored
	}

	h.room.RemoveClient(c)
	c.Name = ""
	h.log.Info().Str("client_id", c.ID).Str("user", name).Int("removed", removed).Msg("account deleted")

	h.notice(ctx, name, NoticeDeleted, fmt.Sprintf("%s deleted their messages (%d removed)", name, removed))
	h.room.Broadcast(&Event{Kind: EventMessages, Messages: h.recent()})
	h.broadcastOnline()

	h.ack(c, cmd, Ack{OK: true, RemovedCount: &removed})
}

// depart removes c from the room and tells everyone left behind.
func (h *hub) depart(ctx context.Context, c *Client) {
	name := c.Name
	h.room.RemoveClient(c)
	c.Name = ""
	h.log.Info().Str("client_id", c.ID).Str("user", name).Msg("user left")

	notice := h.notice(ctx, name, NoticeLeft, fmt.Sprintf("%s left the chat", name))
	h.room.Broadcast(&Event{Kind: EventMessage, Message: notice})
	h.broadcastOnline()
}

func (h *hub) notice(ctx context.Context, user, action, text string) Message {
	return h.record(ctx, Message{
		ID:        utils.NewID(),
		From:      SystemUser,
		Text:      text,
		CreatedAt: h.now(),
		Notice:    &Notice{User: user, Action: action},
	})
}

// record appends msg to the log, keeping at most historyLimit entries, and
// persists it. Persistence failures are logged; the room keeps talking.
func (h *hub) record(ctx context.Context, msg Message) Message {
	h.messages = append(h.messages, msg)
	if over := len(h.messages) - h.historyLimit; over > 0 {
		n := copy(h.messages, h.messages[over:])
		clear(h.messages[n:])
		h.messages = h.messages[:n]
	}
	if h.store != nil {
		if err := h.store.SaveMessage(ctx, toStore(msg)); err != nil {
			h.log.Error().Err(err).Str("message_id", msg.ID).Msg("save message")
		}
	}
	return msg
}

func (h *hub) broadcastOnline() {
	h.room.Broadcast(&Event{Kind: EventOnline, Online: h.room.Names()})
}

func (h *hub) ack(c *Client, cmd *Command, ack Ack) {
	if cmd.RequestID == 0 {
		return
	}
	if !c.send(&Event{Kind: EventAck, RequestID: cmd.RequestID, Ack: &ack}) {
		h.log.Warn().Str("client_id", c.ID).Uint64("request_id", cmd.RequestID).Msg("ack dropped")
	}
}

func (h *hub) sendError(c *Client, err *CoreError) {
	c.send(&Event{Kind: EventError, Error: err})
}

// recent returns a copy of the retained log.
func (h *hub) recent() []Message {
	return append(make([]Message, 0, len(h.messages)), h.messages...)
}

func toStore(m Message) *store.Message {
	sm := &store.Message{
		ID:        m.ID,
		Username:  m.From,
		Body:      m.Text,
		System:    m.IsSystem(),
		CreatedAt: m.CreatedAt,
	}
	if m.Notice != nil {
		sm.NoticeUser = m.Notice.User
		sm.NoticeAction = m.Notice.Action
	}
	return sm
}

func fromStore(sm *store.Message) Message {
	m := Message{
		ID:        sm.ID,
		From:      sm.Username,
		Text:      sm.Body,
		CreatedAt: sm.CreatedAt,
	}
	if sm.System && sm.NoticeUser != "" {
		m.Notice = &Notice{User: sm.NoticeUser, Action: sm.NoticeAction}
	}
	return m
}
