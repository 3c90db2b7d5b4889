// Package client drives the chat session lifecycle: join handshake, push
// subscriptions, sending, leaving and account deletion.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yousefmohseen/chatroom/internal/proto"
	"github.com/yousefmohseen/chatroom/internal/session"
)

// DefaultAckTimeout bounds how long a request waits for its acknowledgement.
const DefaultAckTimeout = 5 * time.Second

// Manager owns the transport for one session at a time and keeps the
// session store in sync with the server's pushes.
type Manager struct {
	store      *session.Store
	transport  Transport
	ackTimeout time.Duration
	log        *zerolog.Logger

	mu       sync.Mutex
	state    State
	offs     []func()
	hangups  map[int]func()
	nextHook int
}

// New builds a manager. Nothing is connected until Start.
func New(store *session.Store, transport Transport, ackTimeout time.Duration, logger *zerolog.Logger) *Manager {
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{
		store:      store,
		transport:  transport,
		ackTimeout: ackTimeout,
		log:        logger,
		hangups:    make(map[int]func()),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start connects and joins with the stored identity.
//
// It returns ErrNoSession when there is no identity, an error wrapping
// ErrNoReply when the join was not acknowledged, and *JoinRejectedError when
// the server refused it. On any failure the session store is cleared and the
// transport closed.
func (m *Manager) Start(ctx context.Context) error {
	name := m.store.Identity()
	if name == "" {
		return ErrNoSession
	}
	if !m.transition(StateDisconnected, StateConnecting) {
		return ErrBusy
	}

	if m.transport.Connected() {
		m.closeTransport()
	}
	if err := m.transport.Connect(ctx); err != nil {
		m.log.Error().Err(err).Str("user", name).Msg("connect")
		m.finish()
		return fmt.Errorf("join: %w: %w", ErrNoReply, err)
	}

	m.subscribe()
	m.setState(StateAwaitingJoinAck)

	ack, err := m.request(ctx, proto.EventJoin, name)
	if err != nil {
		m.log.Error().Err(err).Str("user", name).Msg("no response from server on join")
		m.finish()
		return err
	}
	if !ack.OK {
		reason := ack.Err
		if reason == "" {
			reason = DefaultJoinRejection
		}
		m.log.Warn().Str("user", name).Str("reason", reason).Msg("join rejected")
		m.finish()
		return &JoinRejectedError{Reason: reason}
	}

	m.setState(StateJoined)
	m.log.Info().Str("user", name).Msg("joined")
	return nil
}

// Send emits a chat message. Blank text is ignored. The message is not added
// locally; it shows up when the server echoes it back.
func (m *Manager) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if m.State() != StateJoined {
		return ErrNotJoined
	}
	return m.transport.Emit(ctx, proto.EventMessage, proto.MessageData{
		Username: m.store.Identity(),
		Text:     text,
	})
}

// Leave asks the server to end the session and then clears local state no
// matter what the server answered. The returned error only reports the
// server's answer; cleanup has already happened.
func (m *Manager) Leave(ctx context.Context) error {
	_, err := m.terminate(ctx, StateLeavingRequested, proto.EventLeave)
	return err
}

// DeleteAccount asks the server to remove the account and its messages, then
// clears local state no matter what the server answered. It returns the number
// of messages the server reported as removed.
func (m *Manager) DeleteAccount(ctx context.Context) (int, error) {
	ack, err := m.terminate(ctx, StateDeletingRequested, proto.EventDeleteAccount)
	if err != nil {
		return 0, err
	}
	removed := 0
	if ack.RemovedCount != nil {
		removed = *ack.RemovedCount
	}
	m.log.Info().Int("removed", removed).Msg("account deleted")
	return removed, nil
}

// Close detaches the push listeners and closes the transport but keeps the
// session store, so a later Start rejoins with the same identity.
func (m *Manager) Close() {
	m.teardown()
	m.setState(StateDisconnected)
}

// OnDisconnect registers fn to run after the server dropped a joined session.
// The session store is kept, so Start rejoins with the same identity.
func (m *Manager) OnDisconnect(fn func()) func() {
	m.mu.Lock()
	id := m.nextHook
	m.nextHook++
	m.hangups[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.hangups, id)
		m.mu.Unlock()
	}
}

// ChangeIdentity drops the current connection and joins again as name.
func (m *Manager) ChangeIdentity(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return session.ErrEmptyIdentity
	}
	m.Close()
	if err := m.store.SetIdentity(name); err != nil {
		return err
	}
	return m.Start(ctx)
}

func (m *Manager) terminate(ctx context.Context, state State, event string) (proto.Ack, error) {
	name := m.store.Identity()

	m.mu.Lock()
	current := m.state
	if current == StateJoined {
		m.state = state
	}
	m.mu.Unlock()

	switch {
	case current == StateLeavingRequested || current == StateDeletingRequested:
		return proto.Ack{}, ErrBusy
	case current != StateJoined || name == "":
		m.finish()
		return proto.Ack{}, nil
	}

	ack, err := m.request(ctx, event, name)
	if err == nil && !ack.OK {
		err = &AckError{Request: event, Reason: ack.Err}
	}
	if err != nil {
		m.log.Warn().Err(err).Str("user", name).Msg(event + " failed")
	}

	m.finish()
	return ack, err
}

// request sends event and decodes its ack. Transport failures, timeouts and
// empty acks all come back wrapping ErrNoReply.
func (m *Manager) request(ctx context.Context, event string, payload any) (proto.Ack, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ackTimeout)
	defer cancel()

	var ack proto.Ack
	raw, err := m.transport.Request(ctx, event, payload)
	if err != nil {
		return ack, fmt.Errorf("%s: %w: %w", event, ErrNoReply, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return ack, fmt.Errorf("%s: %w", event, ErrNoReply)
	}
	if err := json.Unmarshal(raw, &ack); err != nil {
		return ack, fmt.Errorf("%s: %w: decode ack: %w", event, ErrNoReply, err)
	}
	return ack, nil
}

func (m *Manager) subscribe() {
	offs := []func(){
		m.transport.On(proto.EventInit, m.handleInit),
		m.transport.On(proto.EventMessage, m.handleMessage),
		m.transport.On(proto.EventOnline, m.handleOnline),
		m.transport.On(proto.EventMessages, m.handleMessages),
		m.transport.OnDisconnect(m.handleDisconnect),
	}
	m.mu.Lock()
	m.offs = append(m.offs, offs...)
	m.mu.Unlock()
}

func (m *Manager) handleInit(data json.RawMessage) {
	var payload proto.InitData
	if err := json.Unmarshal(data, &payload); err != nil {
		m.log.Warn().Err(err).Msg("decode init")
		return
	}
	if payload.Messages != nil {
		m.store.ReplaceMessages(payload.Messages)
	}
	if payload.Online != nil {
		m.store.ReplaceOnline(payload.Online)
	}
}

func (m *Manager) handleMessage(data json.RawMessage) {
	var msg proto.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		m.log.Warn().Err(err).Msg("decode message")
		return
	}
	m.store.AppendMessage(msg)
}

func (m *Manager) handleOnline(data json.RawMessage) {
	var online []string
	if err := json.Unmarshal(data, &online); err != nil {
		m.log.Warn().Err(err).Msg("decode online")
		return
	}
	m.store.ReplaceOnline(online)
}

func (m *Manager) handleMessages(data json.RawMessage) {
	var msgs []proto.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		m.log.Warn().Err(err).Msg("decode messages")
		return
	}
	m.store.ReplaceMessages(msgs)
}

// handleDisconnect tears down a joined session the server dropped. Pending
// requests in other states fail on their own and clean up there.
func (m *Manager) handleDisconnect() {
	m.mu.Lock()
	if m.state != StateJoined {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	offs := m.offs
	m.offs = nil
	hooks := make([]func(), 0, len(m.hangups))
	for _, fn := range m.hangups {
		hooks = append(hooks, fn)
	}
	m.mu.Unlock()

	m.log.Warn().Str("user", m.store.Identity()).Msg("server closed the connection")
	for _, off := range offs {
		off()
	}
	m.closeTransport()

	for _, fn := range hooks {
		fn()
	}
}

// finish ends the session: listeners off, transport closed, store cleared.
func (m *Manager) finish() {
	m.teardown()
	m.store.Clear()
	m.setState(StateDisconnected)
}

// teardown detaches every push listener before closing the transport.
func (m *Manager) teardown() {
	m.mu.Lock()
	offs := m.offs
	m.offs = nil
	m.mu.Unlock()

	for _, off := range offs {
		off()
	}
	m.closeTransport()
}

func (m *Manager) closeTransport() {
	if err := m.transport.Close(); err != nil {
		m.log.Debug().Err(err).Msg("close transport")
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) transition(from, to State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return false
	}
	m.state = to
	return true
}
