// Package socket is an event emitter over a WebSocket connection: fire-and-forget
// emits, requests answered by an ack, and named server pushes.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/yousefmohseen/chatroom/internal/proto"
)

var (
	// ErrClosed is returned for requests that can no longer be answered because the connection is gone.
	ErrClosed = errors.New("socket closed")
	// ErrNotConnected is returned when emitting on a socket that was never connected.
	ErrNotConnected = errors.New("socket not connected")
	// ErrAlreadyConnected is returned by Connect on an open socket.
	ErrAlreadyConnected = errors.New("socket already connected")
)

type handlerEntry struct {
	id int
	fn func(data json.RawMessage)
}

// Socket is a lazily connected WebSocket client. Handlers run on the read
// goroutine in delivery order.
type Socket struct {
	url string
	log *zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}
	nextID   uint64
	pending  map[uint64]chan json.RawMessage
	handlers map[string][]handlerEntry
	hangups  map[int]func()
	nextHID  int
}

// readLimit bounds a single server frame; a full history push can be large.
const readLimit = 4 << 20

// New builds a socket for url. Nothing is dialed until Connect.
func New(url string, logger *zerolog.Logger) *Socket {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Socket{
		url:      url,
		log:      logger,
		handlers: make(map[string][]handlerEntry),
		hangups:  make(map[int]func()),
	}
}

// Connect dials the server and starts the read loop.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	conn.SetReadLimit(readLimit)

	readCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.done = done
	s.pending = make(map[uint64]chan json.RawMessage)
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.readLoop(readCtx, conn)
	}()
	return nil
}

// Connected reports whether the socket has a live connection.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// On registers h for pushes named event and returns a func that removes it.
func (s *Socket) On(event string, h func(data json.RawMessage)) func() {
	s.mu.Lock()
	id := s.nextHID
	s.nextHID++
	s.handlers[event] = append(s.handlers[event], handlerEntry{id: id, fn: h})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		entries := s.handlers[event]
		for i, e := range entries {
			if e.id == id {
				s.handlers[event] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
		if len(s.handlers[event]) == 0 {
			delete(s.handlers, event)
		}
	}
}

// OnDisconnect registers fn to run when the server drops the connection.
// It does not run for Close. fn runs on the read goroutine and may call Close.
func (s *Socket) OnDisconnect(fn func()) func() {
	s.mu.Lock()
	id := s.nextHID
	s.nextHID++
	s.hangups[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.hangups, id)
		s.mu.Unlock()
	}
}

// Emit sends event without waiting for an answer.
func (s *Socket) Emit(ctx context.Context, event string, payload any) error {
	conn := s.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	frame, err := encode(event, 0, payload)
	if err != nil {
		return err
	}
	if err := wsjson.Write(ctx, conn, frame); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

// Request sends event and waits for its ack. It returns ErrClosed if the
// connection drops first, or the context error if ctx ends first.
func (s *Socket) Request(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	s.mu.Lock()
	conn := s.conn
	if conn == nil {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	s.nextID++
	id := s.nextID
	reply := make(chan json.RawMessage, 1)
	s.pending[id] = reply
	done := s.done
	s.mu.Unlock()

	defer s.forget(id)

	frame, err := encode(event, id, payload)
	if err != nil {
		return nil, err
	}
	if err := wsjson.Write(ctx, conn, frame); err != nil {
		return nil, fmt.Errorf("write %s: %w", event, err)
	}

	select {
	case data := <-reply:
		return data, nil
	case <-done:
		// The ack may have raced the close.
		select {
		case data := <-reply:
			return data, nil
		default:
		}
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the connection and waits for the read loop to exit.
// Closing a socket that is not connected returns nil. Close must not be
// called from a push handler.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn, cancel, done := s.conn, s.cancel, s.done
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close(websocket.StatusNormalClosure, "bye")
	cancel()
	<-done
	if err != nil && !isClosedErr(err) {
		s.log.Debug().Err(err).Msg("socket close")
	}
	return nil
}

func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer s.dropConn(conn)

	for {
		var frame proto.Outbound
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if !isClosedErr(err) {
				s.log.Warn().Err(err).Msg("read socket frame")
			}
			return
		}

		switch frame.Type {
		case proto.OutboundTypeAck:
			s.resolve(frame.ID, frame.Data)
		case proto.OutboundTypeEvent:
			s.dispatch(frame.Event, frame.Data)
		case proto.OutboundTypeError:
			if frame.Error != nil {
				s.log.Warn().Str("code", frame.Error.Code).Msg(frame.Error.Msg)
			}
		default:
			s.log.Debug().Str("type", frame.Type).Msg("unknown frame type")
		}
	}
}

func (s *Socket) dispatch(event string, data json.RawMessage) {
	s.mu.Lock()
	entries := append([]handlerEntry(nil), s.handlers[event]...)
	s.mu.Unlock()

	for _, e := range entries {
		e.fn(data)
	}
}

func (s *Socket) resolve(id uint64, data json.RawMessage) {
	s.mu.Lock()
	reply, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()

	if !ok {
		s.log.Debug().Uint64("id", id).Msg("ack for unknown request")
		return
	}
	reply <- data
}

func (s *Socket) forget(id uint64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// dropConn forgets conn after the server hung up on us and tells the
// disconnect listeners.
func (s *Socket) dropConn(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.cancel()
	_ = conn.CloseNow()
	hangups := make([]func(), 0, len(s.hangups))
	for _, fn := range s.hangups {
		hangups = append(hangups, fn)
	}
	s.mu.Unlock()

	for _, fn := range hangups {
		fn()
	}
}

func (s *Socket) currentConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func encode(event string, id uint64, payload any) (proto.Inbound, error) {
	frame := proto.Inbound{Event: event, ID: id}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return frame, fmt.Errorf("marshal %s: %w", event, err)
		}
		frame.Data = data
	}
	return frame, nil
}

func isClosedErr(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
