// Package session holds the local view of a chat session: who we are,
// what has been said, and who is online.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yousefmohseen/chatroom/internal/proto"
	"github.com/yousefmohseen/chatroom/internal/status"
)

// ErrEmptyIdentity is returned when an identity is blank after trimming.
var ErrEmptyIdentity = errors.New("identity is empty")

// IdentityStore persists the local identity across restarts.
// Load returns "" with a nil error when nothing is stored.
type IdentityStore interface {
	Load() (string, error)
	Save(name string) error
	Remove() error
}

// Store is the single source of truth for one chat session.
type Store struct {
	mu       sync.RWMutex
	identity string
	messages []proto.Message
	online   []string

	ids IdentityStore
	log *zerolog.Logger

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int
}

// New builds a store and restores any persisted identity.
func New(ids IdentityStore, logger *zerolog.Logger) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Store{
		ids:       ids,
		log:       logger,
		listeners: make(map[int]func()),
	}
	if ids != nil {
		name, err := ids.Load()
		if err != nil {
			logger.Warn().Err(err).Msg("load persisted identity")
		} else {
			s.identity = name
		}
	}
	return s
}

// SetIdentity trims and persists name. It never talks to the server.
func (s *Store) SetIdentity(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyIdentity
	}
	if s.ids != nil {
		if err := s.ids.Save(name); err != nil {
			s.log.Warn().Err(err).Msg("persist identity")
		}
	}

	s.mu.Lock()
	s.identity = name
	s.mu.Unlock()
	s.notify()
	return nil
}

// ReplaceMessages replaces the whole message log.
func (s *Store) ReplaceMessages(list []proto.Message) {
	s.mu.Lock()
	s.messages = append([]proto.Message(nil), list...)
	s.mu.Unlock()
	s.notify()
}

// AppendMessage adds msg to the end of the log. Duplicates are kept.
func (s *Store) AppendMessage(msg proto.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify()
}

// ReplaceOnline replaces the online list.
func (s *Store) ReplaceOnline(list []string) {
	s.mu.Lock()
	s.online = append([]string(nil), list...)
	s.mu.Unlock()
	s.notify()
}

// Clear drops all session state and the persisted identity.
// Clearing an already empty store does nothing.
func (s *Store) Clear() {
	s.mu.Lock()
	empty := s.identity == "" && len(s.messages) == 0 && len(s.online) == 0
	s.identity = ""
	s.messages = nil
	s.online = nil
	s.mu.Unlock()

	if empty {
		return
	}
	if s.ids != nil {
		if err := s.ids.Remove(); err != nil {
			s.log.Warn().Err(err).Msg("remove persisted identity")
		}
	}
	s.notify()
}

// Identity returns the local participant's name, or "" when there is no session.
func (s *Store) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Messages returns a copy of the message log.
func (s *Store) Messages() []proto.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]proto.Message(nil), s.messages...)
}

// Online returns a copy of the online list.
func (s *Store) Online() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.online...)
}

// View derives the display view from the current log.
func (s *Store) View() status.View {
	return status.Reduce(s.Messages())
}

// OnChange registers fn to run after every mutation and returns a func that unregisters it.
// Listeners run on the mutating goroutine and must not block.
func (s *Store) OnChange(fn func()) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) notify() {
	s.listenersMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
