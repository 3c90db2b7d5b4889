package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yousefmohseen/chatroom/internal/proto"
)

type failingIdentity struct{}

func (failingIdentity) Load() (string, error) { return "", errors.New("disk gone") }
func (failingIdentity) Save(string) error     { return errors.New("disk gone") }
func (failingIdentity) Remove() error         { return errors.New("disk gone") }

func msg(id string) proto.Message {
	return proto.Message{ID: id, Username: "alice", Text: "text " + id}
}

func TestNewRestoresPersistedIdentity(t *testing.T) {
	s := New(NewMemoryIdentity("alice"), nil)
	assert.Equal(t, "alice", s.Identity())
}

func TestSetIdentity(t *testing.T) {
	ids := NewMemoryIdentity("")
	s := New(ids, nil)

	require.NoError(t, s.SetIdentity("  bob  "))
	assert.Equal(t, "bob", s.Identity())

	persisted, err := ids.Load()
	require.NoError(t, err)
	assert.Equal(t, "bob", persisted)

	assert.ErrorIs(t, s.SetIdentity("   "), ErrEmptyIdentity)
	assert.Equal(t, "bob", s.Identity())
}

func TestStorageErrorsAreNotFatal(t *testing.T) {
	s := New(failingIdentity{}, nil)
	assert.Equal(t, "", s.Identity())

	require.NoError(t, s.SetIdentity("carol"))
	assert.Equal(t, "carol", s.Identity())

	s.Clear()
	assert.Equal(t, "", s.Identity())
}

func TestAppendMessagePreservesCallOrder(t *testing.T) {
	s := New(nil, nil)

	var want []proto.Message
	for i := 0; i < 50; i++ {
		m := msg(fmt.Sprint(i % 7)) // repeated ids on purpose
		want = append(want, m)
		s.AppendMessage(m)
	}

	assert.Equal(t, want, s.Messages())
}

func TestReplaceMessagesIsTotalAndIdempotent(t *testing.T) {
	s := New(nil, nil)
	s.AppendMessage(msg("old"))

	list := []proto.Message{msg("a"), msg("b")}
	s.ReplaceMessages(list)
	assert.Equal(t, list, s.Messages())

	s.ReplaceMessages(list)
	assert.Equal(t, list, s.Messages())

	list[0].Text = "mutated by caller"
	assert.Equal(t, "text a", s.Messages()[0].Text)
}

func TestReplaceOnline(t *testing.T) {
	s := New(nil, nil)
	s.ReplaceOnline([]string{"alice", "bob"})
	s.ReplaceOnline([]string{"carol"})

	assert.Equal(t, []string{"carol"}, s.Online())
}

func TestClearMatchesFreshStore(t *testing.T) {
	ids := NewMemoryIdentity("")
	s := New(ids, nil)
	require.NoError(t, s.SetIdentity("alice"))
	s.AppendMessage(msg("1"))
	s.ReplaceOnline([]string{"alice"})

	s.Clear()
	fresh := New(NewMemoryIdentity(""), nil)

	assert.Equal(t, fresh.Identity(), s.Identity())
	assert.Equal(t, fresh.Messages(), s.Messages())
	assert.Equal(t, fresh.Online(), s.Online())

	persisted, err := ids.Load()
	require.NoError(t, err)
	assert.Empty(t, persisted)

	s.Clear()
	assert.Equal(t, fresh.Identity(), s.Identity())
	assert.Equal(t, fresh.Messages(), s.Messages())
	assert.Equal(t, fresh.Online(), s.Online())
}

func TestOnChange(t *testing.T) {
	s := New(nil, nil)

	calls := 0
	off := s.OnChange(func() { calls++ })

	s.AppendMessage(msg("1"))
	s.ReplaceOnline([]string{"alice"})
	s.Clear()
	s.Clear() // already empty, no notification
	assert.Equal(t, 3, calls)

	off()
	s.AppendMessage(msg("2"))
	assert.Equal(t, 3, calls)
}

func TestViewReflectsLog(t *testing.T) {
	s := New(nil, nil)
	s.AppendMessage(proto.Message{ID: "1", Username: proto.SystemUser, Text: "alice joined the chat"})
	s.AppendMessage(msg("2"))

	view := s.View()
	require.Len(t, view.Statuses, 1)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "2", view.Messages[0].ID)
}
