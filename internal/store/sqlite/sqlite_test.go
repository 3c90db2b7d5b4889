package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yousefmohseen/chatroom/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *SQLiteStore, msgs ...store.Message) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := range msgs {
		msgs[i].CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := s.SaveMessage(ctx, &msgs[i]); err != nil {
			t.Fatalf("save message %s: %v", msgs[i].ID, err)
		}
	}
}

func ids(msgs []*store.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestListMessages(t *testing.T) {
	s := newTestStore(t)
	for i := 1; i <= 5; i++ {
		seed(t, s, store.Message{ID: fmt.Sprintf("m%d", i), Username: "alice", Body: "hi"})
	}

	tests := []struct {
		name     string
		limit    int
		expected []string
	}{
		{name: "all", limit: 0, expected: []string{"m1", "m2", "m3", "m4", "m5"}},
		{name: "latest two, oldest first", limit: 2, expected: []string{"m4", "m5"}},
		{name: "limit above count", limit: 50, expected: []string{"m1", "m2", "m3", "m4", "m5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListMessages(context.Background(), tt.limit)
			if err != nil {
				t.Fatalf("ListMessages failed: %v", err)
			}
			if fmt.Sprint(ids(got)) != fmt.Sprint(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, ids(got))
			}
		})
	}
}

func TestSaveMessageRoundTrip(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, store.Message{
		ID:           "n1",
		Username:     "System",
		Body:         "alice joined the chat",
		System:       true,
		NoticeUser:   "alice",
		NoticeAction: "joined",
	})

	got, err := s.ListMessages(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	m := got[0]
	if !m.System || m.NoticeUser != "alice" || m.NoticeAction != "joined" || m.Body != "alice joined the chat" {
		t.Errorf("unexpected message: %+v", m)
	}
	if !m.CreatedAt.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected created_at: %v", m.CreatedAt)
	}
}

func TestDeleteMessagesByUser(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		store.Message{ID: "1", Username: "alice", Body: "one"},
		store.Message{ID: "2", Username: "bob", Body: "two"},
		store.Message{ID: "3", Username: "alice", Body: "three"},
		store.Message{ID: "4", Username: "System", Body: "alice joined the chat", System: true, NoticeUser: "alice"},
	)

	n, err := s.DeleteMessagesByUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("DeleteMessagesByUser failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}

	got, err := s.ListMessages(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if fmt.Sprint(ids(got)) != fmt.Sprint([]string{"2", "4"}) {
		t.Errorf("unexpected remaining messages: %v", ids(got))
	}

	n, err = s.DeleteMessagesByUser(context.Background(), "nobody")
	if err != nil || n != 0 {
		t.Errorf("expected 0 removed without error, got %d, %v", n, err)
	}
}
