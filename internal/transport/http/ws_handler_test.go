package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/yousefmohseen/chatroom/internal/config"
	"github.com/yousefmohseen/chatroom/internal/core"
	"github.com/yousefmohseen/chatroom/internal/proto"
)

func startTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	hub := core.NewHub(nil, core.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	cfg := config.Default()
	cfg.RateLimitPerMinute = 0
	if mutate != nil {
		mutate(&cfg)
	}
	server := NewServer(hub, &cfg, nil)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, id uint64, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: event, ID: id, Data: data}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// readUntil reads frames until match returns true and returns that frame.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(proto.Outbound) bool) proto.Outbound {
	t.Helper()
	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read outbound: %v", err)
		}
		if match(out) {
			return out
		}
	}
}

func isEvent(name string) func(proto.Outbound) bool {
	return func(o proto.Outbound) bool { return o.Type == proto.OutboundTypeEvent && o.Event == name }
}

func isAck(id uint64) func(proto.Outbound) bool {
	return func(o proto.Outbound) bool { return o.Type == proto.OutboundTypeAck && o.ID == id }
}

func joinAs(t *testing.T, ctx context.Context, conn *websocket.Conn, name string, id uint64) proto.Ack {
	t.Helper()
	send(t, ctx, conn, proto.EventJoin, id, name)
	out := readUntil(t, ctx, conn, isAck(id))
	var ack proto.Ack
	if err := json.Unmarshal(out.Data, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	return ack
}

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketJoinAndMessage(t *testing.T) {
	ts := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dial(t, ctx, ts)
	connB := dial(t, ctx, ts)

	if ack := joinAs(t, ctx, connA, "alice", 1); !ack.OK {
		t.Fatalf("alice join rejected: %+v", ack)
	}
	initFrame := readUntil(t, ctx, connA, isEvent(proto.EventInit))
	var initData proto.InitData
	if err := json.Unmarshal(initFrame.Data, &initData); err != nil {
		t.Fatalf("decode init: %v", err)
	}
	if initData.Messages == nil || len(initData.Online) != 1 || initData.Online[0] != "alice" {
		t.Fatalf("unexpected init: %s", initFrame.Data)
	}

	if ack := joinAs(t, ctx, connB, "bob", 1); !ack.OK {
		t.Fatalf("bob join rejected: %+v", ack)
	}
	readUntil(t, ctx, connB, func(o proto.Outbound) bool {
		if !isEvent(proto.EventOnline)(o) {
			return false
		}
		var online []string
		_ = json.Unmarshal(o.Data, &online)
		return len(online) == 2
	})

	send(t, ctx, connA, proto.EventMessage, 0, proto.MessageData{Username: "alice", Text: "  hi there  "})

	out := readUntil(t, ctx, connB, func(o proto.Outbound) bool {
		if !isEvent(proto.EventMessage)(o) {
			return false
		}
		var m proto.Message
		_ = json.Unmarshal(o.Data, &m)
		return !m.IsSystem()
	})
	var msg proto.Message
	if err := json.Unmarshal(out.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Username != "alice" || msg.Text != "hi there" || msg.ID == "" || msg.TS == 0 {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestWebSocketDuplicateName(t *testing.T) {
	ts := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dial(t, ctx, ts)
	connB := dial(t, ctx, ts)

	if ack := joinAs(t, ctx, connA, "alice", 7); !ack.OK {
		t.Fatalf("first join rejected: %+v", ack)
	}
	ack := joinAs(t, ctx, connB, "alice", 7)
	if ack.OK || ack.Err != core.ReasonNameTaken {
		t.Fatalf("expected name taken, got %+v", ack)
	}
}

func TestWebSocketUnknownEvent(t *testing.T) {
	ts := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	send(t, ctx, conn, "dance", 0, "now")

	out := readUntil(t, ctx, conn, func(o proto.Outbound) bool { return o.Type == proto.OutboundTypeError })
	if out.Error == nil || out.Error.Code != "invalid_message" {
		t.Fatalf("unexpected error frame: %+v", out)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.Config) { cfg.RateLimitPerMinute = 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	if ack := joinAs(t, ctx, conn, "alice", 1); !ack.OK {
		t.Fatalf("join rejected: %+v", ack)
	}

	send(t, ctx, conn, proto.EventMessage, 0, proto.MessageData{Username: "alice", Text: "one"})
	send(t, ctx, conn, proto.EventMessage, 0, proto.MessageData{Username: "alice", Text: "two"})

	out := readUntil(t, ctx, conn, func(o proto.Outbound) bool { return o.Type == proto.OutboundTypeError })
	if out.Error == nil || out.Error.Code != core.ErrCodeRateLimited {
		t.Fatalf("expected rate limit error, got %+v", out)
	}
}

func TestStateEndpoint(t *testing.T) {
	ts := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	if ack := joinAs(t, ctx, conn, "alice", 1); !ack.OK {
		t.Fatalf("join rejected: %+v", ack)
	}
	readUntil(t, ctx, conn, isEvent(proto.EventOnline))

	resp, err := ts.Client().Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("state request failed: %v", err)
	}
	defer resp.Body.Close()

	var state StateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Protocol != proto.ProtocolVersion {
		t.Fatalf("unexpected protocol: %d", state.Protocol)
	}
	if len(state.Online) != 1 || state.Online[0] != "alice" {
		t.Fatalf("unexpected online: %v", state.Online)
	}
	if len(state.Messages) != 1 || state.Messages[0].Notice == nil || state.Messages[0].Notice.Action != proto.ActionJoined {
		t.Fatalf("unexpected messages: %+v", state.Messages)
	}
}
