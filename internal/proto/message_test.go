package proto

import (
	"encoding/json"
	"testing"
)

func TestMessageIsSystem(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		want bool
	}{
		{"participant", Message{Username: "alice", Kind: KindUser}, false},
		{"system username", Message{Username: SystemUser}, true},
		{"system kind", Message{Username: "relay", Kind: KindSystem}, true},
		{"lowercase system is a name", Message{Username: "system"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.IsSystem(); got != tc.want {
				t.Fatalf("IsSystem() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInitDataAbsentFieldsStayNil(t *testing.T) {
	var data InitData
	if err := json.Unmarshal([]byte(`{"online":["alice"],"messages":null}`), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if data.Messages != nil {
		t.Fatalf("null messages should decode to nil, got %v", data.Messages)
	}
	if len(data.Online) != 1 || data.Online[0] != "alice" {
		t.Fatalf("unexpected online: %v", data.Online)
	}
}

func TestLegacyMessageWithoutKind(t *testing.T) {
	var msg Message
	raw := `{"id":"1","username":"System","text":"bob left the chat","ts":1700000000000}`
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !msg.IsSystem() || msg.Notice != nil {
		t.Fatalf("unexpected decode: %+v", msg)
	}
}
