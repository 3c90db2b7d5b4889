package core

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustAck(t *testing.T, c *Client, requestID uint64) Ack {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-c.Events:
			if ev != nil && ev.Kind == EventAck && ev.RequestID == requestID {
				return *ev.Ack
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("ack %d not received by %s", requestID, c.ID)
	return Ack{}
}

// settle waits for the online broadcast that ends c's own join.
func settle(t *testing.T, c *Client) {
	t.Helper()
	mustEvent(t, c.Events, EventOnline)
}
