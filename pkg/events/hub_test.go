package events

import (
	"testing"
	"time"
)

func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	hub.Publish(CyclePhase, CyclePhaseEvent{From: "idle", To: "fetching", Ts: 1740800000})

	select {
	case ev := <-ch:
		if ev.Name != CyclePhase {
			t.Errorf("Name = %q, want %q", ev.Name, CyclePhase)
		}
		payload, err := DecodeAs[CyclePhaseEvent](ev)
		if err != nil {
			t.Fatalf("DecodeAs() error = %v", err)
		}
		if payload.From != "idle" || payload.To != "fetching" {
			t.Errorf("payload = %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestHubNilSafePublish(t *testing.T) {
	var hub *Hub
	// Must not panic.
	hub.Publish(CyclePhase, CyclePhaseEvent{})
}

func TestHubDropsSlowSubscribers(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	// Overflow the buffer; publishes must never block.
	for i := 0; i < 100; i++ {
		hub.Publish(CyclePhase, CyclePhaseEvent{Ts: int64(i)})
	}
	if len(ch) != cap(ch) {
		t.Errorf("len(ch) = %d, want full buffer %d", len(ch), cap(ch))
	}
}
