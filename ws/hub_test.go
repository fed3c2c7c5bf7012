package ws

import (
	"testing"
	"time"

	"meetup-app-server/models"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func TestHubRegisterUnregisterOnline(t *testing.T) {
	h := NewHub()
	ah := h.GetActivity(7)

	c1 := &Client{hub: ah, send: make(chan []byte, 8)}
	c2 := &Client{hub: ah, send: make(chan []byte, 8)}

	ah.register <- c1
	ah.register <- c2
	waitFor(t, func() bool { return h.Online(7) == 2 }, "two subscribers online")

	ah.unregister <- c1
	waitFor(t, func() bool { return h.Online(7) == 1 }, "one subscriber after unregister")

	if _, open := <-c1.send; open {
		t.Fatalf("unregistered client's send channel should be closed")
	}
}

func TestHubBroadcastReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	ah := h.GetActivity(3)

	c1 := &Client{hub: ah, send: make(chan []byte, 8)}
	c2 := &Client{hub: ah, send: make(chan []byte, 8)}
	ah.register <- c1
	ah.register <- c2
	waitFor(t, func() bool { return h.Online(3) == 2 }, "subscribers registered")

	h.Broadcast(3, []byte("hello"))

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if string(got) != "hello" {
				t.Fatalf("expected hello, got %q", got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber did not receive broadcast")
		}
	}
}

func TestBroadcastToUnknownActivityIsNoop(t *testing.T) {
	h := NewHub()
	h.Broadcast(99, []byte("nobody home"))
	if h.Online(99) != 0 {
		t.Fatalf("broadcast must not create hubs")
	}
}

func TestGetActivityReturnsSameHub(t *testing.T) {
	h := NewHub()
	if h.GetActivity(1) != h.GetActivity(1) {
		t.Fatalf("expected one hub per activity")
	}
	if h.GetActivity(1) == h.GetActivity(2) {
		t.Fatalf("distinct activities must get distinct hubs")
	}
}

func TestEventEncodeDecode(t *testing.T) {
	evt := Event{
		Type:       "message",
		ActivityID: 12,
		Message:    &models.ChatMessage{ChatID: 5, SenderID: 2, Username: "alice", Content: "hi"},
	}

	var decoded Event
	if err := decoded.Decode(evt.Encode()); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != "message" || decoded.ActivityID != 12 {
		t.Fatalf("envelope fields lost: %+v", decoded)
	}
	if decoded.Message == nil || decoded.Message.Content != "hi" || decoded.Message.Username != "alice" {
		t.Fatalf("message payload lost: %+v", decoded.Message)
	}

	roster := Event{Type: "roster", ActivityID: 12, Participants: []uint{1, 2, 3}}
	var decodedRoster Event
	if err := decodedRoster.Decode(roster.Encode()); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if len(decodedRoster.Participants) != 3 {
		t.Fatalf("roster payload lost: %+v", decodedRoster)
	}
}
