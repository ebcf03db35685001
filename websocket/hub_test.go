package websocket

import (
	"testing"
	"time"
)

func TestHubBroadcastReachesSessionClients(t *testing.T) {
	hub := NewHub()

	a := hub.RegisterClient(nil, "user-1", "sess-1")
	b := hub.RegisterClient(nil, "user-1", "sess-1")
	other := hub.RegisterClient(nil, "user-2", "sess-2")
	if got := hub.SessionClientCount("sess-1"); got != 2 {
		t.Fatalf("sess-1 client count = %d, want 2", got)
	}
	if got := hub.SessionClientCount("sess-2"); got != 1 {
		t.Fatalf("sess-2 client count = %d, want 1", got)
	}

	hub.Broadcast("sess-1", []byte("hello"))

	for _, client := range []*Client{a, b} {
		select {
		case msg := <-client.Send:
			if string(msg) != "hello" {
				t.Errorf("message = %q", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}

	select {
	case msg := <-other.Send:
		t.Errorf("other session received %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastUnknownSessionIsNoop(t *testing.T) {
	hub := NewHub()

	// Must not panic or block.
	hub.Broadcast("nobody-home", []byte("hello"))

	if got := hub.SessionClientCount("nobody-home"); got != 0 {
		t.Errorf("client count = %d, want 0", got)
	}
}

func TestHubBroadcastImmediatelyAfterRegister(t *testing.T) {
	hub := NewHub()

	client := hub.RegisterClient(nil, "user-1", "sess-1")
	hub.Broadcast("sess-1", []byte("welcome"))

	select {
	case msg := <-client.Send:
		if string(msg) != "welcome" {
			t.Errorf("message = %q", msg)
		}
	default:
		t.Fatal("broadcast right after registration was not delivered")
	}
}

func TestHubBroadcastAfterUnregisterDoesNotPanic(t *testing.T) {
	hub := NewHub()

	client := hub.RegisterClient(nil, "user-1", "sess-1")
	hub.unregisterClient(client)

	if got := hub.SessionClientCount("sess-1"); got != 0 {
		t.Fatalf("client count = %d, want 0", got)
	}

	// The send channel is closed on unregister; a broadcast must skip the
	// departed client rather than send on it.
	hub.Broadcast("sess-1", []byte("hello"))

	if _, open := <-client.Send; open {
		t.Error("send channel still open after unregister")
	}
}

func TestHubDropsMessagesToSlowClients(t *testing.T) {
	hub := NewHub()

	client := hub.RegisterClient(nil, "user-1", "sess-1")

	// Fill the buffer; the overflow message is dropped, not blocked on.
	for i := 0; i < cap(client.Send)+10; i++ {
		hub.Broadcast("sess-1", []byte("m"))
	}

	if got := len(client.Send); got != cap(client.Send) {
		t.Errorf("buffered = %d, want full buffer %d", got, cap(client.Send))
	}
}
