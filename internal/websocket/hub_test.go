package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testClient(h *Hub) *Client {
	return &Client{hub: h, send: make(chan []byte, sendBufferSize)}
}

func TestHubRegisterUnregister(t *testing.T) {
	h := testHub()
	c := testClient(h)

	h.Register(c)
	if h.ClientCount() != 1 {
		t.Fatalf("count = %d, want 1", h.ClientCount())
	}

	h.Unregister(c)
	if h.ClientCount() != 0 {
		t.Fatalf("count = %d, want 0", h.ClientCount())
	}

	// Double unregister must not panic or double-close the channel.
	h.Unregister(c)
}

func TestHubBroadcast(t *testing.T) {
	h := testHub()
	c1 := testClient(h)
	c2 := testClient(h)
	h.Register(c1)
	h.Register(c2)

	h.Broadcast(NewMessage("alert", "enqueued", map[string]any{"report_id": "r1", "count": 3}))

	for i, c := range []*Client{c1, c2} {
		select {
		case raw := <-c.send:
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("client %d: unmarshal: %v", i, err)
			}
			if msg.Type != "alert_enqueued" || msg.Entity != "alert" || msg.Action != "enqueued" {
				t.Errorf("client %d: msg = %+v", i, msg)
			}
			if msg.At.IsZero() {
				t.Errorf("client %d: message not timestamped", i)
			}
		default:
			t.Errorf("client %d received nothing", i)
		}
	}
}

func TestHubBroadcastDropsWhenClientFull(t *testing.T) {
	h := testHub()
	c := testClient(h)
	h.Register(c)

	for i := 0; i < sendBufferSize+10; i++ {
		h.Broadcast(NewMessage("dispatch", "completed", nil))
	}

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want capped at %d", got, sendBufferSize)
	}
}
