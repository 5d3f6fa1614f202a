package signaling

import (
	"testing"
	"time"
)

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.Send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestRelayExcludesSender(t *testing.T) {
	r := NewRegistry()
	a := newRegisteredClient(t, r, "a")
	b := newRegisteredClient(t, r, "b")
	r.Join("a", "r1")
	r.Join("b", "r1")

	payload := []byte(`{"type":"offer","sdp":"x"}`)
	r.Relay("a", payload)

	got := drain(b)
	if len(got) != 1 || string(got[0]) != string(payload) {
		t.Fatalf("expected b to receive the payload once, got %v", got)
	}
	if got := drain(a); got != nil {
		t.Fatalf("sender must never receive its own message, got %v", got)
	}
}

func TestRelayWithoutRoomIsSilent(t *testing.T) {
	r := NewRegistry()
	a := newRegisteredClient(t, r, "a")
	b := newRegisteredClient(t, r, "b")
	r.Join("b", "solo")

	r.Relay("a", []byte(`{"type":"offer"}`))
	r.Relay("ghost", []byte(`{"type":"offer"}`))

	if got := drain(a); got != nil {
		t.Fatalf("unexpected delivery to a: %v", got)
	}
	if got := drain(b); got != nil {
		t.Fatalf("unexpected delivery to b: %v", got)
	}
}

func TestRelayDoesNotBlockOnFullBuffer(t *testing.T) {
	r := NewRegistry()
	newRegisteredClient(t, r, "a")
	b := newRegisteredClient(t, r, "b")
	r.Join("a", "r1")
	r.Join("b", "r1")

	for i := 0; i < cap(b.Send); i++ {
		b.Send <- []byte("fill")
	}

	done := make(chan struct{})
	go func() {
		r.Relay("a", []byte("overflow"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Relay blocked on a full send buffer")
	}
}

func TestDeliverToRoomExcludesOriginator(t *testing.T) {
	r := NewRegistry()
	a := newRegisteredClient(t, r, "a")
	b := newRegisteredClient(t, r, "b")
	r.Join("a", "r1")
	r.Join("b", "r1")

	r.DeliverToRoom("r1", "a", []byte("from-backend"))

	if got := drain(b); len(got) != 1 || string(got[0]) != "from-backend" {
		t.Fatalf("expected b to receive backend message, got %v", got)
	}
	if got := drain(a); got != nil {
		t.Fatalf("originator must be excluded, got %v", got)
	}
}

func TestDeliverToUnknownRoom(t *testing.T) {
	r := NewRegistry()
	a := newRegisteredClient(t, r, "a")
	r.DeliverToRoom("missing", "", []byte("x"))
	if got := drain(a); got != nil {
		t.Fatalf("unexpected delivery: %v", got)
	}
}
