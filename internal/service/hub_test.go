package service

import (
	"testing"

	"gate_control/internal/models"
)

func TestHub_DeliversInOrderAndCopies(t *testing.T) {
	h := NewHub(nil)
	sub := h.Subscribe("panel", 8)

	for _, id := range []string{"cmd-1", "cmd-2", "cmd-3"} {
		e := models.LogEntry{CommandID: id}
		h.Publish(Notification{State: models.GateSessionState{StatusText: id}, Entry: &e})
	}

	for _, want := range []string{"cmd-1", "cmd-2", "cmd-3"} {
		n := <-sub.C()
		if n.Entry == nil || n.Entry.CommandID != want || n.State.StatusText != want {
			t.Fatalf("got %+v, want %s", n, want)
		}
	}
}

func TestHub_SlowSubscriberDropsWithoutBlocking(t *testing.T) {
	h := NewHub(nil)
	slow := h.Subscribe("slow", 1)
	fast := h.Subscribe("fast", 4)

	for i := 0; i < 3; i++ {
		h.Publish(Notification{})
	}

	if got := len(slow.C()); got != 1 {
		t.Fatalf("slow buffered %d, want 1", got)
	}
	if got := len(fast.C()); got != 3 {
		t.Fatalf("fast buffered %d, want 3", got)
	}
}

func TestHub_CloseEndsSubscriptions(t *testing.T) {
	h := NewHub(nil)
	a := h.Subscribe("a", 1)
	b := h.Subscribe("b", 1)

	a.Close()
	if _, ok := <-a.C(); ok {
		t.Fatal("closed subscription should be drained and closed")
	}
	a.Close() // idempotent

	h.Close()
	if _, ok := <-b.C(); ok {
		t.Fatal("hub close should close subscriptions")
	}
	late := h.Subscribe("late", 1)
	if _, ok := <-late.C(); ok {
		t.Fatal("subscribing to a closed hub yields a closed channel")
	}
	h.Publish(Notification{}) // no panic after close
}
