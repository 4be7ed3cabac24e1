package service

import (
	"sync"

	"gate_control/internal/logger"
	"gate_control/internal/models"
)

// Notification is what observers receive after each state change. Entry is
// nil for changes that did not complete a command (health probe, gate reply).
type Notification struct {
	State models.GateSessionState `json:"state"`
	Entry *models.LogEntry        `json:"entry,omitempty"`
}

// Subscription is one observer's ordered feed.
type Subscription struct {
	name string
	ch   chan Notification
	hub  *Hub
}

// C yields notifications in publish order. It is closed on Close or when the
// hub shuts down.
func (s *Subscription) C() <-chan Notification { return s.ch }

func (s *Subscription) Name() string { return s.name }

// Close detaches the subscription from the hub.
func (s *Subscription) Close() { s.hub.remove(s) }

// Hub fans notifications out to observers without ever blocking the
// publisher. A subscriber whose buffer is full loses that notification and
// is expected to resync from a snapshot.
type Hub struct {
	log *logger.Logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{log: log, subs: make(map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(name string, buf int) *Subscription {
	if buf <= 0 {
		buf = 1
	}
	s := &Subscription{name: name, ch: make(chan Notification, buf), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.ch)
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

func (h *Hub) Publish(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		// each subscriber gets its own copy of the pointer fields
		out := Notification{State: n.State.Clone()}
		if n.Entry != nil {
			e := *n.Entry
			out.Entry = &e
		}
		select {
		case s.ch <- out:
		default:
			h.log.Warnw("observer_notification_dropped", "observer", s.name)
		}
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		close(s.ch)
		delete(h.subs, s)
	}
}
