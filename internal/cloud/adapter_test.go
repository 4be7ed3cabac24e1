package cloud

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gate_control/internal/models"
	"gate_control/internal/service"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	payload  string
	retained bool
}

// fakeClient records traffic; methods the adapter never calls stay nil.
type fakeClient struct {
	mqtt.Client

	mu         sync.Mutex
	connectErr error
	pubs       []published
	subs       map[string]mqtt.MessageHandler
}

func newFakeClient() *fakeClient {
	return &fakeClient{subs: make(map[string]mqtt.MessageHandler)}
}

func (c *fakeClient) Connect() mqtt.Token { return doneToken{err: c.connectErr} }
func (c *fakeClient) Disconnect(uint)     {}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pubs = append(c.pubs, published{topic: topic, payload: payload.(string), retained: retained})
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[topic] = cb
	return doneToken{}
}

func (c *fakeClient) last(topic string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.pubs) - 1; i >= 0; i-- {
		if c.pubs[i].topic == topic {
			return c.pubs[i].payload, true
		}
	}
	return "", false
}

func (c *fakeClient) count(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.pubs {
		if p.topic == topic {
			n++
		}
	}
	return n
}

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload string
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return []byte(m.payload) }

type fakeGate struct {
	mu        sync.Mutex
	state     models.GateSessionState
	submitErr error
	submitted []models.Command
	hub       *service.Hub
}

func (g *fakeGate) Submit(cmd models.Command) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return g.submitErr
	}
	g.submitted = append(g.submitted, cmd)
	return nil
}

func (g *fakeGate) Snapshot() models.GateSessionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Clone()
}

func (g *fakeGate) Subscribe(name string, buf int) *service.Subscription {
	return g.hub.Subscribe(name, buf)
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []models.LogEntry
	lastN   int
}

func (h *fakeHistory) Recent(_ context.Context, n int) ([]models.LogEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastN = n
	return h.entries, nil
}

func (h *fakeHistory) set(entries ...models.LogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = entries
}

func newTestAdapter() (*Adapter, *fakeClient, *fakeGate, *fakeHistory) {
	client := newFakeClient()
	gate := &fakeGate{hub: service.NewHub(nil)}
	hist := &fakeHistory{}
	a := newAdapter(client, gate, hist, Config{Prefix: "yard/", LogLines: 5, Location: time.UTC, RetryDelay: 10 * time.Millisecond}, nil)
	return a, client, gate, hist
}

func TestOnConnect_SubscribesEveryCommand(t *testing.T) {
	a, client, _, _ := newTestAdapter()
	a.onConnect(client)

	for _, topic := range []string{"yard/cmd/open", "yard/cmd/close", "yard/cmd/status", "yard/cmd/momentary"} {
		if _, ok := client.subs[topic]; !ok {
			t.Fatalf("missing subscription %s (have %v)", topic, client.subs)
		}
	}
}

func TestCommandHandler(t *testing.T) {
	a, client, gate, _ := newTestAdapter()
	a.onConnect(client)

	client.subs["yard/cmd/momentary"](client, fakeMessage{topic: "yard/cmd/momentary", payload: "1"})
	client.subs["yard/cmd/open"](client, fakeMessage{topic: "yard/cmd/open", payload: "0"})

	if len(gate.submitted) != 1 {
		t.Fatalf("submitted %d commands, want 1", len(gate.submitted))
	}
	cmd := gate.submitted[0]
	if cmd.Kind != models.CommandMomentary || cmd.Source != models.SourceCloud {
		t.Fatalf("unexpected command %+v", cmd)
	}

	gate.submitErr = service.ErrQueueFull
	client.subs["yard/cmd/close"](client, fakeMessage{topic: "yard/cmd/close", payload: " 1\n"})
	if len(gate.submitted) != 1 {
		t.Fatal("rejected command was recorded")
	}
}

func TestPublishState(t *testing.T) {
	a, client, _, hist := newTestAdapter()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return base }
	hist.entries = []models.LogEntry{
		{Timestamp: base, Source: models.SourceCloud, Command: models.CommandOpen, Outcome: models.OutcomeSuccess, CommandID: "cmd-2"},
		{Timestamp: base.Add(-time.Minute), Source: models.SourceTimer, Command: models.CommandClose, Outcome: models.OutcomeFailure, Reason: models.ReasonModemTimeout, CommandID: "cmd-1"},
	}

	deadline := base.Add(42 * time.Second)
	st := models.GateSessionState{
		StatusText:        "Momentary - closing in 60s",
		Modem:             models.ModemState{Status: models.ModemConnected},
		MomentaryDeadline: &deadline,
	}
	a.publishState(context.Background(), st, false)

	want := map[string]string{
		"yard/status":    "Momentary - closing in 60s",
		"yard/modem":     "255",
		"yard/countdown": "42s",
		"yard/log": "[2025-03-01 12:00:00] CLOUD OPEN SUCCESS cmd-2\n" +
			"[2025-03-01 11:59:00] TIMER CLOSE FAILURE modem_timeout cmd-1",
	}
	for topic, payload := range want {
		got, ok := client.last(topic)
		if !ok || got != payload {
			t.Fatalf("%s = %q, want %q", topic, got, payload)
		}
	}
	if hist.lastN != 5 {
		t.Fatalf("log read %d lines, want 5", hist.lastN)
	}
	for _, p := range client.pubs {
		if !p.retained {
			t.Fatalf("%s published without retain", p.topic)
		}
	}

	// unchanged status and modem are not re-sent; an expired countdown clears
	a.now = func() time.Time { return deadline }
	a.publishState(context.Background(), st, false)
	if client.count("yard/status") != 1 || client.count("yard/modem") != 1 || client.count("yard/log") != 1 {
		t.Fatalf("duplicate publishes: %+v", client.pubs)
	}
	if got, _ := client.last("yard/countdown"); got != "" {
		t.Fatalf("countdown = %q, want cleared", got)
	}
}

func TestRun_MirrorsNotifications(t *testing.T) {
	a, client, gate, hist := newTestAdapter()
	gate.state = models.GateSessionState{StatusText: "Ready"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	waitFor(t, func() bool { _, ok := client.last("yard/status"); return ok })
	if got, _ := client.last("yard/modem"); got != "0" {
		t.Fatalf("modem = %q, want 0", got)
	}

	entry := models.LogEntry{Source: models.SourceTouch, Command: models.CommandClose, Outcome: models.OutcomeSuccess}
	hist.set(entry)
	gate.hub.Publish(service.Notification{
		State: models.GateSessionState{StatusText: "Closing gate...", Modem: models.ModemState{Status: models.ModemConnected}},
		Entry: &entry,
	})
	waitFor(t, func() bool { s, _ := client.last("yard/status"); return s == "Closing gate..." })
	waitFor(t, func() bool { l, _ := client.last("yard/log"); return strings.Contains(l, "TOUCH CLOSE SUCCESS") })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRun_ConnectCancelled(t *testing.T) {
	a, client, _, _ := newTestAdapter()
	client.connectErr = errors.New("connection refused")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := a.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v, want deadline exceeded", err)
	}
}

func TestCountdownPayload(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	d := now.Add(1500 * time.Millisecond)
	past := now.Add(-time.Second)

	cases := []struct {
		name string
		st   models.GateSessionState
		want string
	}{
		{"not armed", models.GateSessionState{}, ""},
		{"rounds up", models.GateSessionState{MomentaryDeadline: &d}, "2s"},
		{"expired", models.GateSessionState{MomentaryDeadline: &past}, ""},
	}
	for _, tc := range cases {
		if got := countdownPayload(tc.st, now); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
