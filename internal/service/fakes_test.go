package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gate_control/internal/models"
	"gate_control/internal/repository"
)

// memIndex is an in-memory repository.EntryIndex.
type memIndex struct {
	mu      sync.Mutex
	entries []models.LogEntry
	err     error
}

func (m *memIndex) Append(_ context.Context, e models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memIndex) Recent(_ context.Context, n int) ([]models.LogEntry, error) {
	return m.List(context.Background(), repository.EntryQuery{Limit: n})
}

func (m *memIndex) List(_ context.Context, q repository.EntryQuery) ([]models.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.LogEntry{}
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if q.Source != "" && e.Source != q.Source || q.Command != "" && e.Command != q.Command {
			continue
		}
		if !q.From.IsZero() && e.Timestamp.Before(q.From) || !q.To.IsZero() && e.Timestamp.After(q.To) {
			continue
		}
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memIndex) all() []models.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LogEntry(nil), m.entries...)
}

// memJournal is an in-memory repository.Journal whose writes can be failed.
type memJournal struct {
	mu    sync.Mutex
	lines []models.LogEntry
	fail  bool
}

func (j *memJournal) Append(e models.LogEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("read-only file system")
	}
	j.lines = append(j.lines, e)
	return nil
}

func (j *memJournal) Tail(n int) ([]models.LogEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if n > len(j.lines) {
		n = len(j.lines)
	}
	return append([]models.LogEntry(nil), j.lines[len(j.lines)-n:]...), nil
}

func (j *memJournal) setFail(v bool) {
	j.mu.Lock()
	j.fail = v
	j.mu.Unlock()
}

// fakeModem records sends and flags any overlapping access.
type fakeModem struct {
	mu        sync.Mutex
	connected bool
	sendErr   error
	sendDelay time.Duration
	sent      []models.Command
	probes    int
	busy      bool
	overlap   bool
	replies   chan string
}

func newFakeModem(connected bool) *fakeModem {
	return &fakeModem{connected: connected, replies: make(chan string, 4)}
}

func (m *fakeModem) enter() {
	m.mu.Lock()
	if m.busy {
		m.overlap = true
	}
	m.busy = true
	m.mu.Unlock()
}

func (m *fakeModem) leave() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

func (m *fakeModem) CheckConnectivity(context.Context) models.ModemState {
	m.enter()
	defer m.leave()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes++
	st := models.ModemState{Status: models.ModemDisconnected, CheckedAt: time.Now().UTC()}
	if m.connected {
		st.Status = models.ModemConnected
	}
	return st
}

// SendCommandSMS gives up on ctx cancellation during the delay, the way the
// real session abandons a handshake.
func (m *fakeModem) SendCommandSMS(ctx context.Context, cmd models.Command) error {
	m.enter()
	defer m.leave()
	m.mu.Lock()
	delay, err := m.sendDelay, m.sendErr
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, cmd)
	return err
}

func (m *fakeModem) Replies() <-chan string { return m.replies }

func (m *fakeModem) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

func (m *fakeModem) sentCommands() []models.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Command(nil), m.sent...)
}

// fakeClock fires timers only when Advance moves past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	f     func()
	done  bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.done
	t.done = true
	return active
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, running due callbacks in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		pending := make([]*fakeTimer, 0, len(c.timers))
		for _, t := range c.timers {
			if !t.done && !t.at.After(target) {
				pending = append(pending, t)
			}
		}
		if len(pending) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(pending, func(i, j int) bool { return pending[i].at.Before(pending[j].at) })
		next := pending[0]
		next.done = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
	}
}

func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// recordingSubmitter captures what timers submit.
type recordingSubmitter struct {
	mu   sync.Mutex
	cmds []models.Command
	err  error
}

func (r *recordingSubmitter) Submit(cmd models.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.cmds = append(r.cmds, cmd)
	return nil
}

func (r *recordingSubmitter) submitted() []models.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Command(nil), r.cmds...)
}
