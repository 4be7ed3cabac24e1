package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"gate_control/internal/logger"
	"gate_control/internal/models"
	"gate_control/internal/modem"

	"github.com/google/uuid"
)

var (
	ErrQueueFull         = errors.New("command queue is full")
	ErrDispatcherStopped = errors.New("dispatcher is stopped")
)

const (
	defaultQueueSize      = 32
	defaultMomentary      = 60 * time.Second
	defaultHealthInterval = 60 * time.Second

	// timerReserve is queue space only TIMER commands may use, so a panel
	// flood cannot make an auto-close disappear.
	timerReserve = 2
)

// Modem is the dispatcher's view of the modem session.
type Modem interface {
	CheckConnectivity(ctx context.Context) models.ModemState
	SendCommandSMS(ctx context.Context, cmd models.Command) error
	Replies() <-chan string
}

// Timers is the dispatcher's view of the scheduler.
type Timers interface {
	ArmMomentary(deadline time.Time)
	DisarmMomentary()
	NextAutoClose() time.Time
	AutoCloseAt() models.TimeOfDay
}

type DispatcherConfig struct {
	QueueSize      int
	Momentary      time.Duration
	HealthInterval time.Duration
}

// Dispatcher serializes every command onto the modem and is the only writer
// of the gate session state.
type Dispatcher struct {
	modem    Modem
	timers   Timers
	activity ActivityLog
	hub      *Hub
	clock    Clock
	log      *logger.Logger
	cfg      DispatcherConfig

	queue chan models.Command

	gate    sync.Mutex
	stopped bool

	mu    sync.RWMutex
	state models.GateSessionState
}

func NewDispatcher(m Modem, timers Timers, activity ActivityLog, hub *Hub, clock Clock, cfg DispatcherConfig, log *logger.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Momentary <= 0 {
		cfg.Momentary = defaultMomentary
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = defaultHealthInterval
	}
	if clock == nil {
		clock = WallClock
	}
	if log == nil {
		log = logger.Nop()
	}
	if hub == nil {
		hub = NewHub(log)
	}
	return &Dispatcher{
		modem:    m,
		timers:   timers,
		activity: activity,
		hub:      hub,
		clock:    clock,
		log:      log,
		cfg:      cfg,
		queue:    make(chan models.Command, cfg.QueueSize+timerReserve),
		state: models.GateSessionState{
			AutoCloseAt: timers.AutoCloseAt(),
			Modem:       models.ModemState{Status: models.ModemDisconnected},
			StatusText:  "Ready",
			UpdatedAt:   clock.Now().UTC(),
		},
	}
}

// Submit enqueues cmd without waiting for it to run. A missing ID or creation
// time is filled in.
func (d *Dispatcher) Submit(cmd models.Command) error {
	if cmd.ID == "" {
		cmd.ID = NewCommandID()
	}
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = d.clock.Now().UTC()
	}

	d.gate.Lock()
	defer d.gate.Unlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	if cmd.Source != models.SourceTimer && len(d.queue) >= d.cfg.QueueSize {
		d.reject(cmd)
		return ErrQueueFull
	}
	select {
	case d.queue <- cmd:
		return nil
	default:
		d.reject(cmd)
		return ErrQueueFull
	}
}

// reject logs a refused command. A refused momentary close will never run,
// so the countdown it belonged to is cleared here instead of by process.
func (d *Dispatcher) reject(cmd models.Command) {
	d.log.Warnw("command_rejected", "command_id", cmd.ID, "command", cmd.Kind, "source", cmd.Source, "err", ErrQueueFull)
	if cmd.Trigger != models.TriggerMomentary {
		return
	}
	d.mu.Lock()
	dl := d.state.MomentaryDeadline
	cleared := dl != nil && dl.Equal(cmd.Deadline)
	if cleared {
		d.state.MomentaryDeadline = nil
		d.state.UpdatedAt = d.clock.Now().UTC()
	}
	snap := d.state.Clone()
	d.mu.Unlock()
	if cleared {
		d.hub.Publish(Notification{State: snap})
	}
}

// Snapshot returns a deep copy of the current state.
func (d *Dispatcher) Snapshot() models.GateSessionState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.Clone()
}

// Subscribe registers an observer with a buffer of buf notifications.
func (d *Dispatcher) Subscribe(name string, buf int) *Subscription {
	return d.hub.Subscribe(name, buf)
}

// Run is the single worker. It returns when ctx is cancelled; commands still
// queued at that point are dropped and Submit fails from then on.
func (d *Dispatcher) Run(ctx context.Context) {
	health := time.NewTicker(d.cfg.HealthInterval)
	defer health.Stop()
	replies := d.modem.Replies()

	d.refreshModem(ctx)
	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return
		case cmd := <-d.queue:
			d.process(ctx, cmd)
		case <-health.C:
			d.refreshModem(ctx)
		case reply, ok := <-replies:
			if !ok {
				replies = nil
				continue
			}
			d.applyReply(reply)
		}
	}
}

func (d *Dispatcher) shutdown() {
	d.gate.Lock()
	d.stopped = true
	d.gate.Unlock()

	dropped := 0
	for {
		select {
		case <-d.queue:
			dropped++
		default:
			if dropped > 0 {
				d.log.Warnw("dispatcher_stopped_with_pending", "dropped", dropped)
			}
			d.hub.Close()
			return
		}
	}
}

// process runs cmd to completion. A cancelled ctx does not abort it: an SMS
// already handed to the modem cannot be recalled, so the send is bounded by
// the modem timeouts only and the result is always logged.
func (d *Dispatcher) process(ctx context.Context, cmd models.Command) {
	ctx = context.WithoutCancel(ctx)

	if cmd.Trigger == models.TriggerMomentary {
		d.mu.Lock()
		if dl := d.state.MomentaryDeadline; dl != nil && dl.Equal(cmd.Deadline) {
			d.state.MomentaryDeadline = nil
		}
		d.mu.Unlock()
	}

	mst := d.modem.CheckConnectivity(ctx)
	res := models.Success()
	if !mst.Connected() {
		res = models.Failure(models.ReasonModemUnavailable)
	} else if err := d.modem.SendCommandSMS(ctx, cmd); err != nil {
		res = models.Failure(failureReason(err))
		d.log.Errorw("command_send_failed", "command_id", cmd.ID, "command", cmd.Kind, "source", cmd.Source, "err", err)
	}

	now := d.clock.Now()
	d.mu.Lock()
	d.state.Modem = mst
	if res.OK {
		c := cmd
		d.state.LastAction = &c
		switch cmd.Kind {
		case models.CommandMomentary:
			deadline := now.Add(d.cfg.Momentary)
			d.state.MomentaryDeadline = &deadline
			d.timers.ArmMomentary(deadline)
		case models.CommandOpen:
			d.state.MomentaryDeadline = nil
			d.timers.DisarmMomentary()
		}
	}
	d.state.LastResult = res
	d.state.StatusText = statusText(cmd, res, d.state.AutoCloseAt, d.cfg.Momentary)
	d.state.NextAutoClose = d.timers.NextAutoClose()
	d.state.UpdatedAt = now.UTC()
	d.mu.Unlock()

	entry := models.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: now.UTC(),
		CommandID: cmd.ID,
		Source:    cmd.Source,
		Command:   cmd.Kind,
		Outcome:   res.Outcome(),
		Reason:    res.Reason,
	}
	d.activity.Append(ctx, entry)

	d.mu.Lock()
	d.state.LogDegraded = d.activity.Degraded()
	snap := d.state.Clone()
	d.mu.Unlock()

	d.log.Infow("command_processed",
		"command_id", cmd.ID,
		"command", cmd.Kind,
		"source", cmd.Source,
		"trigger", cmd.Trigger,
		"outcome", entry.Outcome,
		"reason", entry.Reason,
	)
	d.hub.Publish(Notification{State: snap, Entry: &entry})
}

// refreshModem runs a health probe between commands. It never logs an entry.
func (d *Dispatcher) refreshModem(ctx context.Context) {
	mst := d.modem.CheckConnectivity(ctx)

	d.mu.Lock()
	changed := d.state.Modem.Status != mst.Status
	d.state.Modem = mst
	d.state.NextAutoClose = d.timers.NextAutoClose()
	if changed {
		d.state.UpdatedAt = d.clock.Now().UTC()
	}
	snap := d.state.Clone()
	d.mu.Unlock()

	if changed {
		d.log.Infow("modem_status_changed", "status", mst.Status)
		d.hub.Publish(Notification{State: snap})
	}
}

func (d *Dispatcher) applyReply(reply string) {
	d.mu.Lock()
	d.state.GateReply = reply
	d.state.StatusText = "Gate: " + reply
	d.state.UpdatedAt = d.clock.Now().UTC()
	snap := d.state.Clone()
	d.mu.Unlock()

	d.log.Infow("gate_reply_received", "reply", reply)
	d.hub.Publish(Notification{State: snap})
}

// failureReason maps a modem error onto a result reason.
func failureReason(err error) string {
	switch {
	case errors.Is(err, modem.ErrDisconnected):
		return models.ReasonModemUnavailable
	case errors.Is(err, modem.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.ReasonModemTimeout
	case errors.Is(err, modem.ErrProtocol):
		return models.ReasonProtocolError
	default:
		return models.ReasonModemError
	}
}
