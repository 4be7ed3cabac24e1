package service

import (
	"sync"
	"time"

	"gate_control/internal/logger"
	"gate_control/internal/models"
)

// Stopper cancels a pending timer.
type Stopper interface {
	Stop() bool
}

// Clock is the scheduler's time source.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, f func()) Stopper { return time.AfterFunc(d, f) }

// WallClock is the production Clock.
var WallClock Clock = wallClock{}

// Submitter accepts commands; the dispatcher implements it.
type Submitter interface {
	Submit(cmd models.Command) error
}

// Scheduler owns the daily auto-close and the single momentary countdown
// slot. Both only ever submit CLOSE commands tagged TIMER.
type Scheduler struct {
	clock     Clock
	loc       *time.Location
	autoClose models.TimeOfDay
	log       *logger.Logger

	mu        sync.Mutex
	submit    Submitter
	started   bool
	daily     Stopper
	nextDaily time.Time

	momentary    Stopper
	momentaryGen uint64
	deadline     time.Time
}

func NewScheduler(clock Clock, loc *time.Location, autoClose models.TimeOfDay, log *logger.Logger) *Scheduler {
	if clock == nil {
		clock = WallClock
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{clock: clock, loc: loc, autoClose: autoClose, log: log}
}

// Start arms the daily auto-close. Commands go to submit.
func (s *Scheduler) Start(submit Submitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.submit = submit
	s.armDailyLocked(s.autoClose.Next(s.clock.Now().In(s.loc)))
}

// Stop cancels both timers. Nothing fires afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	if s.daily != nil {
		s.daily.Stop()
		s.daily = nil
	}
	s.nextDaily = time.Time{}
	s.cancelMomentaryLocked()
}

// AutoCloseAt is the configured daily close time.
func (s *Scheduler) AutoCloseAt() models.TimeOfDay { return s.autoClose }

// NextAutoClose is the next daily fire instant, zero before Start.
func (s *Scheduler) NextAutoClose() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextDaily
}

// ArmMomentary (re)starts the countdown; a running one is replaced.
func (s *Scheduler) ArmMomentary(deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cancelMomentaryLocked()
	s.momentaryGen++
	gen := s.momentaryGen
	s.deadline = deadline
	s.momentary = s.clock.AfterFunc(deadline.Sub(s.clock.Now()), func() { s.fireMomentary(gen) })
}

// DisarmMomentary cancels a running countdown, if any.
func (s *Scheduler) DisarmMomentary() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelMomentaryLocked()
}

// MomentaryDeadline returns the armed deadline and whether one is armed.
func (s *Scheduler) MomentaryDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline, s.momentary != nil
}

func (s *Scheduler) cancelMomentaryLocked() {
	if s.momentary != nil {
		s.momentary.Stop()
		s.momentary = nil
	}
	// a callback already in flight sees a stale generation and does nothing
	s.momentaryGen++
	s.deadline = time.Time{}
}

func (s *Scheduler) fireMomentary(gen uint64) {
	s.mu.Lock()
	if gen != s.momentaryGen || s.momentary == nil {
		s.mu.Unlock()
		return
	}
	deadline := s.deadline
	s.momentary = nil
	s.deadline = time.Time{}
	submit := s.submit
	s.mu.Unlock()

	cmd := s.timerCommand(models.TriggerMomentary)
	cmd.Deadline = deadline
	s.log.Infow("momentary_auto_close", "command_id", cmd.ID, "deadline", deadline)
	s.send(submit, cmd)
}

func (s *Scheduler) armDailyLocked(at time.Time) {
	s.nextDaily = at
	s.daily = s.clock.AfterFunc(at.Sub(s.clock.Now()), func() { s.fireDaily(at) })
}

// fireDaily submits the close and re-arms for the following day, computed
// from the scheduled instant so a late callback cannot skip or double a day.
func (s *Scheduler) fireDaily(scheduled time.Time) {
	s.mu.Lock()
	if !s.started || !s.nextDaily.Equal(scheduled) {
		s.mu.Unlock()
		return
	}
	s.armDailyLocked(s.autoClose.Next(scheduled.In(s.loc)))
	submit := s.submit
	s.mu.Unlock()

	cmd := s.timerCommand(models.TriggerDaily)
	s.log.Infow("scheduled_auto_close", "command_id", cmd.ID, "at", s.autoClose.String())
	s.send(submit, cmd)
}

func (s *Scheduler) timerCommand(trigger models.Trigger) models.Command {
	cmd := NewCommand(models.CommandClose, models.SourceTimer)
	cmd.Trigger = trigger
	cmd.CreatedAt = s.clock.Now().UTC()
	return cmd
}

func (s *Scheduler) send(submit Submitter, cmd models.Command) {
	if submit == nil {
		return
	}
	if err := submit.Submit(cmd); err != nil {
		s.log.Errorw("timer_submit_failed", "command_id", cmd.ID, "trigger", cmd.Trigger, "err", err)
	}
}
