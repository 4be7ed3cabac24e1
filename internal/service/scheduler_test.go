package service

import (
	"errors"
	"testing"
	"time"

	"gate_control/internal/models"
)

var est = time.FixedZone("EST", -5*3600)

func newTestScheduler(start time.Time) (*Scheduler, *fakeClock, *recordingSubmitter) {
	clock := newFakeClock(start)
	s := NewScheduler(clock, est, models.TimeOfDay{Hour: 22}, nil)
	sub := &recordingSubmitter{}
	s.Start(sub)
	return s, clock, sub
}

func TestScheduler_DailyFiresOncePerDay(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, est)
	s, clock, sub := newTestScheduler(start)

	if want := time.Date(2025, 6, 1, 22, 0, 0, 0, est); !s.NextAutoClose().Equal(want) {
		t.Fatalf("next = %v, want %v", s.NextAutoClose(), want)
	}

	clock.Advance(14*time.Hour - time.Second)
	if len(sub.submitted()) != 0 {
		t.Fatal("fired early")
	}

	// three days, one close each
	clock.Advance(3 * 24 * time.Hour)
	got := sub.submitted()
	if len(got) != 3 {
		t.Fatalf("fired %d times in 3 days, want 3", len(got))
	}
	for _, cmd := range got {
		if cmd.Kind != models.CommandClose || cmd.Source != models.SourceTimer || cmd.Trigger != models.TriggerDaily {
			t.Fatalf("unexpected daily command %+v", cmd)
		}
	}
	if want := time.Date(2025, 6, 4, 22, 0, 0, 0, est); !s.NextAutoClose().Equal(want) {
		t.Fatalf("next = %v, want %v", s.NextAutoClose(), want)
	}
}

func TestScheduler_DailyAtExactTimeSchedulesTomorrow(t *testing.T) {
	start := time.Date(2025, 6, 1, 22, 0, 0, 0, est)
	s, _, _ := newTestScheduler(start)
	if want := time.Date(2025, 6, 2, 22, 0, 0, 0, est); !s.NextAutoClose().Equal(want) {
		t.Fatalf("next = %v, want %v", s.NextAutoClose(), want)
	}
}

func TestScheduler_MomentaryFiresOnce(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, est)
	s, clock, sub := newTestScheduler(start)

	deadline := start.Add(60 * time.Second)
	s.ArmMomentary(deadline)
	if dl, ok := s.MomentaryDeadline(); !ok || !dl.Equal(deadline) {
		t.Fatalf("deadline = %v, %v", dl, ok)
	}

	clock.Advance(59 * time.Second)
	if len(sub.submitted()) != 0 {
		t.Fatal("fired early")
	}
	clock.Advance(5 * time.Second)

	got := sub.submitted()
	if len(got) != 1 {
		t.Fatalf("fired %d times, want 1", len(got))
	}
	if got[0].Trigger != models.TriggerMomentary || got[0].Kind != models.CommandClose || !got[0].Deadline.Equal(deadline) {
		t.Fatalf("unexpected momentary command %+v", got[0])
	}
	if _, ok := s.MomentaryDeadline(); ok {
		t.Fatal("slot should be empty after firing")
	}

	clock.Advance(10 * time.Minute)
	if len(sub.submitted()) != 1 {
		t.Fatal("momentary fired more than once")
	}
}

func TestScheduler_MomentaryRearmReplaces(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, est)
	s, clock, sub := newTestScheduler(start)

	s.ArmMomentary(start.Add(60 * time.Second))
	clock.Advance(30 * time.Second)
	second := start.Add(90 * time.Second)
	s.ArmMomentary(second)

	clock.Advance(45 * time.Second) // past the first deadline
	if len(sub.submitted()) != 0 {
		t.Fatal("replaced countdown must not fire")
	}
	clock.Advance(20 * time.Second)
	got := sub.submitted()
	if len(got) != 1 || !got[0].Deadline.Equal(second) {
		t.Fatalf("only the latest deadline should fire, got %+v", got)
	}
}

func TestScheduler_DisarmAndStop(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, est)
	s, clock, sub := newTestScheduler(start)

	s.ArmMomentary(start.Add(time.Minute))
	s.DisarmMomentary()
	clock.Advance(2 * time.Minute)
	if len(sub.submitted()) != 0 {
		t.Fatal("disarmed countdown fired")
	}

	s.Stop()
	if clock.active() != 0 {
		t.Fatalf("%d timers still active after Stop", clock.active())
	}
	s.ArmMomentary(clock.Now().Add(time.Second))
	clock.Advance(48 * time.Hour)
	if len(sub.submitted()) != 0 {
		t.Fatal("stopped scheduler fired")
	}
}

func TestScheduler_SubmitErrorDoesNotStopDaily(t *testing.T) {
	start := time.Date(2025, 6, 1, 21, 0, 0, 0, est)
	s, clock, sub := newTestScheduler(start)
	sub.err = errors.New("queue full")

	clock.Advance(2 * time.Hour)
	if want := time.Date(2025, 6, 2, 22, 0, 0, 0, est); !s.NextAutoClose().Equal(want) {
		t.Fatalf("daily not re-armed after submit failure: %v", s.NextAutoClose())
	}
}
