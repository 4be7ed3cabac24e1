package service

import (
	"context"
	"time"

	"gate_control/internal/logger"
	"gate_control/internal/models"
	"gate_control/internal/repository"
)

type Authorization interface {
	AddOperator(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Gate is the command surface shared by every observer.
type Gate interface {
	Submit(cmd models.Command) error
	Snapshot() models.GateSessionState
	Subscribe(name string, buf int) *Subscription
}

// ActivityLog records completed commands and serves the history views.
type ActivityLog interface {
	Append(ctx context.Context, e models.LogEntry)
	Recent(ctx context.Context, n int) ([]models.LogEntry, error)
	List(ctx context.Context, f LogFilter) ([]models.LogEntry, error)
	Degraded() bool
}

// Config carries the settings the services need from the outer config.
type Config struct {
	Location   *time.Location
	AutoClose  models.TimeOfDay
	Dispatcher DispatcherConfig
	SigningKey string
	TokenTTL   time.Duration
	Clock      Clock
}

// Service aggregates the sub-services handed to the transports.
type Service struct {
	Gate
	ActivityLog
	Authorization

	dispatcher *Dispatcher
	scheduler  *Scheduler
	activity   *ActivityLogService
}

func NewService(repos *repository.Repository, m Modem, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = WallClock
	}

	activity := NewActivityLogService(repos.Entries, repos.Journal, log.Named("activity"))
	scheduler := NewScheduler(clock, cfg.Location, cfg.AutoClose, log.Named("scheduler"))
	hub := NewHub(log.Named("hub"))
	dispatcher := NewDispatcher(m, scheduler, activity, hub, clock, cfg.Dispatcher, log.Named("dispatcher"))

	return &Service{
		Gate:          dispatcher,
		ActivityLog:   activity,
		Authorization: NewAuthService(repos.Auth, cfg.SigningKey, cfg.TokenTTL),
		dispatcher:    dispatcher,
		scheduler:     scheduler,
		activity:      activity,
	}
}

// Replay loads the newest n journal lines into the history index.
func (s *Service) Replay(ctx context.Context, n int) (int, error) {
	return s.activity.Replay(ctx, n)
}

// Run starts the timers and the dispatcher worker and blocks until ctx is
// cancelled.
func (s *Service) Run(ctx context.Context) {
	s.scheduler.Start(s.dispatcher)
	defer s.scheduler.Stop()
	s.dispatcher.Run(ctx)
}
