package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gate_control/internal/logger"
	"gate_control/internal/models"
	"gate_control/internal/repository"

	"github.com/google/uuid"
)

// ErrInvalidFilter wraps every rejected LogFilter.
var ErrInvalidFilter = errors.New("invalid log filter")

var errInvalidTimeRange = fmt.Errorf("%w: from must be <= to", ErrInvalidFilter)

// ActivityLogService keeps the append-only journal and its query index in step.
type ActivityLogService struct {
	index    repository.EntryIndex
	journal  repository.Journal
	log      *logger.Logger
	degraded atomic.Bool
}

func NewActivityLogService(index repository.EntryIndex, journal repository.Journal, log *logger.Logger) *ActivityLogService {
	if log == nil {
		log = logger.Nop()
	}
	return &ActivityLogService{index: index, journal: journal, log: log}
}

// Append records e. It never fails the caller: a journal write failure marks
// the log degraded until the next successful write, and the index keeps
// serving Recent regardless.
func (s *ActivityLogService) Append(ctx context.Context, e models.LogEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	if err := s.journal.Append(e); err != nil {
		if !s.degraded.Swap(true) {
			s.log.Errorw("activity_log_degraded", "err", err, "command_id", e.CommandID)
		}
	} else if s.degraded.Swap(false) {
		s.log.Infow("activity_log_recovered", "command_id", e.CommandID)
	}

	if err := s.index.Append(ctx, e); err != nil {
		s.log.Errorw("activity_index_append_failed", "err", err, "command_id", e.CommandID)
	}
}

// Degraded reports whether the last journal write failed.
func (s *ActivityLogService) Degraded() bool {
	return s.degraded.Load()
}

// Recent returns at most n entries, newest first.
func (s *ActivityLogService) Recent(ctx context.Context, n int) ([]models.LogEntry, error) {
	return s.index.Recent(ctx, n)
}

func (s *ActivityLogService) List(ctx context.Context, f LogFilter) ([]models.LogEntry, error) {
	q, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.index.List(ctx, q)
}

// Replay loads the last n journal lines into the index so history survives a
// restart. It returns how many entries were loaded.
func (s *ActivityLogService) Replay(ctx context.Context, n int) (int, error) {
	entries, err := s.journal.Tail(n)
	if err != nil {
		return 0, fmt.Errorf("replay activity log: %w", err)
	}
	for i, e := range entries {
		if err := s.index.Append(ctx, e); err != nil {
			return i, fmt.Errorf("replay activity log: %w", err)
		}
	}
	return len(entries), nil
}

func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeAndValidateFilter turns user input into an index query.
func normalizeAndValidateFilter(f LogFilter) (repository.EntryQuery, error) {
	q := repository.EntryQuery{
		From:  normalizeToUTC(f.From),
		To:    normalizeToUTC(f.To),
		Limit: f.Limit,
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return repository.EntryQuery{}, errInvalidTimeRange
	}
	if strings.TrimSpace(f.Source) != "" {
		src, err := models.ParseSource(f.Source)
		if err != nil {
			return repository.EntryQuery{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		q.Source = src
	}
	if strings.TrimSpace(f.Command) != "" {
		kind, err := models.ParseCommandKind(f.Command)
		if err != nil {
			return repository.EntryQuery{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		q.Command = kind
	}
	switch {
	case q.Limit <= 0:
		q.Limit = defaultLogLimit
	case q.Limit > maxLogLimit:
		q.Limit = maxLogLimit
	}
	return q, nil
}
