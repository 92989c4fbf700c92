package notify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"controlcenter/internal/task"
	logx "controlcenter/pkg/logx"
)

// Service emits notifications through a rate limiter so a runaway scan or a
// bulk operation cannot flood the feed. Excess events are dropped, not
// queued; the next scheduled scan will re-detect anything that still holds.
type Service struct {
	store   *Store
	limiter *rate.Limiter
	log     logx.Logger
}

const defaultRatePerSec = 5

func NewService(store *Store, ratePerSec int, log logx.Logger) *Service {
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		log:     log,
	}
}

func (s *Service) Store() *Store { return s.store }

// Emit writes a notification unless the limiter rejects it.
func (s *Service) Emit(ctx context.Context, level Level, link, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !s.limiter.Allow() {
		s.log.Debug("notification dropped by rate limit", logx.String("message", msg))
		return
	}
	if _, err := s.store.Add(ctx, &Notification{Message: msg, Level: level, Link: link}); err != nil {
		s.log.Error("failed to store notification", logx.Err(err))
	}
}

// emitOnce suppresses duplicates of the same message inside the window
// before emitting.
func (s *Service) emitOnce(ctx context.Context, level Level, link, msg string, window time.Duration) {
	seen, err := s.store.HasRecent(ctx, msg, window)
	if err != nil {
		s.log.Error("duplicate check failed", logx.Err(err))
		return
	}
	if seen {
		return
	}
	s.Emit(ctx, level, link, "%s", msg)
}

// TaskCompleted and OccurrenceCreated make Service a task completion
// observer.

func (s *Service) TaskCompleted(ctx context.Context, t *task.Task) {
	s.Emit(ctx, LevelInfo, fmt.Sprintf("/tasks/%d", t.ID), "Completed: %s", t.Title)
}

func (s *Service) OccurrenceCreated(ctx context.Context, completed *task.Task, nextID int64) {
	s.Emit(ctx, LevelInfo, fmt.Sprintf("/tasks/%d", nextID),
		"Next %s occurrence scheduled: %s", completed.RecurrenceRule, completed.Title)
}

var _ task.Notifier = (*Service)(nil)
