package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	logx "controlcenter/pkg/logx"
)

// Notifier receives task lifecycle events. The notification service
// implements it; a nil Notifier disables delivery.
type Notifier interface {
	TaskCompleted(ctx context.Context, t *Task)
	OccurrenceCreated(ctx context.Context, completed *Task, nextID int64)
}

// Service layers completion semantics over the store. Every path that can
// complete a task funnels through complete(), so the recurrence hook fires
// exactly once per completion regardless of which surface triggered it.
type Service struct {
	store    *Store
	notifier Notifier
	log      logx.Logger
	now      func() time.Time
}

func NewService(store *Store, notifier Notifier, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, notifier: notifier, log: log, now: time.Now}
}

func (s *Service) Store() *Store { return s.store }

// ToggleComplete completes an open task or reopens a completed one.
// Returns the task in its new state.
func (s *Service) ToggleComplete(ctx context.Context, id int64) (*Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusComplete {
		if err := s.store.SetStatus(ctx, id, StatusNotStarted); err != nil {
			return nil, err
		}
		return s.store.Get(ctx, id)
	}
	if err := s.complete(ctx, t); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// MoveStatus handles board-style status changes. Moving into the complete
// column runs the full completion path; any other move is a plain update
// that clears completed_at.
func (s *Service) MoveStatus(ctx context.Context, id int64, status Status) (*Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	if status == StatusComplete {
		t, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.complete(ctx, t); err != nil {
			return nil, err
		}
	} else if err := s.store.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// InlineUpdate applies a single-field edit. Field names mirror the API
// surface; a status edit to complete goes through the completion path.
func (s *Service) InlineUpdate(ctx context.Context, id int64, field, value string) (*Task, error) {
	switch field {
	case "status":
		return s.MoveStatus(ctx, id, Status(value))
	case "priority":
		if err := s.store.SetPriority(ctx, id, Priority(value)); err != nil {
			return nil, err
		}
	case "due_date":
		if err := s.store.SetDueDate(ctx, id, value); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("field %q is not inline-editable", field)
	}
	return s.store.Get(ctx, id)
}

// BulkResult reports the outcome of a best-effort bulk operation.
type BulkResult struct {
	Done   []int64          `json:"done"`
	Failed map[int64]string `json:"failed,omitempty"`
}

// BulkComplete completes each task independently. A failure on one id never
// aborts the rest; failures come back keyed by id.
func (s *Service) BulkComplete(ctx context.Context, ids []int64) BulkResult {
	res := BulkResult{}
	for _, id := range ids {
		t, err := s.store.Get(ctx, id)
		if err == nil {
			err = s.complete(ctx, t)
		}
		if err != nil {
			if res.Failed == nil {
				res.Failed = map[int64]string{}
			}
			res.Failed[id] = err.Error()
			s.log.Warn("bulk complete item failed", logx.Int64("task_id", id), logx.Err(err))
			continue
		}
		res.Done = append(res.Done, id)
	}
	return res
}

// BulkDelete removes each task independently, same contract as BulkComplete.
func (s *Service) BulkDelete(ctx context.Context, ids []int64) BulkResult {
	res := BulkResult{}
	for _, id := range ids {
		if err := s.store.Delete(ctx, id); err != nil {
			if res.Failed == nil {
				res.Failed = map[int64]string{}
			}
			res.Failed[id] = err.Error()
			continue
		}
		res.Done = append(res.Done, id)
	}
	return res
}

// complete persists the status transition and, if this call actually flipped
// the task (not a repeat of an already-complete one), runs the recurrence
// hook. A generator failure is logged but never fails the completion: the
// user's action stands.
func (s *Service) complete(ctx context.Context, t *Task) error {
	changed, err := s.store.MarkComplete(ctx, t.ID, s.now())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if s.notifier != nil {
		s.notifier.TaskCompleted(ctx, t)
	}
	if !t.IsRecurring {
		return nil
	}
	nextID, err := s.store.CreateNextOccurrence(ctx, t)
	if err != nil {
		if errors.Is(err, ErrNoDueDate) || errors.Is(err, ErrInvalidRule) {
			s.log.Debug("recurring task has no usable schedule, no successor",
				logx.Int64("task_id", t.ID), logx.Err(err))
			return nil
		}
		s.log.Error("failed to create next occurrence",
			logx.Int64("task_id", t.ID), logx.Err(err))
		return nil
	}
	if s.notifier != nil {
		s.notifier.OccurrenceCreated(ctx, t, nextID)
	}
	return nil
}
