package notify

import (
	"context"
	"fmt"
	"time"

	"controlcenter/internal/asset"
	"controlcenter/internal/legal"
	"controlcenter/internal/task"
	logx "controlcenter/pkg/logx"
)

const dateFormat = "2006-01-02"

// Scanner walks the other stores looking for conditions worth surfacing.
// Each scan method maps to a scheduled job; all of them deduplicate through
// the store so reruns within the window stay quiet.
type Scanner struct {
	svc    *Service
	tasks  *task.Store
	legal  *legal.Store
	assets *asset.Store
	log    logx.Logger

	now func() time.Time
}

func NewScanner(svc *Service, tasks *task.Store, lg *legal.Store, assets *asset.Store, log logx.Logger) *Scanner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scanner{svc: svc, tasks: tasks, legal: lg, assets: assets, log: log, now: time.Now}
}

const dedupeWindow = 20 * time.Hour

// ScanOverdueTasks raises a warning per task past its due date.
func (sc *Scanner) ScanOverdueTasks(ctx context.Context) error {
	today := sc.now().UTC().Format(dateFormat)
	overdue, err := sc.tasks.ListOverdue(ctx, today)
	if err != nil {
		return fmt.Errorf("list overdue tasks: %w", err)
	}
	for _, t := range overdue {
		msg := fmt.Sprintf("Overdue: %s (due %s)", t.Title, t.DueDate)
		sc.svc.emitOnce(ctx, LevelWarning, fmt.Sprintf("/tasks/%d", t.ID), msg, dedupeWindow)
	}
	sc.log.Debug("overdue scan done", logx.Int("matches", len(overdue)))
	return nil
}

// ScanReminders surfaces tasks whose reminder falls inside the window.
func (sc *Scanner) ScanReminders(ctx context.Context, window time.Duration) error {
	due, err := sc.tasks.ListUpcomingReminders(ctx, sc.now(), window)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}
	for _, t := range due {
		msg := fmt.Sprintf("Reminder: %s", t.Title)
		sc.svc.emitOnce(ctx, LevelInfo, fmt.Sprintf("/tasks/%d", t.ID), msg, dedupeWindow)
	}
	return nil
}

// ScanStaleFollowUps flags outreach with no response past its follow-up
// window.
func (sc *Scanner) ScanStaleFollowUps(ctx context.Context) error {
	stale, err := sc.tasks.ListStaleFollowUps(ctx, sc.now())
	if err != nil {
		return fmt.Errorf("list stale follow-ups: %w", err)
	}
	for _, f := range stale {
		msg := fmt.Sprintf("No response since %s outreach, follow up (task #%d)",
			f.OutreachDate.Format(dateFormat), f.TaskID)
		sc.svc.emitOnce(ctx, LevelWarning, fmt.Sprintf("/tasks/%d", f.TaskID), msg, dedupeWindow)
	}
	return nil
}

// ScanUpcomingHearings looks two weeks out.
func (sc *Scanner) ScanUpcomingHearings(ctx context.Context) error {
	from := sc.now().UTC()
	to := from.AddDate(0, 0, 14)
	matters, err := sc.legal.ListUpcomingHearings(ctx, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return fmt.Errorf("list upcoming hearings: %w", err)
	}
	for _, m := range matters {
		msg := fmt.Sprintf("Hearing %s: %s", m.NextHearingDate, m.Title)
		sc.svc.emitOnce(ctx, LevelUrgent, fmt.Sprintf("/legal-matters/%d", m.ID), msg, dedupeWindow)
	}
	return nil
}

// ScanExpiringPolicies looks thirty days out for policies that will not
// auto-renew.
func (sc *Scanner) ScanExpiringPolicies(ctx context.Context) error {
	from := sc.now().UTC()
	to := from.AddDate(0, 0, 30)
	policies, err := sc.assets.ListExpiringPolicies(ctx, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return fmt.Errorf("list expiring policies: %w", err)
	}
	for _, p := range policies {
		msg := fmt.Sprintf("Policy %s expires %s", p.Name, p.ExpirationDate)
		sc.svc.emitOnce(ctx, LevelWarning, fmt.Sprintf("/insurance-policies/%d", p.ID), msg, dedupeWindow)
	}
	return nil
}

// ScanDaily bundles the once-a-day checks into one job.
func (sc *Scanner) ScanDaily(ctx context.Context) error {
	if err := sc.ScanOverdueTasks(ctx); err != nil {
		return err
	}
	if err := sc.ScanUpcomingHearings(ctx); err != nil {
		return err
	}
	return sc.ScanExpiringPolicies(ctx)
}
