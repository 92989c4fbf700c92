package task

import (
	"context"
	"testing"
	"time"

	logx "controlcenter/pkg/logx"
)

type recordingNotifier struct {
	completed   []int64
	occurrences []int64
}

func (n *recordingNotifier) TaskCompleted(_ context.Context, t *Task) {
	n.completed = append(n.completed, t.ID)
}

func (n *recordingNotifier) OccurrenceCreated(_ context.Context, _ *Task, nextID int64) {
	n.occurrences = append(n.occurrences, nextID)
}

func testService(t *testing.T) (*Service, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	return NewService(testStore(t), n, logx.Nop()), n
}

func recurringFixture(t *testing.T, svc *Service) int64 {
	t.Helper()
	return mustCreate(t, svc.Store(), &Task{
		Title:          "weekly review",
		DueDate:        "2025-04-07",
		Status:         StatusNotStarted,
		Priority:       PriorityMedium,
		IsRecurring:    true,
		RecurrenceRule: RuleWeekly,
	})
}

func countTasks(t *testing.T, svc *Service) int {
	t.Helper()
	all, err := svc.Store().List(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	return len(all)
}

func successorOf(t *testing.T, svc *Service, completedID int64) *Task {
	t.Helper()
	all, err := svc.Store().List(context.Background(), Filter{Statuses: []Status{StatusNotStarted}})
	if err != nil {
		t.Fatal(err)
	}
	for _, task := range all {
		if task.ID != completedID {
			return task
		}
	}
	t.Fatalf("no successor found for task %d", completedID)
	return nil
}

func TestToggleCompleteSpawnsSuccessor(t *testing.T) {
	svc, n := testService(t)
	ctx := context.Background()
	id := recurringFixture(t, svc)

	got, err := svc.ToggleComplete(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusComplete {
		t.Fatalf("toggle did not complete: %+v", got)
	}
	if countTasks(t, svc) != 2 {
		t.Fatalf("expected exactly one successor, have %d tasks", countTasks(t, svc))
	}
	next := successorOf(t, svc, id)
	if next.DueDate != "2025-04-14" {
		t.Fatalf("successor due date = %s, want 2025-04-14", next.DueDate)
	}
	if len(n.completed) != 1 || len(n.occurrences) != 1 {
		t.Fatalf("notifier calls: completed=%d occurrences=%d", len(n.completed), len(n.occurrences))
	}
}

func TestToggleCompleteReopens(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	id := mustCreate(t, svc.Store(), &Task{Title: "one-off", Status: StatusNotStarted, Priority: PriorityLow})

	if _, err := svc.ToggleComplete(ctx, id); err != nil {
		t.Fatal(err)
	}
	got, err := svc.ToggleComplete(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusNotStarted || got.CompletedAt != nil {
		t.Fatalf("reopen failed: %+v", got)
	}
	if countTasks(t, svc) != 1 {
		t.Fatal("non-recurring toggle must not create tasks")
	}
}

func TestMoveStatusCompleteSpawnsSuccessor(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	id := recurringFixture(t, svc)

	if _, err := svc.MoveStatus(ctx, id, StatusInProgress); err != nil {
		t.Fatal(err)
	}
	if countTasks(t, svc) != 1 {
		t.Fatal("non-complete move must not create tasks")
	}

	if _, err := svc.MoveStatus(ctx, id, StatusComplete); err != nil {
		t.Fatal(err)
	}
	if countTasks(t, svc) != 2 {
		t.Fatalf("expected successor after board move, have %d tasks", countTasks(t, svc))
	}
}

func TestMoveStatusCompleteIdempotent(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	id := recurringFixture(t, svc)

	if _, err := svc.MoveStatus(ctx, id, StatusComplete); err != nil {
		t.Fatal(err)
	}
	// The same kanban drop again: guarded transition already fired.
	if _, err := svc.MoveStatus(ctx, id, StatusComplete); err != nil {
		t.Fatal(err)
	}
	if countTasks(t, svc) != 2 {
		t.Fatalf("repeat completion spawned extra successors: %d tasks", countTasks(t, svc))
	}
}

func TestInlineUpdateCompleteSpawnsSuccessor(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	id := recurringFixture(t, svc)

	got, err := svc.InlineUpdate(ctx, id, "status", "complete")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusComplete {
		t.Fatalf("inline complete failed: %+v", got)
	}
	if countTasks(t, svc) != 2 {
		t.Fatalf("inline completion must spawn a successor, have %d tasks", countTasks(t, svc))
	}
}

func TestInlineUpdateOtherFields(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	id := recurringFixture(t, svc)

	got, err := svc.InlineUpdate(ctx, id, "priority", "critical")
	if err != nil {
		t.Fatal(err)
	}
	if got.Priority != PriorityCritical {
		t.Fatalf("priority edit: %+v", got)
	}

	got, err = svc.InlineUpdate(ctx, id, "due_date", "2025-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if got.DueDate != "2025-05-01" {
		t.Fatalf("due date edit: %+v", got)
	}
	if countTasks(t, svc) != 1 {
		t.Fatal("non-status inline edits must not create tasks")
	}

	if _, err := svc.InlineUpdate(ctx, id, "title", "nope"); err == nil {
		t.Fatal("title is not inline-editable")
	}
}

func TestBulkCompleteBestEffort(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	a := recurringFixture(t, svc)
	b := mustCreate(t, svc.Store(), &Task{Title: "plain", Status: StatusNotStarted, Priority: PriorityLow})

	res := svc.BulkComplete(ctx, []int64{a, 777777, b})
	if len(res.Done) != 2 {
		t.Fatalf("done = %v", res.Done)
	}
	if len(res.Failed) != 1 || res.Failed[777777] == "" {
		t.Fatalf("failed = %v", res.Failed)
	}

	// One recurring task completed: exactly one successor among the three rows.
	if countTasks(t, svc) != 3 {
		t.Fatalf("expected 3 tasks after bulk, have %d", countTasks(t, svc))
	}
	for _, id := range []int64{a, b} {
		got, err := svc.Store().Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != StatusComplete {
			t.Fatalf("task %d not completed: %+v", id, got)
		}
	}
}

func TestCompleteRecurringWithoutDueDate(t *testing.T) {
	svc, n := testService(t)
	ctx := context.Background()
	id := mustCreate(t, svc.Store(), &Task{
		Title: "recurring, unscheduled", Status: StatusNotStarted,
		Priority: PriorityLow, IsRecurring: true, RecurrenceRule: RuleDaily,
	})

	got, err := svc.ToggleComplete(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusComplete {
		t.Fatalf("completion must still land: %+v", got)
	}
	if countTasks(t, svc) != 1 {
		t.Fatal("no due date means no successor")
	}
	if len(n.occurrences) != 0 {
		t.Fatalf("no occurrence event expected, got %v", n.occurrences)
	}
}

func TestServiceClockInjection(t *testing.T) {
	svc, _ := testService(t)
	fixed := time.Date(2025, time.September, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	ctx := context.Background()
	id := mustCreate(t, svc.Store(), &Task{Title: "stamp me", Status: StatusNotStarted, Priority: PriorityLow})
	got, err := svc.ToggleComplete(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(fixed) {
		t.Fatalf("completed_at = %v, want %v", got.CompletedAt, fixed)
	}
}
