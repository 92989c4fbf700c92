package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

// Store owns Task persistence, including subtasks and follow-ups.
type Store struct {
	db  *sql.DB
	log logx.Logger
}

func NewStore(db *storage.DB, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{db: db.SQL(), log: log}
}

const taskColumns = `t.id, t.title, t.description, t.due_date, t.due_time, t.reminder_date,
	t.status, t.priority, t.task_type, t.direction, t.legal_matter_id, t.property_id,
	t.is_recurring, t.recurrence_rule, t.created_at, t.updated_at, t.completed_at,
	(SELECT COUNT(*) FROM subtasks st WHERE st.task_id = t.id),
	(SELECT COUNT(*) FROM subtasks st WHERE st.task_id = t.id AND st.is_completed = 1)`

func scanTask(row interface{ Scan(...any) error }) (*Task, error) {
	var (
		t                    Task
		dueDate, dueTime     sql.NullString
		reminder, completed  sql.NullString
		legalID, propertyID  sql.NullInt64
		createdAt, updatedAt string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &dueDate, &dueTime, &reminder,
		&t.Status, &t.Priority, &t.Type, &t.Direction, &legalID, &propertyID,
		&t.IsRecurring, &t.RecurrenceRule, &createdAt, &updatedAt, &completed,
		&t.SubtaskCount, &t.SubtaskDone)
	if err != nil {
		return nil, err
	}
	t.DueDate = dueDate.String
	t.DueTime = dueTime.String
	t.ReminderDate = parseNullTime(reminder)
	t.CompletedAt = parseNullTime(completed)
	if legalID.Valid {
		t.LegalMatterID = &legalID.Int64
	}
	if propertyID.Valid {
		t.PropertyID = &propertyID.Int64
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

func parseTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &ts
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// Create inserts the task and its stakeholder links in one transaction.
func (s *Store) Create(ctx context.Context, t *Task) (int64, error) {
	if strings.TrimSpace(t.Title) == "" {
		return 0, errors.New("title is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tasks(title, description, due_date, due_time, reminder_date,
			status, priority, task_type, direction, legal_matter_id, property_id,
			is_recurring, recurrence_rule, created_at, updated_at, completed_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.Title, t.Description, storage.NullStr(t.DueDate), storage.NullStr(t.DueTime),
		nullTimePtr(t.ReminderDate), t.Status, t.Priority, t.Type, t.Direction,
		nullInt(t.LegalMatterID), nullInt(t.PropertyID),
		t.IsRecurring, string(t.RecurrenceRule), now, now, nullTimePtr(t.CompletedAt),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := setStakeholdersTx(ctx, tx, id, t.StakeholderIDs); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	t.ID = id
	return id, nil
}

func nullTimePtr(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func setStakeholdersTx(ctx context.Context, tx *sql.Tx, taskID int64, ids []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_stakeholders WHERE task_id = ?`, taskID); err != nil {
		return err
	}
	for _, sid := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_stakeholders(task_id, stakeholder_id) VALUES(?,?)`,
			taskID, sid); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.StakeholderIDs, err = s.stakeholderIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) stakeholderIDs(ctx context.Context, taskID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stakeholder_id FROM task_stakeholders WHERE task_id = ? ORDER BY stakeholder_id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update rewrites all user-editable fields and the stakeholder set.
func (s *Store) Update(ctx context.Context, t *Task) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET title=?, description=?, due_date=?, due_time=?, reminder_date=?,
			status=?, priority=?, task_type=?, direction=?, legal_matter_id=?, property_id=?,
			is_recurring=?, recurrence_rule=?, updated_at=?, completed_at=?
		 WHERE id = ?`,
		t.Title, t.Description, storage.NullStr(t.DueDate), storage.NullStr(t.DueTime),
		nullTimePtr(t.ReminderDate), t.Status, t.Priority, t.Type, t.Direction,
		nullInt(t.LegalMatterID), nullInt(t.PropertyID),
		t.IsRecurring, string(t.RecurrenceRule), now, nullTimePtr(t.CompletedAt), t.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := setStakeholdersTx(ctx, tx, t.ID, t.StakeholderIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkComplete transitions the task to complete.
//
// The conditional WHERE makes the transition fire at most once per completion
// event: two racing requests both get err == nil, but only one sees
// changed == true and therefore only one triggers the occurrence generator.
func (s *Store) MarkComplete(ctx context.Context, id int64, at time.Time) (changed bool, err error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status=?, completed_at=?, updated_at=?
		 WHERE id = ? AND status <> ?`,
		StatusComplete, at.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano), id, StatusComplete)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SetStatus moves the task to a non-complete status and clears completed_at.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	if status == StatusComplete {
		return errors.New("use MarkComplete for the complete transition")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status=?, completed_at=NULL, updated_at=? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPriority updates priority in place (inline edit path).
func (s *Store) SetPriority(ctx context.Context, id int64, p Priority) error {
	if !p.Valid() {
		return fmt.Errorf("invalid priority %q", p)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET priority=?, updated_at=? WHERE id = ?`,
		p, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDueDate updates the due date in place; empty clears it.
func (s *Store) SetDueDate(ctx context.Context, id int64, date string) error {
	if date != "" {
		if _, err := time.Parse(DateFormat, date); err != nil {
			return fmt.Errorf("invalid due date %q: %w", date, err)
		}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET due_date=?, updated_at=? WHERE id = ?`,
		storage.NullStr(date), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateNextOccurrence builds and persists the successor of a just-completed
// recurring task and returns its id.
//
// The successor copies title, description, due time, priority, type,
// direction, related legal matter/property, the recurrence settings and the
// full stakeholder set; due date is advanced by the recurrence rule; status
// resets to not_started with a cleared completion timestamp. Subtasks,
// follow-ups and the reminder date are never copied. The insert plus the
// stakeholder links are a single transaction; on any failure nothing is
// written and the store error is returned unchanged. The original task is
// not touched.
func (s *Store) CreateNextOccurrence(ctx context.Context, t *Task) (int64, error) {
	if t == nil || !t.IsRecurring {
		return 0, ErrNotRecurring
	}
	if strings.TrimSpace(t.DueDate) == "" {
		return 0, ErrNoDueDate
	}
	due, err := time.Parse(DateFormat, t.DueDate)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoDueDate, err)
	}
	next, err := NextDueDate(due, t.RecurrenceRule)
	if err != nil {
		return 0, err
	}

	succ := &Task{
		Title:          t.Title,
		Description:    t.Description,
		DueDate:        next.Format(DateFormat),
		DueTime:        t.DueTime,
		Status:         StatusNotStarted,
		Priority:       t.Priority,
		Type:           t.Type,
		Direction:      t.Direction,
		LegalMatterID:  t.LegalMatterID,
		PropertyID:     t.PropertyID,
		IsRecurring:    true,
		RecurrenceRule: t.RecurrenceRule,
		StakeholderIDs: t.StakeholderIDs,
	}
	id, err := s.Create(ctx, succ)
	if err != nil {
		return 0, err
	}
	s.log.Debug("created next occurrence",
		logx.Int64("task_id", t.ID), logx.Int64("next_id", id),
		logx.String("rule", string(t.RecurrenceRule)), logx.String("due", succ.DueDate))
	return id, nil
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Query         string
	Statuses      []Status
	Priority      Priority
	Directions    []Direction
	Types         []Type
	StakeholderID int64
	DateFrom      string
	DateTo        string

	Sort string // title|status|priority|due_date|direction|created_at
	Dir  string // asc|desc

	Limit  int
	Offset int
}

func (s *Store) List(ctx context.Context, f Filter) ([]*Task, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, `t.title LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q)+"%")
	}
	if len(f.Statuses) > 0 {
		ph := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			ph[i] = "?"
			args = append(args, st)
		}
		where = append(where, "t.status IN ("+strings.Join(ph, ",")+")")
	}
	if f.Priority != "" {
		where = append(where, "t.priority = ?")
		args = append(args, f.Priority)
	}
	if len(f.Directions) > 0 {
		ph := make([]string, len(f.Directions))
		for i, d := range f.Directions {
			ph[i] = "?"
			args = append(args, d)
		}
		where = append(where, "t.direction IN ("+strings.Join(ph, ",")+")")
	}
	if len(f.Types) > 0 {
		ph := make([]string, len(f.Types))
		for i, tt := range f.Types {
			ph[i] = "?"
			args = append(args, tt)
		}
		where = append(where, "t.task_type IN ("+strings.Join(ph, ",")+")")
	}
	if f.StakeholderID > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM task_stakeholders ts WHERE ts.task_id = t.id AND ts.stakeholder_id = ?)")
		args = append(args, f.StakeholderID)
	}
	if f.DateFrom != "" {
		where = append(where, "t.due_date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		where = append(where, "t.due_date <= ?")
		args = append(args, f.DateTo)
	}

	q := `SELECT ` + taskColumns + ` FROM tasks t`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + orderClause(f.Sort, f.Dir)
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, max(f.Offset, 0))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, t := range out {
		t.StakeholderIDs, err = s.stakeholderIDs(ctx, t.ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// orderClause whitelists sortable columns; priority and status sort by their
// semantic order, not alphabetically.
func orderClause(sort, dir string) string {
	desc := dir != "asc"
	suffix := ""
	if desc {
		suffix = " DESC"
	}
	switch sort {
	case "title", "direction":
		return "t." + sort + suffix
	case "due_date":
		return "t.due_date" + suffix + ", t.priority"
	case "priority":
		return `CASE t.priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END` + suffix
	case "status":
		return `CASE t.status WHEN 'not_started' THEN 0 WHEN 'in_progress' THEN 1 WHEN 'waiting' THEN 2 WHEN 'complete' THEN 3 ELSE 4 END` + suffix
	case "created_at":
		return "t.created_at" + suffix
	default:
		return "t.created_at DESC"
	}
}

// ListOverdue returns incomplete tasks due strictly before today.
func (s *Store) ListOverdue(ctx context.Context, today string) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t
		 WHERE t.due_date IS NOT NULL AND t.due_date < ? AND t.status <> ?
		 ORDER BY t.due_date`, today, StatusComplete)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListUpcomingReminders returns incomplete tasks whose reminder falls inside
// [now, now+window].
func (s *Store) ListUpcomingReminders(ctx context.Context, now time.Time, window time.Duration) ([]*Task, error) {
	lo := now.UTC().Format(time.RFC3339Nano)
	hi := now.Add(window).UTC().Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t
		 WHERE t.reminder_date IS NOT NULL AND t.reminder_date >= ? AND t.reminder_date <= ?
		   AND t.status <> ?
		 ORDER BY t.reminder_date`, lo, hi, StatusComplete)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]*Task, error) {
	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
