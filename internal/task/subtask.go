package task

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

func (s *Store) ListSubtasks(ctx context.Context, taskID int64) ([]*SubTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, title, is_completed, sort_order, created_at
		 FROM subtasks WHERE task_id = ? ORDER BY sort_order, id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SubTask
	for rows.Next() {
		var (
			st      SubTask
			created string
		)
		if err := rows.Scan(&st.ID, &st.TaskID, &st.Title, &st.IsCompleted, &st.SortOrder, &created); err != nil {
			return nil, err
		}
		st.CreatedAt = parseTime(created)
		out = append(out, &st)
	}
	return out, rows.Err()
}

// AddSubtask appends a checklist item at the end of the task's list.
func (s *Store) AddSubtask(ctx context.Context, taskID int64, title string) (*SubTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("subtask title is required")
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tasks WHERE id = ?)`, taskID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subtasks(task_id, title, is_completed, sort_order, created_at)
		 VALUES(?, ?, 0, COALESCE((SELECT MAX(sort_order)+1 FROM subtasks WHERE task_id = ?), 0), ?)`,
		taskID, title, taskID, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &SubTask{ID: id, TaskID: taskID, Title: title, CreatedAt: now}, nil
}

// ToggleSubtask flips completion and returns the new state.
func (s *Store) ToggleSubtask(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subtasks SET is_completed = 1 - is_completed WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrNotFound
	}
	var done bool
	err = s.db.QueryRowContext(ctx, `SELECT is_completed FROM subtasks WHERE id = ?`, id).Scan(&done)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	return done, err
}

func (s *Store) RenameSubtask(ctx context.Context, id int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("subtask title is required")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE subtasks SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSubtask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
