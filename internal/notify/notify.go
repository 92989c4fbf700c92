// Package notify persists in-app notifications and produces them from
// periodic scans over the rest of the data: overdue tasks, due reminders,
// stale follow-ups, upcoming hearings and expiring insurance.
package notify

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"controlcenter/internal/storage"
)

var ErrNotFound = errors.New("notification not found")

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelUrgent  Level = "urgent"
)

type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Level     Level     `json:"level"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *storage.DB) *Store {
	return &Store{db: db.SQL()}
}

func (s *Store) Add(ctx context.Context, n *Notification) (int64, error) {
	if n.Level == "" {
		n.Level = LevelInfo
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications(message, level, link, is_read, created_at) VALUES(?,?,?,0,?)`,
		n.Message, n.Level, n.Link, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	n.ID = id
	return id, err
}

// List returns newest first. unreadOnly narrows to unread; limit 0 means no cap.
func (s *Store) List(ctx context.Context, unreadOnly bool, limit int) ([]*Notification, error) {
	q := `SELECT id, message, level, link, is_read, created_at FROM notifications`
	if unreadOnly {
		q += ` WHERE is_read = 0`
	}
	q += ` ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var (
			n         Notification
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.Message, &n.Level, &n.Link, &n.IsRead, &createdAt); err != nil {
			return nil, err
		}
		n.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *Store) UnreadCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE is_read = 0`).Scan(&n)
	return n, err
}

func (s *Store) MarkRead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE is_read = 0`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// HasRecent reports whether a notification with this exact message was
// created within the window. The scans use it to avoid re-raising the same
// alert every run.
func (s *Store) HasRecent(ctx context.Context, message string, window time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-window).Format(time.RFC3339Nano)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE message = ? AND created_at >= ?`,
		message, cutoff).Scan(&n)
	return n > 0, err
}

// Prune deletes read notifications older than the cutoff.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read = 1 AND created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
