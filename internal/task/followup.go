package task

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const followUpColumns = `id, task_id, stakeholder_id, outreach_date, method,
	reminder_enabled, follow_up_days, response_received, response_date,
	response_notes, notes_text`

func scanFollowUp(row interface{ Scan(...any) error }) (*FollowUp, error) {
	var (
		f            FollowUp
		stakeholder  sql.NullInt64
		outreach     string
		responseDate sql.NullString
	)
	err := row.Scan(&f.ID, &f.TaskID, &stakeholder, &outreach, &f.Method,
		&f.ReminderEnabled, &f.FollowUpDays, &f.ResponseReceived, &responseDate,
		&f.ResponseNotes, &f.NotesText)
	if err != nil {
		return nil, err
	}
	if stakeholder.Valid {
		f.StakeholderID = &stakeholder.Int64
	}
	if d, err := time.Parse(DateFormat, outreach); err == nil {
		f.OutreachDate = d
	}
	if responseDate.Valid {
		if d, err := time.Parse(DateFormat, responseDate.String); err == nil {
			f.ResponseDate = &d
		}
	}
	return &f, nil
}

func (s *Store) ListFollowUps(ctx context.Context, taskID int64) ([]*FollowUp, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+followUpColumns+` FROM follow_ups WHERE task_id = ? ORDER BY outreach_date DESC, id DESC`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFollowUps(rows)
}

func (s *Store) AddFollowUp(ctx context.Context, f *FollowUp) (int64, error) {
	if f.OutreachDate.IsZero() {
		return 0, errors.New("outreach date is required")
	}
	if f.FollowUpDays <= 0 {
		f.FollowUpDays = 3
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO follow_ups(task_id, stakeholder_id, outreach_date, method,
			reminder_enabled, follow_up_days, response_received, response_date,
			response_notes, notes_text)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		f.TaskID, nullInt(f.StakeholderID), f.OutreachDate.Format(DateFormat), f.Method,
		f.ReminderEnabled, f.FollowUpDays, f.ResponseReceived, nullDatePtr(f.ResponseDate),
		f.ResponseNotes, f.NotesText)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

func nullDatePtr(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Format(DateFormat)
}

func (s *Store) UpdateFollowUp(ctx context.Context, f *FollowUp) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE follow_ups SET stakeholder_id=?, outreach_date=?, method=?,
			reminder_enabled=?, follow_up_days=?, response_received=?, response_date=?,
			response_notes=?, notes_text=?
		 WHERE id = ?`,
		nullInt(f.StakeholderID), f.OutreachDate.Format(DateFormat), f.Method,
		f.ReminderEnabled, f.FollowUpDays, f.ResponseReceived, nullDatePtr(f.ResponseDate),
		f.ResponseNotes, f.NotesText, f.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordResponse marks the follow-up as answered, which also silences its
// stale reminder.
func (s *Store) RecordResponse(ctx context.Context, id int64, date time.Time, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE follow_ups SET response_received=1, response_date=?, response_notes=? WHERE id = ?`,
		date.Format(DateFormat), notes, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteFollowUp(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM follow_ups WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStaleFollowUps returns reminder-enabled follow-ups with no response
// whose reminder window has elapsed as of the given day.
func (s *Store) ListStaleFollowUps(ctx context.Context, today time.Time) ([]*FollowUp, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+followUpColumns+` FROM follow_ups
		 WHERE reminder_enabled = 1 AND response_received = 0
		   AND date(outreach_date, '+' || follow_up_days || ' days') <= ?
		 ORDER BY outreach_date`, today.Format(DateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFollowUps(rows)
}

func collectFollowUps(rows *sql.Rows) ([]*FollowUp, error) {
	var out []*FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
