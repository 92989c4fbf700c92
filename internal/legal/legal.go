// Package legal tracks matters: litigation, compliance work,
// investigations and transactions, with the stakeholders involved in each.
package legal

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

var ErrNotFound = errors.New("legal matter not found")

const dateFormat = "2006-01-02"

type Status string

const (
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusSettled  Status = "settled"
	StatusClosed   Status = "closed"
	StatusAppealed Status = "appealed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusSettled, StatusClosed, StatusAppealed:
		return true
	}
	return false
}

type Matter struct {
	ID               int64            `json:"id"`
	Title            string           `json:"title"`
	CaseNumber       string           `json:"case_number"`
	MatterType       string           `json:"matter_type"`
	Status           Status           `json:"status"`
	Jurisdiction     string           `json:"jurisdiction"`
	Court            string           `json:"court"`
	FilingDate       string           `json:"filing_date,omitempty"`
	NextHearingDate  string           `json:"next_hearing_date,omitempty"`
	SettlementAmount *decimal.Decimal `json:"settlement_amount,omitempty"`
	JudgmentAmount   *decimal.Decimal `json:"judgment_amount,omitempty"`
	Outcome          string           `json:"outcome"`
	Description      string           `json:"description"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Party is a stakeholder's role on a matter: plaintiff, defendant, counsel.
type Party struct {
	MatterID      int64  `json:"matter_id"`
	StakeholderID int64  `json:"stakeholder_id"`
	Role          string `json:"role"`
}

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

func (s *Store) validate(m *Matter) error {
	if strings.TrimSpace(m.Title) == "" {
		return errors.New("title is required")
	}
	for _, d := range []string{m.FilingDate, m.NextHearingDate} {
		if d != "" {
			if _, err := time.Parse(dateFormat, d); err != nil {
				return errors.New("dates must be YYYY-MM-DD")
			}
		}
	}
	if m.Status != "" && !m.Status.Valid() {
		return errors.New("invalid status")
	}
	return nil
}

func nullDec(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func (s *Store) Create(ctx context.Context, m *Matter) (int64, error) {
	if err := s.validate(m); err != nil {
		return 0, err
	}
	if m.Status == "" {
		m.Status = StatusOpen
	}
	if m.MatterType == "" {
		m.MatterType = "other"
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO legal_matters(title, case_number, matter_type, status, jurisdiction,
			court, filing_date, next_hearing_date, settlement_amount, judgment_amount,
			outcome, description, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.Title, m.CaseNumber, m.MatterType, m.Status, m.Jurisdiction, m.Court,
		storage.NullStr(m.FilingDate), storage.NullStr(m.NextHearingDate),
		nullDec(m.SettlementAmount), nullDec(m.JudgmentAmount),
		m.Outcome, m.Description, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	m.ID = id
	return id, err
}

const matterColumns = `id, title, case_number, matter_type, status, jurisdiction,
	court, filing_date, next_hearing_date, settlement_amount, judgment_amount,
	outcome, description, created_at, updated_at`

func scanMatter(row interface{ Scan(...any) error }) (*Matter, error) {
	var (
		m                    Matter
		filing, hearing      sql.NullString
		settlement, judgment sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&m.ID, &m.Title, &m.CaseNumber, &m.MatterType, &m.Status,
		&m.Jurisdiction, &m.Court, &filing, &hearing, &settlement, &judgment,
		&m.Outcome, &m.Description, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.FilingDate = filing.String
	m.NextHearingDate = hearing.String
	if settlement.Valid && settlement.String != "" {
		if d, err := decimal.NewFromString(settlement.String); err == nil {
			m.SettlementAmount = &d
		}
	}
	if judgment.Valid && judgment.String != "" {
		if d, err := decimal.NewFromString(judgment.String); err == nil {
			m.JudgmentAmount = &d
		}
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &m, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Matter, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+matterColumns+` FROM legal_matters WHERE id = ?`, id)
	m, err := scanMatter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

type Filter struct {
	Query      string
	Statuses   []Status
	MatterType string
}

func (s *Store) List(ctx context.Context, f Filter) ([]*Matter, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, `(title LIKE ? OR case_number LIKE ?)`)
		pat := "%" + q + "%"
		args = append(args, pat, pat)
	}
	if len(f.Statuses) > 0 {
		ph := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			ph[i] = "?"
			args = append(args, st)
		}
		where = append(where, "status IN ("+strings.Join(ph, ",")+")")
	}
	if f.MatterType != "" {
		where = append(where, "matter_type = ?")
		args = append(args, f.MatterType)
	}

	q := `SELECT ` + matterColumns + ` FROM legal_matters`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Matter
	for rows.Next() {
		m, err := scanMatter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListUpcomingHearings returns open-ish matters with a hearing inside the
// window, for the notification scans.
func (s *Store) ListUpcomingHearings(ctx context.Context, from, to string) ([]*Matter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+matterColumns+` FROM legal_matters
		 WHERE status IN (?, ?, ?) AND next_hearing_date IS NOT NULL
		   AND next_hearing_date >= ? AND next_hearing_date <= ?
		 ORDER BY next_hearing_date`,
		StatusOpen, StatusPending, StatusAppealed, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Matter
	for rows.Next() {
		m, err := scanMatter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, m *Matter) error {
	if err := s.validate(m); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE legal_matters SET title=?, case_number=?, matter_type=?, status=?,
			jurisdiction=?, court=?, filing_date=?, next_hearing_date=?,
			settlement_amount=?, judgment_amount=?, outcome=?, description=?, updated_at=?
		 WHERE id = ?`,
		m.Title, m.CaseNumber, m.MatterType, m.Status, m.Jurisdiction, m.Court,
		storage.NullStr(m.FilingDate), storage.NullStr(m.NextHearingDate),
		nullDec(m.SettlementAmount), nullDec(m.JudgmentAmount),
		m.Outcome, m.Description, time.Now().UTC().Format(time.RFC3339Nano), m.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM legal_matters WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetParty(ctx context.Context, p *Party) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO legal_matter_stakeholders(matter_id, stakeholder_id, role)
		 VALUES(?,?,?)
		 ON CONFLICT(matter_id, stakeholder_id) DO UPDATE SET role=excluded.role`,
		p.MatterID, p.StakeholderID, p.Role)
	return err
}

func (s *Store) Parties(ctx context.Context, matterID int64) ([]*Party, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT matter_id, stakeholder_id, role
		 FROM legal_matter_stakeholders WHERE matter_id = ? ORDER BY stakeholder_id`, matterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Party
	for rows.Next() {
		var p Party
		if err := rows.Scan(&p.MatterID, &p.StakeholderID, &p.Role); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Store) RemoveParty(ctx context.Context, matterID, stakeholderID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM legal_matter_stakeholders WHERE matter_id = ? AND stakeholder_id = ?`,
		matterID, stakeholderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
