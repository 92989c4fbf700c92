// Package cashflow records money movement: actuals and projections, income
// and expenses, optionally tied to a stakeholder, property, loan or
// investment. Recurring entries roll forward on the same recurrence rules
// tasks use.
package cashflow

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"controlcenter/internal/storage"
	"controlcenter/internal/task"
	logx "controlcenter/pkg/logx"
)

var ErrNotFound = errors.New("cashflow entry not found")

const dateFormat = "2006-01-02"

type EntryType string

const (
	TypeIncome  EntryType = "income"
	TypeExpense EntryType = "expense"
)

func (t EntryType) Valid() bool { return t == TypeIncome || t == TypeExpense }

type Entry struct {
	ID             int64           `json:"id"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Type           EntryType       `json:"entry_type"`
	Category       string          `json:"category"`
	Date           string          `json:"date"`
	IsProjected    bool            `json:"is_projected"`
	IsRecurring    bool            `json:"is_recurring"`
	RecurrenceRule task.Rule       `json:"recurrence_rule,omitempty"`
	StakeholderID  *int64          `json:"stakeholder_id,omitempty"`
	PropertyID     *int64          `json:"property_id,omitempty"`
	LoanID         *int64          `json:"loan_id,omitempty"`
	InvestmentID   *int64          `json:"investment_id,omitempty"`
	NotesText      string          `json:"notes_text"`
	CreatedAt      time.Time       `json:"created_at"`
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

func validate(e *Entry) error {
	if strings.TrimSpace(e.Description) == "" {
		return errors.New("description is required")
	}
	if !e.Type.Valid() {
		return errors.New("entry_type must be income or expense")
	}
	if e.Amount.IsNegative() || e.Amount.IsZero() {
		return errors.New("amount must be positive")
	}
	if _, err := time.Parse(dateFormat, e.Date); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	if e.IsRecurring && !e.RecurrenceRule.Valid() {
		return errors.New("recurring entry needs a valid recurrence_rule")
	}
	return nil
}

func nullID(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func (s *Store) Create(ctx context.Context, e *Entry) (int64, error) {
	if err := validate(e); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cashflow_entries(description, amount, entry_type, category, date,
			is_projected, is_recurring, recurrence_rule, stakeholder_id, property_id,
			loan_id, investment_id, notes_text, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.Description, e.Amount.String(), e.Type, e.Category, e.Date,
		e.IsProjected, e.IsRecurring, string(e.RecurrenceRule),
		nullID(e.StakeholderID), nullID(e.PropertyID), nullID(e.LoanID),
		nullID(e.InvestmentID), e.NotesText, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	e.ID = id
	return id, err
}

const entryColumns = `id, description, amount, entry_type, category, date,
	is_projected, is_recurring, recurrence_rule, stakeholder_id, property_id,
	loan_id, investment_id, notes_text, created_at`

func scanEntry(row interface{ Scan(...any) error }) (*Entry, error) {
	var (
		e                 Entry
		amount, createdAt string
		shID, propID      sql.NullInt64
		loanID, invID     sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.Description, &amount, &e.Type, &e.Category, &e.Date,
		&e.IsProjected, &e.IsRecurring, &e.RecurrenceRule, &shID, &propID,
		&loanID, &invID, &e.NotesText, &createdAt)
	if err != nil {
		return nil, err
	}
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	if shID.Valid {
		e.StakeholderID = &shID.Int64
	}
	if propID.Valid {
		e.PropertyID = &propID.Int64
	}
	if loanID.Valid {
		e.LoanID = &loanID.Int64
	}
	if invID.Valid {
		e.InvestmentID = &invID.Int64
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &e, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM cashflow_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

type Filter struct {
	Type      EntryType
	Category  string
	DateFrom  string
	DateTo    string
	Projected *bool
}

func (s *Store) List(ctx context.Context, f Filter) ([]*Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "entry_type = ?")
		args = append(args, f.Type)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.DateFrom != "" {
		where = append(where, "date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		where = append(where, "date <= ?")
		args = append(args, f.DateTo)
	}
	if f.Projected != nil {
		where = append(where, "is_projected = ?")
		args = append(args, *f.Projected)
	}

	q := `SELECT ` + entryColumns + ` FROM cashflow_entries`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, e *Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE cashflow_entries SET description=?, amount=?, entry_type=?, category=?,
			date=?, is_projected=?, is_recurring=?, recurrence_rule=?, stakeholder_id=?,
			property_id=?, loan_id=?, investment_id=?, notes_text=?
		 WHERE id = ?`,
		e.Description, e.Amount.String(), e.Type, e.Category, e.Date,
		e.IsProjected, e.IsRecurring, string(e.RecurrenceRule),
		nullID(e.StakeholderID), nullID(e.PropertyID), nullID(e.LoanID),
		nullID(e.InvestmentID), e.NotesText, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cashflow_entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Confirm turns a projected entry into an actual and, for recurring
// entries, writes the next projection one rule-step out. The confirmed
// entry keeps its recurrence so the chain survives edits; the projection
// copies everything except the date.
func (s *Store) Confirm(ctx context.Context, id int64) (*Entry, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.IsProjected {
		return e, nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE cashflow_entries SET is_projected = 0 WHERE id = ? AND is_projected = 1`, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Raced with another confirm; nothing left to do.
		return s.Get(ctx, id)
	}
	e.IsProjected = false

	if e.IsRecurring {
		if _, err := s.Recur(ctx, e); err != nil {
			s.log.Error("failed to project next cashflow entry",
				logx.Int64("entry_id", e.ID), logx.Err(err))
		}
	}
	return e, nil
}

// Recur writes the projection one rule-step after the given entry and
// returns it. The source must be recurring with a valid rule.
func (s *Store) Recur(ctx context.Context, e *Entry) (*Entry, error) {
	if !e.IsRecurring {
		return nil, errors.New("entry is not recurring")
	}
	due, err := time.Parse(dateFormat, e.Date)
	if err != nil {
		return nil, errors.New("entry date is not usable")
	}
	next, err := task.NextDueDate(due, e.RecurrenceRule)
	if err != nil {
		return nil, err
	}
	succ := *e
	succ.ID = 0
	succ.Date = next.Format(dateFormat)
	succ.IsProjected = true
	if _, err := s.Create(ctx, &succ); err != nil {
		return nil, err
	}
	return &succ, nil
}

// Summary aggregates a period. ByCategory nets income positive, expense
// negative per category.
type Summary struct {
	Income            decimal.Decimal            `json:"income"`
	Expenses          decimal.Decimal            `json:"expenses"`
	Net               decimal.Decimal            `json:"net"`
	ProjectedIncome   decimal.Decimal            `json:"projected_income"`
	ProjectedExpenses decimal.Decimal            `json:"projected_expenses"`
	ByCategory        map[string]decimal.Decimal `json:"by_category"`
	EntryCount        int                        `json:"entry_count"`
}

func (s *Store) Summarize(ctx context.Context, dateFrom, dateTo string) (*Summary, error) {
	entries, err := s.List(ctx, Filter{DateFrom: dateFrom, DateTo: dateTo})
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		Income: decimal.Zero, Expenses: decimal.Zero, Net: decimal.Zero,
		ProjectedIncome: decimal.Zero, ProjectedExpenses: decimal.Zero,
		ByCategory: map[string]decimal.Decimal{},
	}
	for _, e := range entries {
		sum.EntryCount++
		signed := e.Amount
		if e.Type == TypeExpense {
			signed = e.Amount.Neg()
		}
		cat := e.Category
		if cat == "" {
			cat = "uncategorized"
		}
		sum.ByCategory[cat] = sum.ByCategory[cat].Add(signed)

		switch {
		case e.IsProjected && e.Type == TypeIncome:
			sum.ProjectedIncome = sum.ProjectedIncome.Add(e.Amount)
		case e.IsProjected:
			sum.ProjectedExpenses = sum.ProjectedExpenses.Add(e.Amount)
		case e.Type == TypeIncome:
			sum.Income = sum.Income.Add(e.Amount)
		default:
			sum.Expenses = sum.Expenses.Add(e.Amount)
		}
	}
	sum.Net = sum.Income.Sub(sum.Expenses)
	return sum, nil
}
