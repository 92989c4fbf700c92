package asset

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"controlcenter/internal/storage"
)

type Loan struct {
	ID                  int64            `json:"id"`
	Name                string           `json:"name"`
	PropertyID          *int64           `json:"property_id,omitempty"`
	InvestmentID        *int64           `json:"investment_id,omitempty"`
	VehicleID           *int64           `json:"vehicle_id,omitempty"`
	AircraftID          *int64           `json:"aircraft_id,omitempty"`
	BorrowerDescription string           `json:"borrower_description"`
	OriginalAmount      *decimal.Decimal `json:"original_amount,omitempty"`
	CurrentBalance      *decimal.Decimal `json:"current_balance,omitempty"`
	InterestRate        *decimal.Decimal `json:"interest_rate,omitempty"`
	DefaultInterestRate *decimal.Decimal `json:"default_interest_rate,omitempty"`
	IsHardMoney         bool             `json:"is_hard_money"`
	MonthlyPayment      *decimal.Decimal `json:"monthly_payment,omitempty"`
	NextPaymentDate     string           `json:"next_payment_date,omitempty"`
	MaturityDate        string           `json:"maturity_date,omitempty"`
	Collateral          string           `json:"collateral"`
	Status              string           `json:"status"`
	NotesText           string           `json:"notes_text"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func nullID(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func scanID(ns sql.NullInt64) *int64 {
	if !ns.Valid {
		return nil
	}
	return &ns.Int64
}

func (s *Store) CreateLoan(ctx context.Context, l *Loan) (int64, error) {
	if strings.TrimSpace(l.Name) == "" {
		return 0, errors.New("name is required")
	}
	if err := validDate(l.NextPaymentDate); err != nil {
		return 0, err
	}
	if err := validDate(l.MaturityDate); err != nil {
		return 0, err
	}
	if l.Status == "" {
		l.Status = "active"
	}
	now := nowStamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO loans(name, property_id, investment_id, vehicle_id, aircraft_id,
			borrower_description, original_amount, current_balance, interest_rate,
			default_interest_rate, is_hard_money, monthly_payment, next_payment_date,
			maturity_date, collateral, status, notes_text, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.Name, nullID(l.PropertyID), nullID(l.InvestmentID), nullID(l.VehicleID),
		nullID(l.AircraftID), l.BorrowerDescription, nullDecimal(l.OriginalAmount),
		nullDecimal(l.CurrentBalance), nullDecimal(l.InterestRate),
		nullDecimal(l.DefaultInterestRate), l.IsHardMoney, nullDecimal(l.MonthlyPayment),
		storage.NullStr(l.NextPaymentDate), storage.NullStr(l.MaturityDate),
		l.Collateral, l.Status, l.NotesText, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	l.ID = id
	return id, err
}

const loanColumns = `id, name, property_id, investment_id, vehicle_id, aircraft_id,
	borrower_description, original_amount, current_balance, interest_rate,
	default_interest_rate, is_hard_money, monthly_payment, next_payment_date,
	maturity_date, collateral, status, notes_text, created_at, updated_at`

func scanLoan(row interface{ Scan(...any) error }) (*Loan, error) {
	var (
		l                              Loan
		propID, invID, vehID, airID    sql.NullInt64
		orig, balance, rate, defRate   sql.NullString
		monthly, nextPayment, maturity sql.NullString
		createdAt, updatedAt           string
	)
	err := row.Scan(&l.ID, &l.Name, &propID, &invID, &vehID, &airID,
		&l.BorrowerDescription, &orig, &balance, &rate, &defRate, &l.IsHardMoney,
		&monthly, &nextPayment, &maturity, &l.Collateral, &l.Status, &l.NotesText,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	l.PropertyID = scanID(propID)
	l.InvestmentID = scanID(invID)
	l.VehicleID = scanID(vehID)
	l.AircraftID = scanID(airID)
	l.OriginalAmount = scanDecimal(orig)
	l.CurrentBalance = scanDecimal(balance)
	l.InterestRate = scanDecimal(rate)
	l.DefaultInterestRate = scanDecimal(defRate)
	l.MonthlyPayment = scanDecimal(monthly)
	l.NextPaymentDate = nextPayment.String
	l.MaturityDate = maturity.String
	l.CreatedAt = parseStamp(createdAt)
	l.UpdatedAt = parseStamp(updatedAt)
	return &l, nil
}

func (s *Store) GetLoan(ctx context.Context, id int64) (*Loan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
	l, err := scanLoan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

func (s *Store) ListLoans(ctx context.Context) ([]*Loan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) UpdateLoan(ctx context.Context, l *Loan) error {
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("name is required")
	}
	if err := validDate(l.NextPaymentDate); err != nil {
		return err
	}
	if err := validDate(l.MaturityDate); err != nil {
		return err
	}
	return affected(s.db.ExecContext(ctx,
		`UPDATE loans SET name=?, property_id=?, investment_id=?, vehicle_id=?,
			aircraft_id=?, borrower_description=?, original_amount=?, current_balance=?,
			interest_rate=?, default_interest_rate=?, is_hard_money=?, monthly_payment=?,
			next_payment_date=?, maturity_date=?, collateral=?, status=?, notes_text=?,
			updated_at=?
		 WHERE id = ?`,
		l.Name, nullID(l.PropertyID), nullID(l.InvestmentID), nullID(l.VehicleID),
		nullID(l.AircraftID), l.BorrowerDescription, nullDecimal(l.OriginalAmount),
		nullDecimal(l.CurrentBalance), nullDecimal(l.InterestRate),
		nullDecimal(l.DefaultInterestRate), l.IsHardMoney, nullDecimal(l.MonthlyPayment),
		storage.NullStr(l.NextPaymentDate), storage.NullStr(l.MaturityDate),
		l.Collateral, l.Status, l.NotesText, nowStamp(), l.ID))
}

func (s *Store) DeleteLoan(ctx context.Context, id int64) error {
	return affected(s.db.ExecContext(ctx, `DELETE FROM loans WHERE id = ?`, id))
}

func (s *Store) SetLoanParty(ctx context.Context, o *Ownership) error {
	if err := validPct(o.Pct); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO loan_parties(loan_id, stakeholder_id, ownership_pct, role, notes)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(loan_id, stakeholder_id) DO UPDATE SET
			ownership_pct=excluded.ownership_pct, role=excluded.role, notes=excluded.notes`,
		o.AssetID, o.StakeholderID, nullDecimal(o.Pct), o.Role, o.Notes)
	return err
}

func (s *Store) LoanParties(ctx context.Context, loanID int64) ([]*Ownership, error) {
	return s.ownerships(ctx,
		`SELECT id, loan_id, stakeholder_id, ownership_pct, role, notes
		 FROM loan_parties WHERE loan_id = ? ORDER BY id`, loanID)
}

func (s *Store) RemoveLoanParty(ctx context.Context, loanID, stakeholderID int64) error {
	return affected(s.db.ExecContext(ctx,
		`DELETE FROM loan_parties WHERE loan_id = ? AND stakeholder_id = ?`,
		loanID, stakeholderID))
}
