package asset

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Investment struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Type         string           `json:"investment_type"`
	Institution  string           `json:"institution"`
	CurrentValue *decimal.Decimal `json:"current_value,omitempty"`
	NotesText    string           `json:"notes_text"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (s *Store) CreateInvestment(ctx context.Context, inv *Investment) (int64, error) {
	if strings.TrimSpace(inv.Name) == "" {
		return 0, errors.New("name is required")
	}
	now := nowStamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO investments(name, investment_type, institution, current_value,
			notes_text, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?)`,
		inv.Name, inv.Type, inv.Institution, nullDecimal(inv.CurrentValue),
		inv.NotesText, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	inv.ID = id
	return id, err
}

func scanInvestment(row interface{ Scan(...any) error }) (*Investment, error) {
	var (
		inv                  Investment
		value                sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&inv.ID, &inv.Name, &inv.Type, &inv.Institution, &value,
		&inv.NotesText, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	inv.CurrentValue = scanDecimal(value)
	inv.CreatedAt = parseStamp(createdAt)
	inv.UpdatedAt = parseStamp(updatedAt)
	return &inv, nil
}

const investmentColumns = `id, name, investment_type, institution, current_value,
	notes_text, created_at, updated_at`

func (s *Store) GetInvestment(ctx context.Context, id int64) (*Investment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = ?`, id)
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inv, err
}

func (s *Store) ListInvestments(ctx context.Context) ([]*Investment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+investmentColumns+` FROM investments ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) UpdateInvestment(ctx context.Context, inv *Investment) error {
	if strings.TrimSpace(inv.Name) == "" {
		return errors.New("name is required")
	}
	return affected(s.db.ExecContext(ctx,
		`UPDATE investments SET name=?, investment_type=?, institution=?,
			current_value=?, notes_text=?, updated_at=? WHERE id = ?`,
		inv.Name, inv.Type, inv.Institution, nullDecimal(inv.CurrentValue),
		inv.NotesText, nowStamp(), inv.ID))
}

func (s *Store) DeleteInvestment(ctx context.Context, id int64) error {
	return affected(s.db.ExecContext(ctx, `DELETE FROM investments WHERE id = ?`, id))
}

func (s *Store) SetInvestmentParticipant(ctx context.Context, o *Ownership) error {
	if err := validPct(o.Pct); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO investment_participants(investment_id, stakeholder_id, ownership_pct, role, notes)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(investment_id, stakeholder_id) DO UPDATE SET
			ownership_pct=excluded.ownership_pct, role=excluded.role, notes=excluded.notes`,
		o.AssetID, o.StakeholderID, nullDecimal(o.Pct), o.Role, o.Notes)
	return err
}

func (s *Store) InvestmentParticipants(ctx context.Context, investmentID int64) ([]*Ownership, error) {
	return s.ownerships(ctx,
		`SELECT id, investment_id, stakeholder_id, ownership_pct, role, notes
		 FROM investment_participants WHERE investment_id = ? ORDER BY id`, investmentID)
}

func (s *Store) RemoveInvestmentParticipant(ctx context.Context, investmentID, stakeholderID int64) error {
	return affected(s.db.ExecContext(ctx,
		`DELETE FROM investment_participants WHERE investment_id = ? AND stakeholder_id = ?`,
		investmentID, stakeholderID))
}
