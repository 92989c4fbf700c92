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

type Property struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Address         string           `json:"address"`
	Jurisdiction    string           `json:"jurisdiction"`
	PropertyType    string           `json:"property_type"`
	EstimatedValue  *decimal.Decimal `json:"estimated_value,omitempty"`
	AcquisitionDate string           `json:"acquisition_date,omitempty"`
	Status          string           `json:"status"`
	NotesText       string           `json:"notes_text"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (s *Store) CreateProperty(ctx context.Context, p *Property) (int64, error) {
	if strings.TrimSpace(p.Name) == "" {
		return 0, errors.New("name is required")
	}
	if err := validDate(p.AcquisitionDate); err != nil {
		return 0, err
	}
	if p.Status == "" {
		p.Status = "owned"
	}
	now := nowStamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO properties(name, address, jurisdiction, property_type,
			estimated_value, acquisition_date, status, notes_text, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Address, p.Jurisdiction, p.PropertyType,
		nullDecimal(p.EstimatedValue), storage.NullStr(p.AcquisitionDate),
		p.Status, p.NotesText, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	p.ID = id
	return id, err
}

const propertyColumns = `id, name, address, jurisdiction, property_type,
	estimated_value, acquisition_date, status, notes_text, created_at, updated_at`

func scanProperty(row interface{ Scan(...any) error }) (*Property, error) {
	var (
		p                    Property
		value, acquired      sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Address, &p.Jurisdiction, &p.PropertyType,
		&value, &acquired, &p.Status, &p.NotesText, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.EstimatedValue = scanDecimal(value)
	p.AcquisitionDate = acquired.String
	p.CreatedAt = parseStamp(createdAt)
	p.UpdatedAt = parseStamp(updatedAt)
	return &p, nil
}

func (s *Store) GetProperty(ctx context.Context, id int64) (*Property, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Store) ListProperties(ctx context.Context) ([]*Property, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+propertyColumns+` FROM properties ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProperty(ctx context.Context, p *Property) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if err := validDate(p.AcquisitionDate); err != nil {
		return err
	}
	return affected(s.db.ExecContext(ctx,
		`UPDATE properties SET name=?, address=?, jurisdiction=?, property_type=?,
			estimated_value=?, acquisition_date=?, status=?, notes_text=?, updated_at=?
		 WHERE id = ?`,
		p.Name, p.Address, p.Jurisdiction, p.PropertyType,
		nullDecimal(p.EstimatedValue), storage.NullStr(p.AcquisitionDate),
		p.Status, p.NotesText, nowStamp(), p.ID))
}

func (s *Store) DeleteProperty(ctx context.Context, id int64) error {
	return affected(s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id))
}

func (s *Store) SetPropertyOwnership(ctx context.Context, o *Ownership) error {
	if err := validPct(o.Pct); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO property_ownerships(property_id, stakeholder_id, ownership_pct, role, notes)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(property_id, stakeholder_id) DO UPDATE SET
			ownership_pct=excluded.ownership_pct, role=excluded.role, notes=excluded.notes`,
		o.AssetID, o.StakeholderID, nullDecimal(o.Pct), o.Role, o.Notes)
	return err
}

func (s *Store) PropertyOwnerships(ctx context.Context, propertyID int64) ([]*Ownership, error) {
	return s.ownerships(ctx,
		`SELECT id, property_id, stakeholder_id, ownership_pct, role, notes
		 FROM property_ownerships WHERE property_id = ? ORDER BY id`, propertyID)
}

func (s *Store) RemovePropertyOwnership(ctx context.Context, propertyID, stakeholderID int64) error {
	return affected(s.db.ExecContext(ctx,
		`DELETE FROM property_ownerships WHERE property_id = ? AND stakeholder_id = ?`,
		propertyID, stakeholderID))
}

func (s *Store) ownerships(ctx context.Context, query string, args ...any) ([]*Ownership, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Ownership
	for rows.Next() {
		var (
			o   Ownership
			pct sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.AssetID, &o.StakeholderID, &pct, &o.Role, &o.Notes); err != nil {
			return nil, err
		}
		o.Pct = scanDecimal(pct)
		out = append(out, &o)
	}
	return out, rows.Err()
}
