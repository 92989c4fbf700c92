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

type InsurancePolicy struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	PolicyNumber     string           `json:"policy_number"`
	PolicyType       string           `json:"policy_type"`
	Status           string           `json:"status"`
	CarrierID        *int64           `json:"carrier_id,omitempty"`
	AgentID          *int64           `json:"agent_id,omitempty"`
	PremiumAmount    *decimal.Decimal `json:"premium_amount,omitempty"`
	PremiumFrequency string           `json:"premium_frequency"`
	Deductible       *decimal.Decimal `json:"deductible,omitempty"`
	CoverageLimit    *decimal.Decimal `json:"coverage_limit,omitempty"`
	EffectiveDate    string           `json:"effective_date,omitempty"`
	ExpirationDate   string           `json:"expiration_date,omitempty"`
	AutoRenew        bool             `json:"auto_renew"`
	NotesText        string           `json:"notes_text"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (s *Store) CreatePolicy(ctx context.Context, p *InsurancePolicy) (int64, error) {
	if strings.TrimSpace(p.Name) == "" {
		return 0, errors.New("name is required")
	}
	if err := validDate(p.EffectiveDate); err != nil {
		return 0, err
	}
	if err := validDate(p.ExpirationDate); err != nil {
		return 0, err
	}
	if p.PolicyType == "" {
		p.PolicyType = "general"
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if p.PremiumFrequency == "" {
		p.PremiumFrequency = "annual"
	}
	now := nowStamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO insurance_policies(name, policy_number, policy_type, status,
			carrier_id, agent_id, premium_amount, premium_frequency, deductible,
			coverage_limit, effective_date, expiration_date, auto_renew, notes_text,
			created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.PolicyNumber, p.PolicyType, p.Status,
		nullID(p.CarrierID), nullID(p.AgentID), nullDecimal(p.PremiumAmount),
		p.PremiumFrequency, nullDecimal(p.Deductible), nullDecimal(p.CoverageLimit),
		storage.NullStr(p.EffectiveDate), storage.NullStr(p.ExpirationDate),
		p.AutoRenew, p.NotesText, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	p.ID = id
	return id, err
}

const policyColumns = `id, name, policy_number, policy_type, status, carrier_id,
	agent_id, premium_amount, premium_frequency, deductible, coverage_limit,
	effective_date, expiration_date, auto_renew, notes_text, created_at, updated_at`

func scanPolicy(row interface{ Scan(...any) error }) (*InsurancePolicy, error) {
	var (
		p                                      InsurancePolicy
		carrier, agent                         sql.NullInt64
		premium, deductible, limit             sql.NullString
		effective, expiration                  sql.NullString
		createdAt, updatedAt                   string
	)
	err := row.Scan(&p.ID, &p.Name, &p.PolicyNumber, &p.PolicyType, &p.Status,
		&carrier, &agent, &premium, &p.PremiumFrequency, &deductible, &limit,
		&effective, &expiration, &p.AutoRenew, &p.NotesText, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.CarrierID = scanID(carrier)
	p.AgentID = scanID(agent)
	p.PremiumAmount = scanDecimal(premium)
	p.Deductible = scanDecimal(deductible)
	p.CoverageLimit = scanDecimal(limit)
	p.EffectiveDate = effective.String
	p.ExpirationDate = expiration.String
	p.CreatedAt = parseStamp(createdAt)
	p.UpdatedAt = parseStamp(updatedAt)
	return &p, nil
}

func (s *Store) GetPolicy(ctx context.Context, id int64) (*InsurancePolicy, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM insurance_policies WHERE id = ?`, id)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Store) ListPolicies(ctx context.Context) ([]*InsurancePolicy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM insurance_policies ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*InsurancePolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListExpiringPolicies returns active, non-auto-renewing policies that lapse
// within the window. Feeds the notification scans.
func (s *Store) ListExpiringPolicies(ctx context.Context, from, to string) ([]*InsurancePolicy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM insurance_policies
		 WHERE status = 'active' AND auto_renew = 0
		   AND expiration_date IS NOT NULL AND expiration_date >= ? AND expiration_date <= ?
		 ORDER BY expiration_date`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*InsurancePolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePolicy(ctx context.Context, p *InsurancePolicy) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if err := validDate(p.EffectiveDate); err != nil {
		return err
	}
	if err := validDate(p.ExpirationDate); err != nil {
		return err
	}
	return affected(s.db.ExecContext(ctx,
		`UPDATE insurance_policies SET name=?, policy_number=?, policy_type=?, status=?,
			carrier_id=?, agent_id=?, premium_amount=?, premium_frequency=?, deductible=?,
			coverage_limit=?, effective_date=?, expiration_date=?, auto_renew=?,
			notes_text=?, updated_at=?
		 WHERE id = ?`,
		p.Name, p.PolicyNumber, p.PolicyType, p.Status,
		nullID(p.CarrierID), nullID(p.AgentID), nullDecimal(p.PremiumAmount),
		p.PremiumFrequency, nullDecimal(p.Deductible), nullDecimal(p.CoverageLimit),
		storage.NullStr(p.EffectiveDate), storage.NullStr(p.ExpirationDate),
		p.AutoRenew, p.NotesText, nowStamp(), p.ID))
}

func (s *Store) DeletePolicy(ctx context.Context, id int64) error {
	return affected(s.db.ExecContext(ctx, `DELETE FROM insurance_policies WHERE id = ?`, id))
}
