package asset

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Tab is a saved grouping of asset classes for the assets view.
type Tab struct {
	ID         int64    `json:"id"`
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	AssetTypes []string `json:"asset_types"`
	SortOrder  int      `json:"sort_order"`
	IsBuiltin  bool     `json:"is_builtin"`
}

func (s *Store) Tabs(ctx context.Context) ([]*Tab, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, label, asset_types, sort_order, is_builtin
		 FROM asset_tabs ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Tab
	for rows.Next() {
		var (
			tab Tab
			raw string
		)
		if err := rows.Scan(&tab.ID, &tab.Key, &tab.Label, &raw, &tab.SortOrder, &tab.IsBuiltin); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &tab.AssetTypes); err != nil {
			tab.AssetTypes = []string{}
		}
		out = append(out, &tab)
	}
	return out, rows.Err()
}

func (s *Store) SaveTab(ctx context.Context, tab *Tab) error {
	if strings.TrimSpace(tab.Key) == "" || strings.TrimSpace(tab.Label) == "" {
		return errors.New("tab key and label are required")
	}
	types, err := json.Marshal(tab.AssetTypes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO asset_tabs(key, label, asset_types, sort_order, is_builtin)
		 VALUES(?,?,?,?,0)
		 ON CONFLICT(key) DO UPDATE SET label=excluded.label,
			asset_types=excluded.asset_types, sort_order=excluded.sort_order`,
		tab.Key, tab.Label, string(types), tab.SortOrder)
	return err
}

func (s *Store) DeleteTab(ctx context.Context, id int64) error {
	return affected(s.db.ExecContext(ctx,
		`DELETE FROM asset_tabs WHERE id = ? AND is_builtin = 0`, id))
}

// Summary aggregates portfolio value across asset classes. Sums are exact.
type Summary struct {
	PropertyValue   decimal.Decimal `json:"property_value"`
	InvestmentValue decimal.Decimal `json:"investment_value"`
	VehicleValue    decimal.Decimal `json:"vehicle_value"`
	AircraftValue   decimal.Decimal `json:"aircraft_value"`
	LoanBalance     decimal.Decimal `json:"loan_balance"`
	NetValue        decimal.Decimal `json:"net_value"`
	PropertyCount   int             `json:"property_count"`
	InvestmentCount int             `json:"investment_count"`
	VehicleCount    int             `json:"vehicle_count"`
	AircraftCount   int             `json:"aircraft_count"`
	LoanCount       int             `json:"loan_count"`
	PolicyCount     int             `json:"policy_count"`
}

func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	sum := &Summary{}

	var err error
	if sum.PropertyValue, sum.PropertyCount, err = s.sumColumn(ctx,
		`SELECT estimated_value FROM properties WHERE status <> 'sold'`); err != nil {
		return nil, err
	}
	if sum.InvestmentValue, sum.InvestmentCount, err = s.sumColumn(ctx,
		`SELECT current_value FROM investments`); err != nil {
		return nil, err
	}
	if sum.VehicleValue, sum.VehicleCount, err = s.sumColumn(ctx,
		`SELECT estimated_value FROM vehicles WHERE status <> 'sold'`); err != nil {
		return nil, err
	}
	if sum.AircraftValue, sum.AircraftCount, err = s.sumColumn(ctx,
		`SELECT estimated_value FROM aircraft WHERE status <> 'sold'`); err != nil {
		return nil, err
	}
	if sum.LoanBalance, sum.LoanCount, err = s.sumColumn(ctx,
		`SELECT current_balance FROM loans WHERE status = 'active'`); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM insurance_policies WHERE status = 'active'`).Scan(&sum.PolicyCount); err != nil {
		return nil, err
	}

	sum.NetValue = sum.PropertyValue.Add(sum.InvestmentValue).
		Add(sum.VehicleValue).Add(sum.AircraftValue).Sub(sum.LoanBalance)
	return sum, nil
}

// sumColumn adds decimal strings in Go rather than in SQL, so precision
// never degrades to floats.
func (s *Store) sumColumn(ctx context.Context, query string) (decimal.Decimal, int, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return decimal.Zero, 0, err
	}
	defer rows.Close()

	total := decimal.Zero
	count := 0
	for rows.Next() {
		var raw *string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, 0, err
		}
		count++
		if raw == nil || *raw == "" {
			continue
		}
		d, err := decimal.NewFromString(*raw)
		if err != nil {
			continue
		}
		total = total.Add(d)
	}
	return total, count, rows.Err()
}
