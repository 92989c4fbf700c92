// Package asset covers the holdings: real property, investments, vehicles,
// aircraft, loans and insurance policies. Monetary columns are stored as
// exact decimal strings, never floats.
package asset

import (
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

var ErrNotFound = errors.New("asset not found")

const dateFormat = "2006-01-02"

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

// Ownership links a stakeholder to an asset with an optional percentage.
type Ownership struct {
	ID            int64            `json:"id"`
	AssetID       int64            `json:"asset_id"`
	StakeholderID int64            `json:"stakeholder_id"`
	Pct           *decimal.Decimal `json:"ownership_pct,omitempty"`
	Role          string           `json:"role"`
	Notes         string           `json:"notes"`
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDecimal(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil
	}
	return &d
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseStamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func validDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(dateFormat, s); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	return nil
}

func validPct(d *decimal.Decimal) error {
	if d == nil {
		return nil
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("ownership_pct must be within 0..100")
	}
	return nil
}

// affected converts an exec result into the package's not-found contract.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
