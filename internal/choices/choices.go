// Package choices manages the configurable dropdown vocabularies: entity
// types, contact methods, matter types and the rest. Options live in the
// database so they can be edited at runtime; reads go through a small
// time-bounded cache because every create/update form pulls them.
package choices

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

// Known categories. The seed data covers each one; user-defined options are
// appended within these categories, never in new ones.
const (
	CategoryEntityType       = "entity_type"
	CategoryContactMethod    = "contact_method"
	CategoryMatterType       = "matter_type"
	CategoryNoteType         = "note_type"
	CategoryPolicyType       = "policy_type"
	CategoryVehicleType      = "vehicle_type"
	CategoryAircraftType     = "aircraft_type"
	CategoryCashflowCategory = "cashflow_category"
)

var Categories = []string{
	CategoryEntityType, CategoryContactMethod, CategoryMatterType,
	CategoryNoteType, CategoryPolicyType, CategoryVehicleType,
	CategoryAircraftType, CategoryCashflowCategory,
}

func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

var ErrNotFound = errors.New("choice option not found")

type Option struct {
	ID        int64  `json:"id"`
	Category  string `json:"category"`
	Value     string `json:"value"`
	Label     string `json:"label"`
	SortOrder int    `json:"sort_order"`
	IsActive  bool   `json:"is_active"`
}

// Service is the cached read/write surface over choice_options. The cache
// holds one snapshot per category; writes invalidate eagerly so an edit is
// visible on the next read, the TTL only covers out-of-band edits to the
// database file.
type Service struct {
	db  *sql.DB
	log logx.Logger
	ttl time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	options []Option
	fetched time.Time
}

func NewService(db *storage.DB, ttl time.Duration, log logx.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{db: db.SQL(), log: log, ttl: ttl, cache: map[string]cacheEntry{}}
}

// Options returns the active options of a category, cached.
func (s *Service) Options(ctx context.Context, category string) ([]Option, error) {
	s.mu.RLock()
	entry, ok := s.cache[category]
	s.mu.RUnlock()
	if ok && time.Since(entry.fetched) < s.ttl {
		return entry.options, nil
	}

	opts, err := s.load(ctx, category)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[category] = cacheEntry{options: opts, fetched: time.Now()}
	s.mu.Unlock()
	return opts, nil
}

func (s *Service) load(ctx context.Context, category string) ([]Option, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, value, label, sort_order, is_active
		 FROM choice_options WHERE category = ? AND is_active = 1
		 ORDER BY sort_order, label`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	opts := []Option{}
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Category, &o.Value, &o.Label, &o.SortOrder, &o.IsActive); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// All returns every category's active options in one map, for the combined
// bootstrap endpoint.
func (s *Service) All(ctx context.Context) (map[string][]Option, error) {
	out := make(map[string][]Option, len(Categories))
	for _, cat := range Categories {
		opts, err := s.Options(ctx, cat)
		if err != nil {
			return nil, err
		}
		out[cat] = opts
	}
	return out, nil
}

// ValidValue reports whether value is an active option of the category.
// Unknown values are accepted when the category has no active options at
// all, so a wiped vocabulary never locks out writes.
func (s *Service) ValidValue(ctx context.Context, category, value string) bool {
	opts, err := s.Options(ctx, category)
	if err != nil {
		s.log.Warn("choice lookup failed, accepting value",
			logx.String("category", category), logx.Err(err))
		return true
	}
	if len(opts) == 0 {
		return true
	}
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Label resolves a stored value to its display label, falling back to the
// raw value for retired options.
func (s *Service) Label(ctx context.Context, category, value string) string {
	opts, err := s.Options(ctx, category)
	if err == nil {
		for _, o := range opts {
			if o.Value == value {
				return o.Label
			}
		}
	}
	return value
}

// Add creates a user-defined option at the end of the category's sort order.
func (s *Service) Add(ctx context.Context, category, value, label string) (*Option, error) {
	value = strings.TrimSpace(value)
	label = strings.TrimSpace(label)
	if !ValidCategory(category) {
		return nil, errors.New("unknown choice category")
	}
	if value == "" || label == "" {
		return nil, errors.New("value and label are required")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO choice_options(category, value, label, sort_order, is_active)
		 VALUES(?, ?, ?, COALESCE((SELECT MAX(sort_order)+1 FROM choice_options WHERE category = ?), 0), 1)`,
		category, value, label, category)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	s.Invalidate(category)
	return &Option{ID: id, Category: category, Value: value, Label: label, IsActive: true}, nil
}

// Rename changes an option's label; the stored value stays stable so
// existing rows keep referencing it.
func (s *Service) Rename(ctx context.Context, id int64, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return errors.New("label is required")
	}
	return s.write(ctx, id, `UPDATE choice_options SET label = ? WHERE id = ?`, label, id)
}

// Deactivate retires an option without deleting it: rows that already use
// the value keep it, new forms stop offering it.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.write(ctx, id, `UPDATE choice_options SET is_active = 0 WHERE id = ?`, id)
}

func (s *Service) Reactivate(ctx context.Context, id int64) error {
	return s.write(ctx, id, `UPDATE choice_options SET is_active = 1 WHERE id = ?`, id)
}

func (s *Service) write(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.InvalidateAll()
	return nil
}

func (s *Service) Invalidate(category string) {
	s.mu.Lock()
	delete(s.cache, category)
	s.mu.Unlock()
}

func (s *Service) InvalidateAll() {
	s.mu.Lock()
	s.cache = map[string]cacheEntry{}
	s.mu.Unlock()
}
