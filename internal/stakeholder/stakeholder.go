// Package stakeholder tracks the people and entities everything else links
// to: contacts, attorneys, lenders, firms. Relationships between them form a
// loose graph; contact logs record outreach history.
package stakeholder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

var ErrNotFound = errors.New("stakeholder not found")

const dateFormat = "2006-01-02"

type Stakeholder struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	EntityType   string    `json:"entity_type"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Organization string    `json:"organization"`
	TrustRating  *int      `json:"trust_rating,omitempty"` // 1..5
	RiskRating   *int      `json:"risk_rating,omitempty"`  // 1..5
	ParentID     *int64    `json:"parent_id,omitempty"`
	NotesText    string    `json:"notes_text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Relationship struct {
	ID          int64  `json:"id"`
	FromID      *int64 `json:"from_id"`
	ToID        *int64 `json:"to_id"`
	Type        string `json:"relationship_type"`
	Description string `json:"description"`
}

type ContactLog struct {
	ID             int64     `json:"id"`
	StakeholderID  *int64    `json:"stakeholder_id"`
	At             time.Time `json:"at"`
	Method         string    `json:"method"`
	Summary        string    `json:"summary"`
	FollowUpNeeded bool      `json:"follow_up_needed"`
	FollowUpDate   string    `json:"follow_up_date,omitempty"`
}

// Tab is a saved filter over entity types for the stakeholder list view.
type Tab struct {
	ID          int64    `json:"id"`
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	EntityTypes []string `json:"entity_types"`
	SortOrder   int      `json:"sort_order"`
	IsBuiltin   bool     `json:"is_builtin"`
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

func validRating(p *int) error {
	if p != nil && (*p < 1 || *p > 5) {
		return errors.New("rating must be between 1 and 5")
	}
	return nil
}

func (s *Store) validate(sh *Stakeholder) error {
	if strings.TrimSpace(sh.Name) == "" {
		return errors.New("name is required")
	}
	if err := validRating(sh.TrustRating); err != nil {
		return fmt.Errorf("trust_rating: %w", err)
	}
	if err := validRating(sh.RiskRating); err != nil {
		return fmt.Errorf("risk_rating: %w", err)
	}
	return nil
}

func nullIntP(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt64P(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func (s *Store) Create(ctx context.Context, sh *Stakeholder) (int64, error) {
	if err := s.validate(sh); err != nil {
		return 0, err
	}
	if sh.EntityType == "" {
		sh.EntityType = "contact"
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO stakeholders(name, entity_type, email, phone, organization,
			trust_rating, risk_rating, parent_id, notes_text, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		sh.Name, sh.EntityType, sh.Email, sh.Phone, sh.Organization,
		nullIntP(sh.TrustRating), nullIntP(sh.RiskRating), nullInt64P(sh.ParentID),
		sh.NotesText, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	sh.ID = id
	return id, nil
}

const shColumns = `id, name, entity_type, email, phone, organization,
	trust_rating, risk_rating, parent_id, notes_text, created_at, updated_at`

func scanStakeholder(row interface{ Scan(...any) error }) (*Stakeholder, error) {
	var (
		sh                   Stakeholder
		trust, risk          sql.NullInt64
		parent               sql.NullInt64
		createdAt, updatedAt string
	)
	err := row.Scan(&sh.ID, &sh.Name, &sh.EntityType, &sh.Email, &sh.Phone,
		&sh.Organization, &trust, &risk, &parent, &sh.NotesText, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if trust.Valid {
		v := int(trust.Int64)
		sh.TrustRating = &v
	}
	if risk.Valid {
		v := int(risk.Int64)
		sh.RiskRating = &v
	}
	if parent.Valid {
		sh.ParentID = &parent.Int64
	}
	sh.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	sh.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &sh, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Stakeholder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shColumns+` FROM stakeholders WHERE id = ?`, id)
	sh, err := scanStakeholder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sh, err
}

// Filter narrows List. EntityTypes usually comes from a tab.
type Filter struct {
	Query       string
	EntityTypes []string
	MinTrust    int
	MaxRisk     int
}

func (s *Store) List(ctx context.Context, f Filter) ([]*Stakeholder, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, `(name LIKE ? OR organization LIKE ? OR email LIKE ?)`)
		pat := "%" + q + "%"
		args = append(args, pat, pat, pat)
	}
	if len(f.EntityTypes) > 0 {
		ph := make([]string, len(f.EntityTypes))
		for i, et := range f.EntityTypes {
			ph[i] = "?"
			args = append(args, et)
		}
		where = append(where, "entity_type IN ("+strings.Join(ph, ",")+")")
	}
	if f.MinTrust > 0 {
		where = append(where, "trust_rating >= ?")
		args = append(args, f.MinTrust)
	}
	if f.MaxRisk > 0 {
		where = append(where, "risk_rating <= ?")
		args = append(args, f.MaxRisk)
	}

	q := `SELECT ` + shColumns + ` FROM stakeholders`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY name COLLATE NOCASE"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Stakeholder
	for rows.Next() {
		sh, err := scanStakeholder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, sh *Stakeholder) error {
	if err := s.validate(sh); err != nil {
		return err
	}
	if sh.ParentID != nil && *sh.ParentID == sh.ID {
		return errors.New("stakeholder cannot be its own parent")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE stakeholders SET name=?, entity_type=?, email=?, phone=?, organization=?,
			trust_rating=?, risk_rating=?, parent_id=?, notes_text=?, updated_at=?
		 WHERE id = ?`,
		sh.Name, sh.EntityType, sh.Email, sh.Phone, sh.Organization,
		nullIntP(sh.TrustRating), nullIntP(sh.RiskRating), nullInt64P(sh.ParentID),
		sh.NotesText, time.Now().UTC().Format(time.RFC3339Nano), sh.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stakeholders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- relationships ---

func (s *Store) AddRelationship(ctx context.Context, rel *Relationship) (int64, error) {
	if strings.TrimSpace(rel.Type) == "" {
		return 0, errors.New("relationship_type is required")
	}
	if rel.FromID == nil || rel.ToID == nil {
		return 0, errors.New("both sides of a relationship are required")
	}
	if *rel.FromID == *rel.ToID {
		return 0, errors.New("relationship cannot point at itself")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO relationships(from_id, to_id, relationship_type, description) VALUES(?,?,?,?)`,
		*rel.FromID, *rel.ToID, rel.Type, rel.Description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	rel.ID = id
	return id, err
}

// Relationships returns edges touching the stakeholder in either direction.
func (s *Store) Relationships(ctx context.Context, id int64) ([]*Relationship, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_id, to_id, relationship_type, description
		 FROM relationships WHERE from_id = ? OR to_id = ? ORDER BY id`, id, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Relationship
	for rows.Next() {
		var (
			rel      Relationship
			from, to sql.NullInt64
		)
		if err := rows.Scan(&rel.ID, &from, &to, &rel.Type, &rel.Description); err != nil {
			return nil, err
		}
		if from.Valid {
			rel.FromID = &from.Int64
		}
		if to.Valid {
			rel.ToID = &to.Int64
		}
		out = append(out, &rel)
	}
	return out, rows.Err()
}

func (s *Store) DeleteRelationship(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- contact logs ---

func (s *Store) AddContactLog(ctx context.Context, cl *ContactLog) (int64, error) {
	if cl.At.IsZero() {
		cl.At = time.Now()
	}
	if cl.FollowUpDate != "" {
		if _, err := time.Parse(dateFormat, cl.FollowUpDate); err != nil {
			return 0, errors.New("follow_up_date must be YYYY-MM-DD")
		}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_logs(stakeholder_id, at, method, summary, follow_up_needed, follow_up_date)
		 VALUES(?,?,?,?,?,?)`,
		nullInt64P(cl.StakeholderID), cl.At.UTC().Format(time.RFC3339Nano),
		cl.Method, cl.Summary, cl.FollowUpNeeded, storage.NullStr(cl.FollowUpDate))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	cl.ID = id
	return id, err
}

func (s *Store) ContactLogs(ctx context.Context, stakeholderID int64) ([]*ContactLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stakeholder_id, at, method, summary, follow_up_needed, follow_up_date
		 FROM contact_logs WHERE stakeholder_id = ? ORDER BY at DESC`, stakeholderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ContactLog
	for rows.Next() {
		var (
			cl       ContactLog
			sid      sql.NullInt64
			at       string
			followUp sql.NullString
		)
		if err := rows.Scan(&cl.ID, &sid, &at, &cl.Method, &cl.Summary, &cl.FollowUpNeeded, &followUp); err != nil {
			return nil, err
		}
		if sid.Valid {
			cl.StakeholderID = &sid.Int64
		}
		cl.At, _ = time.Parse(time.RFC3339Nano, at)
		cl.FollowUpDate = followUp.String
		out = append(out, &cl)
	}
	return out, rows.Err()
}

func (s *Store) DeleteContactLog(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contact_logs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- tabs ---

func (s *Store) Tabs(ctx context.Context) ([]*Tab, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, label, entity_types, sort_order, is_builtin
		 FROM stakeholder_tabs ORDER BY sort_order, id`)
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
		if err := json.Unmarshal([]byte(raw), &tab.EntityTypes); err != nil {
			tab.EntityTypes = []string{}
		}
		out = append(out, &tab)
	}
	return out, rows.Err()
}

func (s *Store) SaveTab(ctx context.Context, tab *Tab) error {
	if strings.TrimSpace(tab.Key) == "" || strings.TrimSpace(tab.Label) == "" {
		return errors.New("tab key and label are required")
	}
	types, err := json.Marshal(tab.EntityTypes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stakeholder_tabs(key, label, entity_types, sort_order, is_builtin)
		 VALUES(?,?,?,?,0)
		 ON CONFLICT(key) DO UPDATE SET label=excluded.label,
			entity_types=excluded.entity_types, sort_order=excluded.sort_order`,
		tab.Key, tab.Label, string(types), tab.SortOrder)
	return err
}

// DeleteTab refuses to drop builtin tabs.
func (s *Store) DeleteTab(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM stakeholder_tabs WHERE id = ? AND is_builtin = 0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
