// Package note keeps dated notes organized into folders, cross-linked to
// tags, stakeholders and tasks.
package note

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

var (
	ErrNotFound       = errors.New("note not found")
	ErrFolderNotFound = errors.New("folder not found")
	ErrTagNotFound    = errors.New("tag not found")
)

const dateFormat = "2006-01-02"

type Note struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Date           string    `json:"date"`
	NoteType       string    `json:"note_type"`
	IsPinned       bool      `json:"is_pinned"`
	FolderID       *int64    `json:"folder_id,omitempty"`
	TagIDs         []int64   `json:"tag_ids"`
	StakeholderIDs []int64   `json:"stakeholder_ids"`
	TaskIDs        []int64   `json:"task_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Folder struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	SortOrder int    `json:"sort_order"`
	NoteCount int    `json:"note_count"`
}

type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Color string `json:"color"`
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

func stamp() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func validateNote(n *Note) error {
	if strings.TrimSpace(n.Title) == "" {
		return errors.New("title is required")
	}
	if n.Date == "" {
		n.Date = time.Now().UTC().Format(dateFormat)
	} else if _, err := time.Parse(dateFormat, n.Date); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	if n.NoteType == "" {
		n.NoteType = "general"
	}
	return nil
}

func (s *Store) Create(ctx context.Context, n *Note) (int64, error) {
	if err := validateNote(n); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := stamp()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO notes(title, content, date, note_type, is_pinned, folder_id, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		n.Title, n.Content, n.Date, n.NoteType, n.IsPinned, nullID(n.FolderID), now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := s.setLinksTx(ctx, tx, id, n); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	n.ID = id
	return id, nil
}

func nullID(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func (s *Store) setLinksTx(ctx context.Context, tx *sql.Tx, id int64, n *Note) error {
	links := []struct {
		table, col string
		ids        []int64
	}{
		{"note_tags", "tag_id", n.TagIDs},
		{"note_stakeholders", "stakeholder_id", n.StakeholderIDs},
		{"note_tasks", "task_id", n.TaskIDs},
	}
	for _, l := range links {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+l.table+` WHERE note_id = ?`, id); err != nil {
			return err
		}
		for _, linked := range l.ids {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO `+l.table+`(note_id, `+l.col+`) VALUES(?,?)`, id, linked); err != nil {
				return err
			}
		}
	}
	return nil
}

const noteColumns = `id, title, content, date, note_type, is_pinned, folder_id, created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }) (*Note, error) {
	var (
		n                    Note
		folderID             sql.NullInt64
		createdAt, updatedAt string
	)
	err := row.Scan(&n.ID, &n.Title, &n.Content, &n.Date, &n.NoteType, &n.IsPinned,
		&folderID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if folderID.Valid {
		n.FolderID = &folderID.Int64
	}
	n.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	n.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &n, nil
}

func (s *Store) linkedIDs(ctx context.Context, table, col string, noteID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+col+` FROM `+table+` WHERE note_id = ? ORDER BY `+col, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) loadLinks(ctx context.Context, n *Note) error {
	var err error
	if n.TagIDs, err = s.linkedIDs(ctx, "note_tags", "tag_id", n.ID); err != nil {
		return err
	}
	if n.StakeholderIDs, err = s.linkedIDs(ctx, "note_stakeholders", "stakeholder_id", n.ID); err != nil {
		return err
	}
	n.TaskIDs, err = s.linkedIDs(ctx, "note_tasks", "task_id", n.ID)
	return err
}

func (s *Store) Get(ctx context.Context, id int64) (*Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadLinks(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

type Filter struct {
	Query    string
	NoteType string
	FolderID *int64
	TagID    *int64
	Pinned   *bool
	DateFrom string
	DateTo   string
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// List returns pinned notes first, then newest date first. Link IDs are
// loaded per note; note lists stay small enough that N+1 is fine here.
func (s *Store) List(ctx context.Context, f Filter) ([]*Note, error) {
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		where = append(where, `(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`)
		pat := "%" + escapeLike(f.Query) + "%"
		args = append(args, pat, pat)
	}
	if f.NoteType != "" {
		where = append(where, "note_type = ?")
		args = append(args, f.NoteType)
	}
	if f.FolderID != nil {
		where = append(where, "folder_id = ?")
		args = append(args, *f.FolderID)
	}
	if f.TagID != nil {
		where = append(where, "id IN (SELECT note_id FROM note_tags WHERE tag_id = ?)")
		args = append(args, *f.TagID)
	}
	if f.Pinned != nil {
		where = append(where, "is_pinned = ?")
		args = append(args, *f.Pinned)
	}
	if f.DateFrom != "" {
		where = append(where, "date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		where = append(where, "date <= ?")
		args = append(args, f.DateTo)
	}

	q := `SELECT ` + noteColumns + ` FROM notes`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY is_pinned DESC, date DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, n := range out {
		if err := s.loadLinks(ctx, n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, n *Note) error {
	if err := validateNote(n); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE notes SET title=?, content=?, date=?, note_type=?, is_pinned=?, folder_id=?, updated_at=?
		 WHERE id = ?`,
		n.Title, n.Content, n.Date, n.NoteType, n.IsPinned, nullID(n.FolderID), stamp(), n.ID)
	if err != nil {
		return err
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return ErrNotFound
	}
	if err := s.setLinksTx(ctx, tx, n.ID, n); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) TogglePin(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes SET is_pinned = 1 - is_pinned, updated_at = ? WHERE id = ?`, stamp(), id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrNotFound
	}
	var pinned bool
	err = s.db.QueryRowContext(ctx, `SELECT is_pinned FROM notes WHERE id = ?`, id).Scan(&pinned)
	return pinned, err
}

// Folders

func (s *Store) Folders(ctx context.Context) ([]*Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.name, f.color, f.sort_order,
			(SELECT COUNT(*) FROM notes n WHERE n.folder_id = f.id)
		 FROM folders f ORDER BY f.sort_order, f.name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.Color, &f.SortOrder, &f.NoteCount); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *Store) CreateFolder(ctx context.Context, f *Folder) (int64, error) {
	if strings.TrimSpace(f.Name) == "" {
		return 0, errors.New("folder name is required")
	}
	if f.Color == "" {
		f.Color = "blue"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO folders(name, color, sort_order, created_at) VALUES(?,?,?,?)`,
		f.Name, f.Color, f.SortOrder, stamp())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	f.ID = id
	return id, err
}

func (s *Store) UpdateFolder(ctx context.Context, f *Folder) error {
	if strings.TrimSpace(f.Name) == "" {
		return errors.New("folder name is required")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE folders SET name=?, color=?, sort_order=? WHERE id=?`,
		f.Name, f.Color, f.SortOrder, f.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// DeleteFolder leaves the folder's notes in place; the FK sets their
// folder_id to NULL.
func (s *Store) DeleteFolder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// Tags

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases and collapses non-alphanumeric runs to single hyphens.
func Slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

func (s *Store) Tags(ctx context.Context) ([]*Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, color FROM tags ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Color); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTag(ctx context.Context, t *Tag) (int64, error) {
	if strings.TrimSpace(t.Name) == "" {
		return 0, errors.New("tag name is required")
	}
	t.Slug = Slugify(t.Name)
	if t.Slug == "" {
		return 0, errors.New("tag name has no usable characters")
	}
	if t.Color == "" {
		t.Color = "blue"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tags(name, slug, color, created_at) VALUES(?,?,?,?)`,
		t.Name, t.Slug, t.Color, stamp())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	t.ID = id
	return id, err
}

func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTagNotFound
	}
	return nil
}
