package note

import (
	"context"
	"path/filepath"
	"testing"

	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db, logx.Nop())
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Roof Repair":       "roof-repair",
		"  Q2 / Taxes  ":    "q2-taxes",
		"Insurance":         "insurance",
		"--already-slug--":  "already-slug",
		"!!!":               "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNoteRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	folder := &Folder{Name: "Property"}
	if _, err := s.CreateFolder(ctx, folder); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	tag := &Tag{Name: "Roof Repair"}
	if _, err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if tag.Slug != "roof-repair" {
		t.Fatalf("tag slug = %q", tag.Slug)
	}

	n := &Note{
		Title:    "Contractor quote",
		Content:  "Quote came in at 12k.",
		Date:     "2025-04-02",
		NoteType: "general",
		FolderID: &folder.ID,
		TagIDs:   []int64{tag.ID},
	}
	if _, err := s.Create(ctx, n); err != nil {
		t.Fatalf("create note: %v", err)
	}

	got, err := s.Get(ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Contractor quote" || got.FolderID == nil || *got.FolderID != folder.ID {
		t.Fatalf("unexpected note: %+v", got)
	}
	if len(got.TagIDs) != 1 || got.TagIDs[0] != tag.ID {
		t.Fatalf("tag links = %v", got.TagIDs)
	}

	got.Content = "Quote revised to 10k."
	got.TagIDs = nil
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, err := s.Get(ctx, n.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if len(again.TagIDs) != 0 {
		t.Fatalf("tag links not cleared: %v", again.TagIDs)
	}

	if err := s.Delete(ctx, n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, n.ID); err != ErrNotFound {
		t.Fatalf("get deleted = %v, want ErrNotFound", err)
	}
}

func TestListPinnedFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	a := &Note{Title: "older pinned", Date: "2025-03-01", IsPinned: true}
	b := &Note{Title: "newest", Date: "2025-04-10"}
	c := &Note{Title: "middle", Date: "2025-04-01"}
	for _, n := range []*Note{a, b, c} {
		if _, err := s.Create(ctx, n); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	notes, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("count = %d", len(notes))
	}
	if notes[0].Title != "older pinned" {
		t.Fatalf("first = %q, want pinned note", notes[0].Title)
	}
	if notes[1].Title != "newest" || notes[2].Title != "middle" {
		t.Fatalf("order = %q, %q", notes[1].Title, notes[2].Title)
	}
}

func TestListFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tag := &Tag{Name: "taxes"}
	if _, err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if _, err := s.Create(ctx, &Note{Title: "Roof leak in unit 4", Date: "2025-04-01"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, &Note{Title: "Filing reminder", Content: "county taxes due", Date: "2025-04-05", TagIDs: []int64{tag.ID}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	byQuery, err := s.List(ctx, Filter{Query: "taxes"})
	if err != nil {
		t.Fatalf("list by query: %v", err)
	}
	if len(byQuery) != 1 || byQuery[0].Title != "Filing reminder" {
		t.Fatalf("query match = %+v", byQuery)
	}

	byTag, err := s.List(ctx, Filter{TagID: &tag.ID})
	if err != nil {
		t.Fatalf("list by tag: %v", err)
	}
	if len(byTag) != 1 || byTag[0].Title != "Filing reminder" {
		t.Fatalf("tag match = %+v", byTag)
	}
}

func TestTogglePin(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	n := &Note{Title: "note", Date: "2025-04-01"}
	if _, err := s.Create(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}
	pinned, err := s.TogglePin(ctx, n.ID)
	if err != nil || !pinned {
		t.Fatalf("toggle on = %v, %v", pinned, err)
	}
	pinned, err = s.TogglePin(ctx, n.ID)
	if err != nil || pinned {
		t.Fatalf("toggle off = %v, %v", pinned, err)
	}
	if _, err := s.TogglePin(ctx, 9999); err != ErrNotFound {
		t.Fatalf("toggle missing = %v, want ErrNotFound", err)
	}
}

func TestDeleteFolderKeepsNotes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	folder := &Folder{Name: "Temp"}
	if _, err := s.CreateFolder(ctx, folder); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	n := &Note{Title: "survivor", Date: "2025-04-01", FolderID: &folder.ID}
	if _, err := s.Create(ctx, n); err != nil {
		t.Fatalf("create note: %v", err)
	}
	if err := s.DeleteFolder(ctx, folder.ID); err != nil {
		t.Fatalf("delete folder: %v", err)
	}
	got, err := s.Get(ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FolderID != nil {
		t.Fatalf("folder_id = %v, want nil", *got.FolderID)
	}
}

func TestDuplicateTagRejected(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.CreateTag(ctx, &Tag{Name: "taxes"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateTag(ctx, &Tag{Name: "taxes"}); err == nil {
		t.Fatal("duplicate tag accepted")
	}
}
