package stakeholder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, logx.Nop())
}

func mustCreate(t *testing.T, s *Store, sh *Stakeholder) int64 {
	t.Helper()
	id, err := s.Create(context.Background(), sh)
	if err != nil {
		t.Fatalf("create stakeholder: %v", err)
	}
	return id
}

func intp(v int) *int { return &v }

func TestCreateValidation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, &Stakeholder{Name: "  "}); err == nil {
		t.Fatal("blank name accepted")
	}
	if _, err := s.Create(ctx, &Stakeholder{Name: "x", TrustRating: intp(6)}); err == nil {
		t.Fatal("out-of-range trust rating accepted")
	}
	if _, err := s.Create(ctx, &Stakeholder{Name: "x", RiskRating: intp(0)}); err == nil {
		t.Fatal("out-of-range risk rating accepted")
	}

	sh := &Stakeholder{Name: "Acme Legal", TrustRating: intp(4)}
	id := mustCreate(t, s, sh)
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.EntityType != "contact" {
		t.Fatalf("default entity type: %q", got.EntityType)
	}
	if got.TrustRating == nil || *got.TrustRating != 4 {
		t.Fatalf("trust rating: %+v", got.TrustRating)
	}
	if got.RiskRating != nil {
		t.Fatalf("unset rating must stay nil: %+v", got.RiskRating)
	}
}

func TestListFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mustCreate(t, s, &Stakeholder{Name: "Dana Smith", EntityType: "attorney", Organization: "Smith LLP"})
	mustCreate(t, s, &Stakeholder{Name: "First Bank", EntityType: "lender", TrustRating: intp(2)})
	mustCreate(t, s, &Stakeholder{Name: "Alex Chen", EntityType: "advisor", TrustRating: intp(5)})

	got, err := s.List(ctx, Filter{Query: "smith"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Dana Smith" {
		t.Fatalf("query filter: %+v", got)
	}

	got, err = s.List(ctx, Filter{EntityTypes: []string{"lender", "advisor"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("entity type filter: %+v", got)
	}
	// Name-ordered, case-insensitive.
	if got[0].Name != "Alex Chen" {
		t.Fatalf("ordering: %+v", got)
	}

	got, err = s.List(ctx, Filter{MinTrust: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Alex Chen" {
		t.Fatalf("trust filter: %+v", got)
	}
}

func TestSelfParentRejected(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, &Stakeholder{Name: "Solo"})

	sh, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	sh.ParentID = &id
	if err := s.Update(ctx, sh); err == nil {
		t.Fatal("self-parent accepted")
	}
}

func TestRelationshipGraph(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, &Stakeholder{Name: "A"})
	b := mustCreate(t, s, &Stakeholder{Name: "B"})
	c := mustCreate(t, s, &Stakeholder{Name: "C"})

	if _, err := s.AddRelationship(ctx, &Relationship{FromID: &a, ToID: &b, Type: "attorney_for"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddRelationship(ctx, &Relationship{FromID: &c, ToID: &a, Type: "partner_of"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddRelationship(ctx, &Relationship{FromID: &a, ToID: &a, Type: "knows"}); err == nil {
		t.Fatal("self-edge accepted")
	}
	// Duplicate edge violates the unique constraint.
	if _, err := s.AddRelationship(ctx, &Relationship{FromID: &a, ToID: &b, Type: "attorney_for"}); err == nil {
		t.Fatal("duplicate edge accepted")
	}

	rels, err := s.Relationships(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if len(rels) != 2 {
		t.Fatalf("expected both directions, got %+v", rels)
	}

	rels, err = s.Relationships(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	if len(rels) != 1 {
		t.Fatalf("b edges: %+v", rels)
	}
}

func TestContactLogHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, &Stakeholder{Name: "Callee"})

	older := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC)
	if _, err := s.AddContactLog(ctx, &ContactLog{StakeholderID: &id, At: older, Method: "call", Summary: "intro"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddContactLog(ctx, &ContactLog{StakeholderID: &id, At: newer, Method: "email", FollowUpNeeded: true, FollowUpDate: "2025-03-12"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddContactLog(ctx, &ContactLog{StakeholderID: &id, FollowUpDate: "12.03.2025"}); err == nil {
		t.Fatal("bad follow-up date accepted")
	}

	logs, err := s.ContactLogs(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 || !logs[0].At.Equal(newer) {
		t.Fatalf("logs not newest-first: %+v", logs)
	}
	if logs[0].FollowUpDate != "2025-03-12" {
		t.Fatalf("follow-up date: %+v", logs[0])
	}
}

func TestTabsRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Builtins come from the seed.
	tabs, err := s.Tabs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	builtins := len(tabs)
	if builtins == 0 {
		t.Fatal("builtin tabs must be seeded")
	}

	custom := &Tab{Key: "legal_team", Label: "Legal Team", EntityTypes: []string{"attorney", "firm"}, SortOrder: 99}
	if err := s.SaveTab(ctx, custom); err != nil {
		t.Fatal(err)
	}
	// Same key updates in place.
	custom.Label = "Legal"
	if err := s.SaveTab(ctx, custom); err != nil {
		t.Fatal(err)
	}

	tabs, err = s.Tabs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tabs) != builtins+1 {
		t.Fatalf("tab count: %d", len(tabs))
	}
	last := tabs[len(tabs)-1]
	if last.Label != "Legal" || len(last.EntityTypes) != 2 {
		t.Fatalf("saved tab: %+v", last)
	}

	for _, tab := range tabs {
		if tab.IsBuiltin {
			if err := s.DeleteTab(ctx, tab.ID); err != ErrNotFound {
				t.Fatalf("builtin delete must refuse, got %v", err)
			}
			break
		}
	}
	if err := s.DeleteTab(ctx, last.ID); err != nil {
		t.Fatalf("custom tab delete: %v", err)
	}
}
