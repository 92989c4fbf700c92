package legal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

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

func addStakeholder(t *testing.T, s *Store, name string) int64 {
	t.Helper()
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO stakeholders(name, entity_type, created_at, updated_at)
		 VALUES(?, 'attorney', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`, name)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := res.LastInsertId()
	return id
}

func TestMatterRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	settlement := decimal.RequireFromString("75000.00")
	m := &Matter{
		Title:            "Doe v. Partnership",
		CaseNumber:       "25-cv-01234",
		MatterType:       "litigation",
		Jurisdiction:     "NV",
		FilingDate:       "2025-02-01",
		NextHearingDate:  "2025-11-03",
		SettlementAmount: &settlement,
	}
	id, err := s.Create(ctx, m)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusOpen {
		t.Fatalf("default status: %q", got.Status)
	}
	if got.SettlementAmount == nil || !got.SettlementAmount.Equal(settlement) {
		t.Fatalf("settlement: %v", got.SettlementAmount)
	}

	if _, err := s.Create(ctx, &Matter{Title: "x", Status: "lost"}); err == nil {
		t.Fatal("invalid status accepted")
	}
	if _, err := s.Create(ctx, &Matter{Title: "x", FilingDate: "02/01/2025"}); err == nil {
		t.Fatal("bad filing date accepted")
	}
}

func TestMatterListFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, &Matter{Title: "Open suit", MatterType: "litigation"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, &Matter{Title: "Closed audit", MatterType: "compliance", Status: StatusClosed}); err != nil {
		t.Fatal(err)
	}

	got, err := s.List(ctx, Filter{Statuses: []Status{StatusOpen}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Open suit" {
		t.Fatalf("status filter: %+v", got)
	}

	got, err = s.List(ctx, Filter{MatterType: "compliance"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Closed audit" {
		t.Fatalf("type filter: %+v", got)
	}
}

func TestUpcomingHearings(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, &Matter{Title: "Soon", NextHearingDate: "2025-10-10"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, &Matter{Title: "Far", NextHearingDate: "2026-06-01"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, &Matter{Title: "Settled", NextHearingDate: "2025-10-12", Status: StatusSettled}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListUpcomingHearings(ctx, "2025-10-01", "2025-10-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Soon" {
		t.Fatalf("hearing scan: %+v", got)
	}
}

func TestParties(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, &Matter{Title: "Estate matter"})
	if err != nil {
		t.Fatal(err)
	}
	counsel := addStakeholder(t, s, "Counsel")

	if err := s.SetParty(ctx, &Party{MatterID: id, StakeholderID: counsel, Role: "counsel"}); err != nil {
		t.Fatal(err)
	}
	// Same stakeholder again updates the role.
	if err := s.SetParty(ctx, &Party{MatterID: id, StakeholderID: counsel, Role: "lead counsel"}); err != nil {
		t.Fatal(err)
	}

	parties, err := s.Parties(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(parties) != 1 || parties[0].Role != "lead counsel" {
		t.Fatalf("parties: %+v", parties)
	}

	if err := s.RemoveParty(ctx, id, counsel); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveParty(ctx, id, counsel); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
