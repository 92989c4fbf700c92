package cashflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"controlcenter/internal/storage"
	"controlcenter/internal/task"
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

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func mustCreate(t *testing.T, s *Store, e *Entry) *Entry {
	t.Helper()
	if _, err := s.Create(context.Background(), e); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return e
}

func TestEntryRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	e := mustCreate(t, s, &Entry{
		Description: "April rent",
		Amount:      dec(t, "2450.00"),
		Type:        TypeIncome,
		Category:    "rent",
		Date:        "2025-04-01",
	})

	got, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Amount.Equal(dec(t, "2450.00")) {
		t.Fatalf("amount = %s, want 2450.00", got.Amount)
	}
	if got.Type != TypeIncome || got.Category != "rent" || got.Date != "2025-04-01" {
		t.Fatalf("unexpected entry: %+v", got)
	}

	got.Amount = dec(t, "2500.00")
	got.NotesText = "raised"
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if !again.Amount.Equal(dec(t, "2500.00")) || again.NotesText != "raised" {
		t.Fatalf("update not persisted: %+v", again)
	}

	if err := s.Delete(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, e.ID); err != ErrNotFound {
		t.Fatalf("get deleted = %v, want ErrNotFound", err)
	}
}

func TestEntryValidation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cases := []Entry{
		{Description: "", Amount: dec(t, "10"), Type: TypeIncome, Date: "2025-04-01"},
		{Description: "x", Amount: dec(t, "10"), Type: "transfer", Date: "2025-04-01"},
		{Description: "x", Amount: dec(t, "0"), Type: TypeExpense, Date: "2025-04-01"},
		{Description: "x", Amount: dec(t, "-5"), Type: TypeExpense, Date: "2025-04-01"},
		{Description: "x", Amount: dec(t, "10"), Type: TypeExpense, Date: "04/01/2025"},
		{Description: "x", Amount: dec(t, "10"), Type: TypeExpense, Date: "2025-04-01",
			IsRecurring: true, RecurrenceRule: "fortnightly"},
	}
	for i, e := range cases {
		if _, err := s.Create(ctx, &e); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestListFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mustCreate(t, s, &Entry{Description: "rent", Amount: dec(t, "2000"), Type: TypeIncome, Category: "rent", Date: "2025-04-01"})
	mustCreate(t, s, &Entry{Description: "insurance", Amount: dec(t, "300"), Type: TypeExpense, Category: "insurance", Date: "2025-04-10"})
	mustCreate(t, s, &Entry{Description: "may rent", Amount: dec(t, "2000"), Type: TypeIncome, Category: "rent", Date: "2025-05-01", IsProjected: true})

	income, err := s.List(ctx, Filter{Type: TypeIncome})
	if err != nil {
		t.Fatalf("list income: %v", err)
	}
	if len(income) != 2 {
		t.Fatalf("income count = %d, want 2", len(income))
	}

	april, err := s.List(ctx, Filter{DateFrom: "2025-04-01", DateTo: "2025-04-30"})
	if err != nil {
		t.Fatalf("list april: %v", err)
	}
	if len(april) != 2 {
		t.Fatalf("april count = %d, want 2", len(april))
	}

	proj := true
	projected, err := s.List(ctx, Filter{Projected: &proj})
	if err != nil {
		t.Fatalf("list projected: %v", err)
	}
	if len(projected) != 1 || projected[0].Description != "may rent" {
		t.Fatalf("projected = %+v", projected)
	}
}

func TestConfirmProjectsNextEntry(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	e := mustCreate(t, s, &Entry{
		Description:    "rent",
		Amount:         dec(t, "2000"),
		Type:           TypeIncome,
		Category:       "rent",
		Date:           "2025-04-01",
		IsProjected:    true,
		IsRecurring:    true,
		RecurrenceRule: task.RuleMonthly,
	})

	got, err := s.Confirm(ctx, e.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.IsProjected {
		t.Fatal("confirmed entry still projected")
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("entry count = %d, want 2", len(all))
	}
	next := all[0] // newest date first
	if next.Date != "2025-05-01" || !next.IsProjected || !next.IsRecurring {
		t.Fatalf("successor = %+v", next)
	}
	if !next.Amount.Equal(e.Amount) || next.Category != e.Category {
		t.Fatalf("successor did not copy fields: %+v", next)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	e := mustCreate(t, s, &Entry{
		Description:    "rent",
		Amount:         dec(t, "2000"),
		Type:           TypeIncome,
		Date:           "2025-04-01",
		IsProjected:    true,
		IsRecurring:    true,
		RecurrenceRule: task.RuleMonthly,
	})

	if _, err := s.Confirm(ctx, e.ID); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if _, err := s.Confirm(ctx, e.ID); err != nil {
		t.Fatalf("second confirm: %v", err)
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("entry count after double confirm = %d, want 2", len(all))
	}
}

func TestConfirmNonRecurring(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	e := mustCreate(t, s, &Entry{
		Description: "one-off sale",
		Amount:      dec(t, "150"),
		Type:        TypeIncome,
		Date:        "2025-04-05",
		IsProjected: true,
	})
	if _, err := s.Confirm(ctx, e.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("non-recurring confirm spawned entries: %d", len(all))
	}
}

func TestRecur(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	e := mustCreate(t, s, &Entry{
		Description:    "mortgage",
		Amount:         dec(t, "1800"),
		Type:           TypeExpense,
		Date:           "2025-01-31",
		IsRecurring:    true,
		RecurrenceRule: task.RuleMonthly,
	})
	next, err := s.Recur(ctx, e)
	if err != nil {
		t.Fatalf("recur: %v", err)
	}
	if next.Date != "2025-02-28" || !next.IsProjected {
		t.Fatalf("successor = %+v", next)
	}

	plain := mustCreate(t, s, &Entry{
		Description: "one-off",
		Amount:      dec(t, "50"),
		Type:        TypeExpense,
		Date:        "2025-01-31",
	})
	if _, err := s.Recur(ctx, plain); err == nil {
		t.Fatal("recur on non-recurring entry succeeded")
	}
}

func TestSummarize(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mustCreate(t, s, &Entry{Description: "rent", Amount: dec(t, "2000.50"), Type: TypeIncome, Category: "rent", Date: "2025-04-01"})
	mustCreate(t, s, &Entry{Description: "repair", Amount: dec(t, "425.25"), Type: TypeExpense, Category: "maintenance", Date: "2025-04-12"})
	mustCreate(t, s, &Entry{Description: "tax", Amount: dec(t, "300"), Type: TypeExpense, Category: "taxes", Date: "2025-04-15"})
	mustCreate(t, s, &Entry{Description: "may rent", Amount: dec(t, "2000.50"), Type: TypeIncome, Category: "rent", Date: "2025-05-01", IsProjected: true})
	mustCreate(t, s, &Entry{Description: "march rent", Amount: dec(t, "2000.50"), Type: TypeIncome, Category: "rent", Date: "2025-03-01"})

	sum, err := s.Summarize(ctx, "2025-04-01", "2025-05-31")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got := sum.Income.String(); got != "2000.5" {
		t.Fatalf("income = %s, want 2000.5", got)
	}
	if got := sum.Expenses.String(); got != "725.25" {
		t.Fatalf("expenses = %s, want 725.25", got)
	}
	if got := sum.Net.String(); got != "1275.25" {
		t.Fatalf("net = %s, want 1275.25", got)
	}
	if got := sum.ProjectedIncome.String(); got != "2000.5" {
		t.Fatalf("projected income = %s, want 2000.5", got)
	}
	if sum.EntryCount != 4 {
		t.Fatalf("entry count = %d, want 4", sum.EntryCount)
	}
	if got := sum.ByCategory["rent"].String(); got != "4001" {
		t.Fatalf("rent category = %s, want 4001", got)
	}
	if got := sum.ByCategory["maintenance"].String(); got != "-425.25" {
		t.Fatalf("maintenance category = %s, want -425.25", got)
	}
}
