package asset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

func testDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testDB(t), logx.Nop())
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func addStakeholder(t *testing.T, s *Store, name string) int64 {
	t.Helper()
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO stakeholders(name, entity_type, created_at, updated_at)
		 VALUES(?, 'contact', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`, name)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := res.LastInsertId()
	return id
}

func TestPropertyRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p := &Property{
		Name:            "Lakehouse",
		Address:         "1 Shore Dr",
		Jurisdiction:    "WA",
		EstimatedValue:  dec("1250000.50"),
		AcquisitionDate: "2019-06-15",
	}
	id, err := s.CreateProperty(ctx, p)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetProperty(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "owned" {
		t.Fatalf("default status: %q", got.Status)
	}
	if got.EstimatedValue == nil || !got.EstimatedValue.Equal(decimal.RequireFromString("1250000.50")) {
		t.Fatalf("value lost precision: %v", got.EstimatedValue)
	}

	if _, err := s.CreateProperty(ctx, &Property{Name: "Bad", AcquisitionDate: "June 2019"}); err == nil {
		t.Fatal("bad date accepted")
	}
	if _, err := s.GetProperty(ctx, 9999); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPropertyOwnerships(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	pid, err := s.CreateProperty(ctx, &Property{Name: "Duplex"})
	if err != nil {
		t.Fatal(err)
	}
	owner := addStakeholder(t, s, "Owner A")
	partner := addStakeholder(t, s, "Owner B")

	if err := s.SetPropertyOwnership(ctx, &Ownership{AssetID: pid, StakeholderID: owner, Pct: dec("60"), Role: "owner"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPropertyOwnership(ctx, &Ownership{AssetID: pid, StakeholderID: partner, Pct: dec("40")}); err != nil {
		t.Fatal(err)
	}
	// Upsert on the same pair replaces, never duplicates.
	if err := s.SetPropertyOwnership(ctx, &Ownership{AssetID: pid, StakeholderID: owner, Pct: dec("55"), Role: "managing owner"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPropertyOwnership(ctx, &Ownership{AssetID: pid, StakeholderID: owner, Pct: dec("101")}); err == nil {
		t.Fatal("percentage above 100 accepted")
	}

	links, err := s.PropertyOwnerships(ctx, pid)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Fatalf("ownerships: %+v", links)
	}
	if !links[0].Pct.Equal(decimal.RequireFromString("55")) || links[0].Role != "managing owner" {
		t.Fatalf("upsert did not replace: %+v", links[0])
	}

	if err := s.RemovePropertyOwnership(ctx, pid, partner); err != nil {
		t.Fatal(err)
	}
	if err := s.RemovePropertyOwnership(ctx, pid, partner); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoanLinks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	pid, err := s.CreateProperty(ctx, &Property{Name: "Rental"})
	if err != nil {
		t.Fatal(err)
	}
	l := &Loan{
		Name:           "Rental mortgage",
		PropertyID:     &pid,
		OriginalAmount: dec("400000"),
		CurrentBalance: dec("312456.78"),
		InterestRate:   dec("5.125"),
		IsHardMoney:    false,
		MaturityDate:   "2040-01-01",
	}
	id, err := s.CreateLoan(ctx, l)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetLoan(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.PropertyID == nil || *got.PropertyID != pid {
		t.Fatalf("property link: %+v", got)
	}
	if !got.InterestRate.Equal(decimal.RequireFromString("5.125")) {
		t.Fatalf("rate: %v", got.InterestRate)
	}

	// Deleting the collateral property nulls the link, keeps the loan.
	if err := s.DeleteProperty(ctx, pid); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetLoan(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.PropertyID != nil {
		t.Fatalf("link not cleared: %+v", got)
	}
}

func TestSummaryMath(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.CreateProperty(ctx, &Property{Name: "A", EstimatedValue: dec("500000")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateProperty(ctx, &Property{Name: "B", EstimatedValue: dec("250000.25"), Status: "sold"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateInvestment(ctx, &Investment{Name: "Fund", CurrentValue: dec("100000.10")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateVehicle(ctx, &Vehicle{Name: "Truck", EstimatedValue: dec("45000")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateLoan(ctx, &Loan{Name: "Mortgage", CurrentBalance: dec("300000.35")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateLoan(ctx, &Loan{Name: "Paid off", CurrentBalance: dec("999"), Status: "closed"}); err != nil {
		t.Fatal(err)
	}

	sum, err := s.Summarize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Sold property and closed loan stay out of the totals.
	if !sum.PropertyValue.Equal(decimal.RequireFromString("500000")) {
		t.Fatalf("property value: %v", sum.PropertyValue)
	}
	if !sum.LoanBalance.Equal(decimal.RequireFromString("300000.35")) {
		t.Fatalf("loan balance: %v", sum.LoanBalance)
	}
	want := decimal.RequireFromString("344999.75") // 500000 + 100000.10 + 45000 - 300000.35
	if !sum.NetValue.Equal(want) {
		t.Fatalf("net value = %v, want %v", sum.NetValue, want)
	}
	if sum.PropertyCount != 1 || sum.LoanCount != 1 {
		t.Fatalf("counts: %+v", sum)
	}
}

func TestExpiringPolicies(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.CreatePolicy(ctx, &InsurancePolicy{Name: "Hangar", ExpirationDate: "2025-09-15"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreatePolicy(ctx, &InsurancePolicy{Name: "Auto", ExpirationDate: "2025-09-20", AutoRenew: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreatePolicy(ctx, &InsurancePolicy{Name: "Far out", ExpirationDate: "2026-09-15"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListExpiringPolicies(ctx, "2025-09-01", "2025-09-30")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Hangar" {
		t.Fatalf("expiring scan: %+v", got)
	}
}
