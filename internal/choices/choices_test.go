package choices

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

func testService(t *testing.T) *Service {
	t.Helper()
	db, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewService(db, time.Minute, logx.Nop())
}

func TestSeededOptions(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	opts, err := s.Options(ctx, CategoryEntityType)
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) == 0 {
		t.Fatal("entity_type must be seeded")
	}
	if !s.ValidValue(ctx, CategoryEntityType, "attorney") {
		t.Fatal("seeded value rejected")
	}
	if s.ValidValue(ctx, CategoryEntityType, "wizard") {
		t.Fatal("unknown value accepted")
	}
	if got := s.Label(ctx, CategoryContactMethod, "email"); got != "Email" {
		t.Fatalf("label = %q", got)
	}
	if got := s.Label(ctx, CategoryContactMethod, "telegraph"); got != "telegraph" {
		t.Fatalf("retired value label = %q", got)
	}
}

func TestAddInvalidatesCache(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	before, err := s.Options(ctx, CategoryVehicleType)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Add(ctx, CategoryVehicleType, "tractor", "Tractor"); err != nil {
		t.Fatal(err)
	}
	after, err := s.Options(ctx, CategoryVehicleType)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("cache not invalidated: %d -> %d", len(before), len(after))
	}
	if !s.ValidValue(ctx, CategoryVehicleType, "tractor") {
		t.Fatal("new value rejected")
	}

	if _, err := s.Add(ctx, "nonsense", "x", "X"); err == nil {
		t.Fatal("unknown category accepted")
	}
}

func TestDeactivateRetiresValue(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	opt, err := s.Add(ctx, CategoryNoteType, "dream", "Dream")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Deactivate(ctx, opt.ID); err != nil {
		t.Fatal(err)
	}
	if s.ValidValue(ctx, CategoryNoteType, "dream") {
		t.Fatal("deactivated value still offered")
	}
	// The label still resolves for rows that kept the old value.
	if got := s.Label(ctx, CategoryNoteType, "dream"); got != "dream" {
		t.Fatalf("retired label = %q", got)
	}

	if err := s.Reactivate(ctx, opt.ID); err != nil {
		t.Fatal(err)
	}
	if !s.ValidValue(ctx, CategoryNoteType, "dream") {
		t.Fatal("reactivated value rejected")
	}

	if err := s.Deactivate(ctx, 999999); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
