package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"controlcenter/internal/config"
	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

func testService(t *testing.T, cfg config.BackupConfig) (*Service, *storage.DB) {
	t.Helper()
	base := t.TempDir()
	db, err := storage.Open(storage.Config{Path: filepath.Join(base, "live.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(base, "backups")
	}
	return NewService(db, cfg, logx.Nop()), db
}

func TestCreateAndList(t *testing.T) {
	svc, _ := testService(t, config.BackupConfig{})
	ctx := context.Background()

	a, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Size == 0 {
		t.Fatal("archive is empty")
	}

	archives, err := svc.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(archives) != 1 || archives[0].Name != a.Name {
		t.Fatalf("list = %+v", archives)
	}

	// No stray snapshot temp files left behind.
	entries, err := os.ReadDir(svc.Dir())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("backup dir has %d entries, want 1", len(entries))
	}
}

func TestListEmptyDir(t *testing.T) {
	svc, _ := testService(t, config.BackupConfig{Dir: filepath.Join(t.TempDir(), "missing")})
	archives, err := svc.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(archives) != 0 {
		t.Fatalf("list = %+v", archives)
	}
}

func TestPruneRetention(t *testing.T) {
	svc, _ := testService(t, config.BackupConfig{Retention: 2})
	ctx := context.Background()

	base := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return at }
		if _, err := svc.Create(ctx); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	removed, err := svc.Prune()
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	archives, err := svc.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(archives) != 2 {
		t.Fatalf("remaining = %d, want 2", len(archives))
	}
	// Newest two survive.
	if archives[0].CreatedAt.Before(archives[1].CreatedAt) {
		t.Fatal("list not newest first")
	}
	if got := archives[1].CreatedAt; !got.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("oldest survivor = %v", got)
	}
}

func TestPruneDisabled(t *testing.T) {
	svc, _ := testService(t, config.BackupConfig{Retention: 0})
	if _, err := svc.Create(context.Background()); err != nil {
		t.Fatalf("create: %v", err)
	}
	removed, err := svc.Prune()
	if err != nil || removed != 0 {
		t.Fatalf("prune = %d, %v", removed, err)
	}
}

func TestRestore(t *testing.T) {
	svc, _ := testService(t, config.BackupConfig{})
	ctx := context.Background()

	a, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "restored.db")
	if err := svc.Restore(a.Name, dst); err != nil {
		t.Fatalf("restore: %v", err)
	}

	// The restored file must be an openable database with the schema applied.
	db, err := storage.Open(storage.Config{Path: dst}, logx.Nop())
	if err != nil {
		t.Fatalf("open restored: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.SQL().QueryRow(`SELECT COUNT(*) FROM choice_options`).Scan(&n); err != nil {
		t.Fatalf("query restored: %v", err)
	}
	if n == 0 {
		t.Fatal("restored database lost its seed data")
	}

	if err := svc.Restore(a.Name, dst); err == nil {
		t.Fatal("restore over existing file succeeded")
	}
	if err := svc.Restore("nope.tar.gz", filepath.Join(t.TempDir(), "x.db")); err != ErrNotFound {
		t.Fatalf("restore missing = %v, want ErrNotFound", err)
	}
	if err := svc.Restore("../escape.tar.gz", filepath.Join(t.TempDir(), "y.db")); err == nil {
		t.Fatal("path traversal accepted")
	}
}

func TestCronSpec(t *testing.T) {
	cases := []struct {
		cfg  config.BackupConfig
		want string
	}{
		{config.BackupConfig{Frequency: "hourly", Minute: 30}, "30 * * * *"},
		{config.BackupConfig{Frequency: "daily", Hour: 3, Minute: 15}, "15 3 * * *"},
		{config.BackupConfig{Frequency: "weekly", Hour: 4}, "0 4 * * 0"},
		{config.BackupConfig{}, "0 0 * * *"},
	}
	for _, c := range cases {
		svc := &Service{cfg: c.cfg}
		if got := svc.CronSpec(); got != c.want {
			t.Errorf("CronSpec(%q) = %q, want %q", c.cfg.Frequency, got, c.want)
		}
	}
}
