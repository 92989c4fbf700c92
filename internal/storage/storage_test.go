package storage

import (
	"context"
	"path/filepath"
	"testing"

	logx "controlcenter/pkg/logx"
)

func TestOpenAppliesMigrations(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "app.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.SQL().QueryRow(`SELECT COUNT(*) FROM choice_options`).Scan(&n); err != nil {
		t.Fatalf("query seeds: %v", err)
	}
	if n == 0 {
		t.Fatal("choice options not seeded")
	}

	var fk int
	if err := db.SQL().QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Fatal("foreign keys not enabled")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	for i := 0; i < 2; i++ {
		db, err := Open(Config{Path: path}, logx.Nop())
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		db.Close()
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}, logx.Nop()); err == nil {
		t.Fatal("empty path accepted")
	}
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(Config{Path: filepath.Join(dir, "app.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	dst := filepath.Join(dir, "snap.db")
	if err := db.Snapshot(context.Background(), dst); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	snap, err := Open(Config{Path: dst}, logx.Nop())
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer snap.Close()
	var n int
	if err := snap.SQL().QueryRow(`SELECT COUNT(*) FROM choice_options`).Scan(&n); err != nil {
		t.Fatalf("query snapshot: %v", err)
	}
	if n == 0 {
		t.Fatal("snapshot missing data")
	}

	if err := db.Snapshot(context.Background(), dst); err == nil {
		t.Fatal("snapshot over existing file succeeded")
	}
	if err := db.Snapshot(context.Background(), ""); err == nil {
		t.Fatal("empty snapshot path accepted")
	}
}
