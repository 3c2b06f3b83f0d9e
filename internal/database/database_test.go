package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error: %v", err)
	}
	defer db.Close()

	// Verify all expected tables exist.
	tables := []string{"apply_runs", "apply_steps"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := migrate(db); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("expected schema version %d, got %d", len(migrations), version)
	}
}

func TestOpenFileCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.Close()

	// Reopening an up-to-date database must not replay migrations.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if _, err := RecordApply(context.Background(), db, ApplyRun{Source: "cli", ScriptSHA256: "ff"}); err != nil {
		t.Fatalf("RecordApply after reopen: %v", err)
	}
}

func TestRecordAndListApplies(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := ApplyRun{
		StartedAt:     start,
		FinishedAt:    start.Add(2 * time.Second),
		Source:        "cli",
		DaemonEnabled: true,
		Connections:   2,
		Gateways:      1,
		ScriptSHA256:  "abc",
		Steps: []ApplyStep{
			{Step: "files", OK: true},
			{Step: "sysctl", OK: false, Message: "exit status 255"},
		},
		Error: "sysctl failed",
	}
	if _, err := RecordApply(ctx, db, first); err != nil {
		t.Fatalf("RecordApply: %v", err)
	}
	second := ApplyRun{StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour), Source: "api", TCPMSS1024: true}
	if _, err := RecordApply(ctx, db, second); err != nil {
		t.Fatalf("RecordApply: %v", err)
	}

	runs, err := ListApplies(ctx, db, 10)
	if err != nil {
		t.Fatalf("ListApplies: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Source != "api" || !runs[0].TCPMSS1024 || len(runs[0].Steps) != 0 || runs[0].Error != "" {
		t.Fatalf("unexpected newest run: %#v", runs[0])
	}
	older := runs[1]
	if older.Duration != 2000 || !older.DaemonEnabled || older.Gateways != 1 || older.Error != "sysctl failed" {
		t.Fatalf("unexpected older run: %#v", older)
	}
	if len(older.Steps) != 2 || older.Steps[1].OK || older.Steps[1].Message != "exit status 255" {
		t.Fatalf("unexpected steps: %#v", older.Steps)
	}
}

func TestCleanupCascadesSteps(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-100 * 24 * time.Hour)
	id, err := RecordApply(ctx, db, ApplyRun{StartedAt: old, FinishedAt: old, Steps: []ApplyStep{{Step: "files", OK: true}}})
	if err != nil {
		t.Fatalf("RecordApply: %v", err)
	}
	if _, err := RecordApply(ctx, db, ApplyRun{StartedAt: now, FinishedAt: now}); err != nil {
		t.Fatalf("RecordApply: %v", err)
	}

	if err := cleanupBefore(db, now); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	var runs, steps int
	db.QueryRow("SELECT COUNT(*) FROM apply_runs").Scan(&runs)
	db.QueryRow("SELECT COUNT(*) FROM apply_steps WHERE run_id=?", id).Scan(&steps)
	if runs != 1 || steps != 0 {
		t.Fatalf("expected old run and its steps pruned, got runs=%d steps=%d", runs, steps)
	}
	if err := cleanupBefore(nil, now); err == nil {
		t.Fatalf("expected nil handle error")
	}
}
