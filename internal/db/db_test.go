package db

import (
	"path/filepath"
	"testing"
)

func TestDSN(t *testing.T) {
	cases := map[string]string{
		"app.db":                           "app.db?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL",
		"file:x?mode=memory&cache=shared": "file:x?mode=memory&cache=shared&_busy_timeout=5000&_foreign_keys=1",
	}
	for in, want := range cases {
		if got := dsn(in); got != want {
			t.Fatalf("dsn(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	versions, err := AppliedVersions(d)
	if err != nil {
		t.Fatalf("applied versions: %v", err)
	}
	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Fatalf("applied = %v, want [1 2]", versions)
	}
	ran, err := Migrate(d)
	if err != nil || len(ran) != 0 {
		t.Fatalf("second migrate ran=%v err=%v", ran, err)
	}
	_ = d.Close()

	// Reopening must not re-run anything.
	d, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	var fk int
	if err := d.Get(&fk, `PRAGMA foreign_keys`); err != nil || fk != 1 {
		t.Fatalf("foreign_keys = %d err=%v", fk, err)
	}
}

func TestRollbackLast(t *testing.T) {
	d, err := Open("file:rollback?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	v, err := RollbackLast(d)
	if err != nil || v != 2 {
		t.Fatalf("rollback = %d err=%v, want 2", v, err)
	}
	var n int
	if err := d.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'reports'`); err != nil || n != 0 {
		t.Fatalf("reports table still present: n=%d err=%v", n, err)
	}

	ran, err := Migrate(d)
	if err != nil || len(ran) != 1 || ran[0] != 2 {
		t.Fatalf("re-migrate ran=%v err=%v", ran, err)
	}
}

func TestOpenRaw_LeavesSchemaAlone(t *testing.T) {
	d, err := OpenRaw(filepath.Join(t.TempDir(), "raw.db"))
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	defer d.Close()
	var n int
	if err := d.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'`); err != nil || n != 0 {
		t.Fatalf("tables = %d err=%v, want none", n, err)
	}
}
