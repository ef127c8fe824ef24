package localdb

import (
	"database/sql"
	"errors"
	"testing"
)

func TestMigrateFreshDatabase(t *testing.T) {
	db, err := Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer db.Close()

	applied := 0
	migrations := []Migration{
		func(conn *sql.DB) error {
			applied++
			_, err := conn.Exec(`CREATE TABLE demo (id TEXT PRIMARY KEY)`)
			return err
		},
	}

	if err := db.Migrate(migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied: got %d, want 1", applied)
	}

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != 1 {
		t.Fatalf("schema version: got %d, want 1", v)
	}

	// Re-running applies nothing
	if err := db.Migrate(migrations); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied after re-run: got %d, want 1", applied)
	}
}

func TestMigrateAppliesOnlyNewSteps(t *testing.T) {
	db, err := Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer db.Close()

	step1 := func(conn *sql.DB) error {
		_, err := conn.Exec(`CREATE TABLE demo (id TEXT PRIMARY KEY)`)
		return err
	}
	if err := db.Migrate([]Migration{step1}); err != nil {
		t.Fatalf("migrate v1: %v", err)
	}

	step2Runs := 0
	step2 := func(conn *sql.DB) error {
		step2Runs++
		_, err := conn.Exec(`ALTER TABLE demo ADD COLUMN name TEXT`)
		return err
	}
	if err := db.Migrate([]Migration{step1, step2}); err != nil {
		t.Fatalf("migrate v2: %v", err)
	}
	if step2Runs != 1 {
		t.Fatalf("step2 runs: got %d, want 1", step2Runs)
	}

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != 2 {
		t.Fatalf("schema version: got %d, want 2", v)
	}
}

func TestMigrateRejectsNewerDatabase(t *testing.T) {
	db, err := Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer db.Close()

	noop := func(conn *sql.DB) error { return nil }
	if err := db.Migrate([]Migration{noop, noop}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// An older build with fewer migrations must refuse the database
	if err := db.Migrate([]Migration{noop}); err == nil {
		t.Fatal("expected error for newer schema version")
	}
}

func TestMigrateStopsOnFailure(t *testing.T) {
	db, err := Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer db.Close()

	boom := errors.New("boom")
	migrations := []Migration{
		func(conn *sql.DB) error { return boom },
	}
	if err := db.Migrate(migrations); !errors.Is(err, boom) {
		t.Fatalf("migrate error: got %v", err)
	}

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != 0 {
		t.Fatalf("failed migration recorded: version %d", v)
	}
}
