package localdb

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Migration is one schema step. Steps are applied in order and recorded in
// schema_info, so reopening an older database upgrades it in place.
type Migration func(conn *sql.DB) error

// SchemaVersion returns the applied schema version, 0 for a fresh database.
func (db *DB) SchemaVersion() (int, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM schema_info WHERE key = 'version'`).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		// Table missing means pre-migration
		return 0, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", value, err)
	}
	return v, nil
}

func (db *DB) setSchemaVersion(version int) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		strconv.Itoa(version))
	return err
}

// Migrate applies any migrations beyond the current schema version.
// Idempotent; safe to run on every open.
func (db *DB) Migrate(migrations []Migration) error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_info (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create schema_info: %w", err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this build supports (%d)",
			current, len(migrations))
	}

	for i := current; i < len(migrations); i++ {
		if err := migrations[i](db.conn); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if err := db.setSchemaVersion(i + 1); err != nil {
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
	}
	return nil
}
