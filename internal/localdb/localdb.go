// Package localdb manages the embedded SQLite database that backs the
// offline cache and the mutation outbox. The handle is explicitly
// constructed and injected; there is no process-wide singleton.
package localdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	dataDirName = ".landlord"
	dbFileName  = "offline.db"
)

// DB wraps the local database connection
type DB struct {
	conn    *sql.DB
	baseDir string
}

// DataDir returns the data directory under baseDir.
func DataDir(baseDir string) string {
	return filepath.Join(baseDir, dataDirName)
}

// Open opens an existing local database and applies connection pragmas.
func Open(baseDir string) (*DB, error) {
	dbPath := filepath.Join(DataDir(baseDir), dbFileName)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("local database not found: run 'landlord init' first")
	}

	conn, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	return &DB{conn: conn, baseDir: baseDir}, nil
}

// Initialize creates the local database file if needed and applies pragmas.
// Table creation is owned by the store and outbox packages.
func Initialize(baseDir string) (*DB, error) {
	dbPath := filepath.Join(DataDir(baseDir), dbFileName)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	conn, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	return &DB{conn: conn, baseDir: baseDir}, nil
}

func open(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Busy timeout as fallback protection (matches the write lock timeout)
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Slightly faster writes, still safe with WAL
	conn.Exec("PRAGMA synchronous=NORMAL")

	return conn, nil
}

// Conn returns the underlying *sql.DB connection for use by the store and
// outbox layers.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// BaseDir returns the base directory the database lives under.
func (db *DB) BaseDir() string {
	return db.baseDir
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

// WithWriteLock executes fn while holding an exclusive cross-process write
// lock on the data directory.
func (db *DB) WithWriteLock(fn func() error) error {
	locker := newWriteLocker(DataDir(db.baseDir))
	if err := locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}
