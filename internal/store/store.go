// Package store is the local cache of remote rows: per-entity-type tables
// holding the last known snapshot of each row, scoped by organization, with
// projection columns for filtered queries while offline.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erebuskaimoros/Landlord-sub000/internal/models"
)

// ErrNotFound is returned by GetByID when no cached row has the id.
// A broken store surfaces its own error instead; callers must not conflate
// the two.
var ErrNotFound = errors.New("record not cached")

// Store provides cache access over the shared local database.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	subs    map[int]func()
	nextSub int
}

// New creates a Store over an open local database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db, subs: make(map[int]func())}
}

// InitSchema creates the cache tables and metadata table if they don't exist.
func InitSchema(db *sql.DB) error {
	for _, s := range Schemas() {
		if _, err := db.Exec(s.ddl()); err != nil {
			return fmt.Errorf("create cache table %s: %w", s.CacheTable(), err)
		}
	}
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_metadata (
			entity_type     TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			last_synced_at  INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create cache metadata: %w", err)
	}
	return nil
}

// Subscribe registers fn to run after any successful cache mutation.
// Returns a cancel func. Callbacks run synchronously; keep them cheap.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// UpsertBatch replaces each record's cached row wholesale, recomputing
// projection columns from the payload, and stamps the entity type's sync
// metadata. Idempotent; the last write in the batch wins for duplicate ids.
// Rows absent from the batch are left untouched: a refresh never deletes,
// only Clear does.
func (s *Store) UpsertBatch(schema *Schema, orgID string, records []models.CachedRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	cols := "id, organization_id, payload, updated_at"
	marks := "?, ?, ?, ?"
	for _, c := range schema.Columns {
		cols += ", " + c.Name
		marks += ", ?"
	}
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", schema.CacheTable(), cols, marks)

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		proj, err := schema.projections(rec.Payload)
		if err != nil {
			return fmt.Errorf("project %s %s: %w", schema.Name, rec.ID, err)
		}
		args := append([]any{rec.ID, orgID, []byte(rec.Payload), rec.UpdatedAt.UnixMilli()}, proj...)
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("upsert %s %s: %w", schema.Name, rec.ID, err)
		}
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO cache_metadata (entity_type, organization_id, last_synced_at)
		VALUES (?, ?, ?)
	`, schema.Name, orgID, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("stamp cache metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	s.notify()
	return nil
}

// GetAll returns the cached records for an organization, narrowed and
// ordered by the filter. An empty cache is an empty slice, not an error.
func (s *Store) GetAll(schema *Schema, orgID string, f Filter) ([]models.CachedRecord, error) {
	where, args, err := buildWhere(schema, f)
	if err != nil {
		return nil, err
	}
	order, err := buildOrder(schema, f)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT id, organization_id, payload, updated_at FROM %s WHERE organization_id = ?%s%s",
		schema.CacheTable(), where, order)

	rows, err := s.db.Query(query, append([]any{orgID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", schema.CacheTable(), err)
	}
	defer rows.Close()

	records := []models.CachedRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}

// GetByID returns one cached record. Ids are globally unique in the remote
// backend, so the lookup is not organization-scoped.
func (s *Store) GetByID(schema *Schema, id string) (*models.CachedRecord, error) {
	query := fmt.Sprintf(
		"SELECT id, organization_id, payload, updated_at FROM %s WHERE id = ?", schema.CacheTable())

	var rec models.CachedRecord
	var payload []byte
	var updatedMs int64
	err := s.db.QueryRow(query, id).Scan(&rec.ID, &rec.OrganizationID, &payload, &updatedMs)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", schema.Name, id, err)
	}
	rec.Payload = json.RawMessage(payload)
	rec.UpdatedAt = time.UnixMilli(updatedMs)
	return &rec, nil
}

// GeoRecord is a cached record with its coordinate projections resolved.
type GeoRecord struct {
	models.CachedRecord
	Latitude  float64
	Longitude float64
}

// GeoRecords returns every cached record of the schema that has both
// coordinates set. Used by the proximity matcher.
func (s *Store) GeoRecords(schema *Schema, orgID string) ([]GeoRecord, error) {
	if !schema.Geo {
		return nil, fmt.Errorf("%s has no coordinate projections", schema.Name)
	}

	query := fmt.Sprintf(`
		SELECT id, organization_id, payload, updated_at, latitude, longitude
		FROM %s
		WHERE organization_id = ? AND latitude IS NOT NULL AND longitude IS NOT NULL`,
		schema.CacheTable())

	rows, err := s.db.Query(query, orgID)
	if err != nil {
		return nil, fmt.Errorf("query geotagged %s: %w", schema.CacheTable(), err)
	}
	defer rows.Close()

	var records []GeoRecord
	for rows.Next() {
		var rec GeoRecord
		var payload []byte
		var updatedMs int64
		if err := rows.Scan(&rec.ID, &rec.OrganizationID, &payload, &updatedMs, &rec.Latitude, &rec.Longitude); err != nil {
			return nil, fmt.Errorf("scan geotagged row: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		rec.UpdatedAt = time.UnixMilli(updatedMs)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}

// LastSyncedAt returns when the entity type was last refreshed from the
// remote backend, or zero time if never.
func (s *Store) LastSyncedAt(schema *Schema) (time.Time, error) {
	var ms int64
	err := s.db.QueryRow(
		`SELECT last_synced_at FROM cache_metadata WHERE entity_type = ?`, schema.Name).Scan(&ms)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read cache metadata: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// Count returns how many rows are cached for the schema and organization.
func (s *Store) Count(schema *Schema, orgID string) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE organization_id = ?", schema.CacheTable())
	if err := s.db.QueryRow(query, orgID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", schema.CacheTable(), err)
	}
	return n, nil
}

// Clear deletes all cached rows and metadata for one organization.
func (s *Store) Clear(orgID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	for _, schema := range Schemas() {
		query := fmt.Sprintf("DELETE FROM %s WHERE organization_id = ?", schema.CacheTable())
		if _, err := tx.Exec(query, orgID); err != nil {
			return fmt.Errorf("clear %s: %w", schema.CacheTable(), err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM cache_metadata WHERE organization_id = ?`, orgID); err != nil {
		return fmt.Errorf("clear cache metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	s.notify()
	return nil
}

// ClearAll deletes every cached row and all metadata. Used on sign-out.
func (s *Store) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	for _, schema := range Schemas() {
		if _, err := tx.Exec("DELETE FROM " + schema.CacheTable()); err != nil {
			return fmt.Errorf("clear %s: %w", schema.CacheTable(), err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM cache_metadata`); err != nil {
		return fmt.Errorf("clear cache metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	s.notify()
	return nil
}

// scanRecord reads one cache row from a result set.
func scanRecord(rows *sql.Rows) (models.CachedRecord, error) {
	var rec models.CachedRecord
	var payload []byte
	var updatedMs int64
	if err := rows.Scan(&rec.ID, &rec.OrganizationID, &payload, &updatedMs); err != nil {
		return rec, fmt.Errorf("scan cache row: %w", err)
	}
	rec.Payload = json.RawMessage(payload)
	rec.UpdatedAt = time.UnixMilli(updatedMs)
	return rec, nil
}

// parseTimeMillis parses an RFC3339 timestamp to unix milliseconds.
func parseTimeMillis(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
