// Package outbox is the durable queue of writes that have not yet been
// confirmed by the remote backend. Entries are replayed strictly in enqueue
// order; the queue never coalesces, deduplicates, or silently drops entries.
package outbox

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation is the write kind an entry replays against the remote backend.
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Status is the lifecycle state of an entry. Completed entries are removed;
// failed entries stay queued and retry on the next drain, without bound.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSyncing   Status = "syncing"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
)

// Entry is one pending, in-flight, or failed write.
type Entry struct {
	Seq            int64           `json:"seq"`
	ID             string          `json:"id"`
	Operation      Operation       `json:"operation"`
	TableName      string          `json:"table_name"`
	RecordID       string          `json:"record_id"`
	OrganizationID string          `json:"organization_id"`
	Data           json.RawMessage `json:"data,omitempty"`
	Status         Status          `json:"status"`
	RetryCount     int             `json:"retry_count"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Outbox provides queue access over the shared local database.
type Outbox struct {
	db *sql.DB

	mu      sync.Mutex
	subs    map[int]func()
	nextSub int
}

// New creates an Outbox over an open local database connection.
func New(db *sql.DB) *Outbox {
	return &Outbox{db: db, subs: make(map[int]func())}
}

// InitSchema creates the queue table if it doesn't exist. The seq column is
// the FIFO replay order; id is stable across retries.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sync_queue (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			id              TEXT NOT NULL UNIQUE,
			operation       TEXT NOT NULL,
			table_name      TEXT NOT NULL,
			record_id       TEXT NOT NULL,
			organization_id TEXT NOT NULL,
			data            JSON,
			status          TEXT NOT NULL DEFAULT 'pending',
			retry_count     INTEGER NOT NULL DEFAULT 0,
			error_message   TEXT,
			created_at      INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status);
	`)
	if err != nil {
		return fmt.Errorf("create sync queue: %w", err)
	}
	return nil
}

// Subscribe registers fn to run after any queue mutation. Returns a cancel
// func.
func (o *Outbox) Subscribe(fn func()) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

func (o *Outbox) notify() {
	o.mu.Lock()
	fns := make([]func(), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Enqueue appends a pending entry and returns its id. Multiple mutations
// against the same record queue as separate ordered entries.
func (o *Outbox) Enqueue(op Operation, tableName, recordID, orgID string, data json.RawMessage) (string, error) {
	id := uuid.NewString()
	_, err := o.db.Exec(`
		INSERT INTO sync_queue (id, operation, table_name, record_id, organization_id, data, status, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', 0, ?)
	`, id, string(op), tableName, recordID, orgID, []byte(data), time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("enqueue %s %s/%s: %w", op, tableName, recordID, err)
	}
	o.notify()
	return id, nil
}

// ListPending returns entries eligible for replay (pending or failed), in
// FIFO order.
func (o *Outbox) ListPending() ([]Entry, error) {
	return o.list(`WHERE status IN ('pending', 'failed')`)
}

// List returns every entry in FIFO order, for queue inspection.
func (o *Outbox) List() ([]Entry, error) {
	return o.list("")
}

func (o *Outbox) list(where string) ([]Entry, error) {
	rows, err := o.db.Query(fmt.Sprintf(`
		SELECT seq, id, operation, table_name, record_id, organization_id, data, status, retry_count, COALESCE(error_message, ''), created_at
		FROM sync_queue %s ORDER BY seq ASC`, where))
	if err != nil {
		return nil, fmt.Errorf("query sync queue: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var data []byte
		var createdMs int64
		if err := rows.Scan(&e.Seq, &e.ID, &e.Operation, &e.TableName, &e.RecordID,
			&e.OrganizationID, &data, &e.Status, &e.RetryCount, &e.ErrorMessage, &createdMs); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		e.Data = json.RawMessage(data)
		e.Timestamp = time.UnixMilli(createdMs)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entries, nil
}

// UpdateStatus transitions an entry. Transitioning to failed records the
// error and increments retry_count; transitioning to completed removes the
// entry (completed entries are never mutated again).
func (o *Outbox) UpdateStatus(id string, status Status, errMsg string) error {
	var res sql.Result
	var err error

	switch status {
	case StatusCompleted:
		res, err = o.db.Exec(`DELETE FROM sync_queue WHERE id = ?`, id)
	case StatusFailed:
		res, err = o.db.Exec(`
			UPDATE sync_queue SET status = 'failed', retry_count = retry_count + 1, error_message = ?
			WHERE id = ?`, errMsg, id)
	default:
		res, err = o.db.Exec(`
			UPDATE sync_queue SET status = ?, error_message = NULL WHERE id = ?`, string(status), id)
	}
	if err != nil {
		return fmt.Errorf("update queue entry %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("queue entry not found: %s", id)
	}
	o.notify()
	return nil
}

// RequeueStale resets entries stuck in syncing back to pending. A drain
// that died mid-flight (process kill, crash) leaves its current entry in
// syncing; the next drain calls this first so nothing is stranded.
func (o *Outbox) RequeueStale() (int, error) {
	res, err := o.db.Exec(`UPDATE sync_queue SET status = 'pending' WHERE status = 'syncing'`)
	if err != nil {
		return 0, fmt.Errorf("requeue stale entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		o.notify()
	}
	return int(n), nil
}

// Count returns the number of unresolved entries (pending, syncing or
// failed). Used for UI badges.
func (o *Outbox) Count() (int, error) {
	var n int
	err := o.db.QueryRow(`
		SELECT COUNT(*) FROM sync_queue WHERE status IN ('pending', 'syncing', 'failed')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sync queue: %w", err)
	}
	return n, nil
}

// Clear drops every entry. Used on sign-out or explicit queue reset.
func (o *Outbox) Clear() error {
	if _, err := o.db.Exec(`DELETE FROM sync_queue`); err != nil {
		return fmt.Errorf("clear sync queue: %w", err)
	}
	o.notify()
	return nil
}
