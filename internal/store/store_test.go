package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/erebuskaimoros/Landlord-sub000/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func workOrderRecord(t *testing.T, id, org, title, status, priority string, updatedAt time.Time) models.CachedRecord {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":              id,
		"organization_id": org,
		"title":           title,
		"status":          status,
		"priority":        priority,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return models.CachedRecord{ID: id, OrganizationID: org, Payload: payload, UpdatedAt: updatedAt}
}

func TestUpsertBatchAndGetAll(t *testing.T) {
	st := setupStore(t)
	now := time.Now()

	records := []models.CachedRecord{
		workOrderRecord(t, "wo-1", "org-1", "Fix sink", "open", "high", now),
		workOrderRecord(t, "wo-2", "org-1", "Paint wall", "completed", "low", now.Add(time.Minute)),
	}
	if err := st.UpsertBatch(WorkOrders, "org-1", records); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := st.GetAll(WorkOrders, "org-1", Filter{})
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records: got %d, want 2", len(got))
	}
	// Default ordering is updated_at descending
	if got[0].ID != "wo-2" {
		t.Errorf("first record: got %s, want wo-2", got[0].ID)
	}
}

func TestGetAllFiltersOnProjections(t *testing.T) {
	st := setupStore(t)
	now := time.Now()

	records := []models.CachedRecord{
		workOrderRecord(t, "wo-1", "org-1", "Fix sink", "open", "high", now),
		workOrderRecord(t, "wo-2", "org-1", "Paint wall", "completed", "low", now),
		workOrderRecord(t, "wo-3", "org-1", "Replace lock", "open", "low", now),
	}
	if err := st.UpsertBatch(WorkOrders, "org-1", records); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	open, err := st.GetAll(WorkOrders, "org-1", Filter{Where: []Cond{Eq("status", "open")}})
	if err != nil {
		t.Fatalf("filter status: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("open records: got %d, want 2", len(open))
	}

	openHigh, err := st.GetAll(WorkOrders, "org-1", Filter{
		Where: []Cond{Eq("status", "open"), Eq("priority", "high")},
	})
	if err != nil {
		t.Fatalf("filter status+priority: %v", err)
	}
	if len(openHigh) != 1 || openHigh[0].ID != "wo-1" {
		t.Fatalf("open high records: got %v", openHigh)
	}
}

func TestGetAllRejectsUnknownColumn(t *testing.T) {
	st := setupStore(t)
	_, err := st.GetAll(WorkOrders, "org-1", Filter{Where: []Cond{Eq("specialty", "plumbing")}})
	if err == nil {
		t.Fatal("expected error for column not in schema")
	}
}

func TestGetAllEmptyInMatchesNothing(t *testing.T) {
	st := setupStore(t)
	now := time.Now()
	if err := st.UpsertBatch(WorkOrders, "org-1", []models.CachedRecord{
		workOrderRecord(t, "wo-1", "org-1", "Fix sink", "open", "high", now),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := st.GetAll(WorkOrders, "org-1", Filter{Where: []Cond{In("status")}})
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("records: got %d, want 0", len(got))
	}
}

func TestUpsertIsFullReplace(t *testing.T) {
	st := setupStore(t)
	now := time.Now()

	if err := st.UpsertBatch(WorkOrders, "org-1", []models.CachedRecord{
		workOrderRecord(t, "wo-1", "org-1", "Fix sink", "open", "high", now),
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Same record again with changed projection fields
	if err := st.UpsertBatch(WorkOrders, "org-1", []models.CachedRecord{
		workOrderRecord(t, "wo-1", "org-1", "Fix sink", "completed", "high", now.Add(time.Hour)),
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	n, err := st.Count(WorkOrders, "org-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count after re-upsert: got %d, want 1", n)
	}

	completed, err := st.GetAll(WorkOrders, "org-1", Filter{Where: []Cond{Eq("status", "completed")}})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("projection not recomputed: got %d completed, want 1", len(completed))
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	st := setupStore(t)
	now := time.Now()

	records := []models.CachedRecord{
		workOrderRecord(t, "wo-1", "org-1", "Fix sink", "open", "high", now),
		workOrderRecord(t, "wo-2", "org-1", "Paint wall", "completed", "low", now),
	}
	for i := 0; i < 3; i++ {
		if err := st.UpsertBatch(WorkOrders, "org-1", records); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	n, err := st.Count(WorkOrders, "org-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("count after repeated refresh: got %d, want 2", n)
	}
}

func TestGetByID(t *testing.T) {
	st := setupStore(t)
	now := time.Now()

	if err := st.UpsertBatch(WorkOrders, "org-1", []models.CachedRecord{
		workOrderRecord(t, "wo-1", "org-1", "Fix sink", "open", "high", now),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rec, err := st.GetByID(WorkOrders, "wo-1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if rec.ID != "wo-1" || rec.OrganizationID != "org-1" {
		t.Fatalf("record: got %+v", rec)
	}

	_, err = st.GetByID(WorkOrders, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing record: got %v, want ErrNotFound", err)
	}
}

func TestOrganizationScoping(t *testing.T) {
	st := setupStore(t)
	now := time.Now()

	if err := st.UpsertBatch(WorkOrders, "org-1", []models.CachedRecord{
		workOrderRecord(t, "wo-1", "org-1", "Fix sink", "open", "high", now),
	}); err != nil {
		t.Fatalf("upsert org-1: %v", err)
	}
	if err := st.UpsertBatch(WorkOrders, "org-2", []models.CachedRecord{
		workOrderRecord(t, "wo-2", "org-2", "Paint wall", "open", "low", now),
	}); err != nil {
		t.Fatalf("upsert org-2: %v", err)
	}

	got, err := st.GetAll(WorkOrders, "org-1", Filter{})
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(got) != 1 || got[0].ID != "wo-1" {
		t.Fatalf("org-1 records: got %v", got)
	}
}

func TestGeoRecords(t *testing.T) {
	st := setupStore(t)
	now := time.Now()

	tagged, err := json.Marshal(map[string]any{
		"id": "wo-1", "title": "Fix sink", "status": "open", "priority": "high",
		"latitude": 40.0, "longitude": -74.0,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	records := []models.CachedRecord{
		{ID: "wo-1", OrganizationID: "org-1", Payload: tagged, UpdatedAt: now},
		workOrderRecord(t, "wo-2", "org-1", "Paint wall", "open", "low", now),
	}
	if err := st.UpsertBatch(WorkOrders, "org-1", records); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	geo, err := st.GeoRecords(WorkOrders, "org-1")
	if err != nil {
		t.Fatalf("geo records: %v", err)
	}
	if len(geo) != 1 {
		t.Fatalf("geo records: got %d, want 1", len(geo))
	}
	if geo[0].ID != "wo-1" || geo[0].Latitude != 40.0 || geo[0].Longitude != -74.0 {
		t.Fatalf("geo record: got %+v", geo[0])
	}
}

func TestLastSyncedAt(t *testing.T) {
	st := setupStore(t)

	zero, err := st.LastSyncedAt(WorkOrders)
	if err != nil {
		t.Fatalf("last synced before refresh: %v", err)
	}
	if !zero.IsZero() {
		t.Fatalf("expected zero time before first refresh, got %v", zero)
	}

	before := time.Now().Add(-time.Second)
	if err := st.UpsertBatch(WorkOrders, "org-1", []models.CachedRecord{
		workOrderRecord(t, "wo-1", "org-1", "Fix sink", "open", "high", time.Now()),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := st.LastSyncedAt(WorkOrders)
	if err != nil {
		t.Fatalf("last synced: %v", err)
	}
	if got.Before(before) {
		t.Fatalf("last synced not updated: %v", got)
	}
}

func TestClear(t *testing.T) {
	st := setupStore(t)
	now := time.Now()

	if err := st.UpsertBatch(WorkOrders, "org-1", []models.CachedRecord{
		workOrderRecord(t, "wo-1", "org-1", "Fix sink", "open", "high", now),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := st.UpsertBatch(Units, "org-1", []models.CachedRecord{
		{ID: "u-1", OrganizationID: "org-1", Payload: json.RawMessage(`{"name":"4B","status":"vacant"}`), UpdatedAt: now},
	}); err != nil {
		t.Fatalf("upsert unit: %v", err)
	}

	if err := st.Clear("org-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	for _, schema := range Schemas() {
		n, err := st.Count(schema, "org-1")
		if err != nil {
			t.Fatalf("count %s: %v", schema.Name, err)
		}
		if n != 0 {
			t.Fatalf("%s not cleared: %d rows remain", schema.Name, n)
		}
	}
}

func TestSubscribeFiresOnUpsert(t *testing.T) {
	st := setupStore(t)

	fired := 0
	cancel := st.Subscribe(func() { fired++ })
	defer cancel()

	if err := st.UpsertBatch(WorkOrders, "org-1", []models.CachedRecord{
		workOrderRecord(t, "wo-1", "org-1", "Fix sink", "open", "high", time.Now()),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if fired != 1 {
		t.Fatalf("notifications: got %d, want 1", fired)
	}

	cancel()
	if err := st.UpsertBatch(WorkOrders, "org-1", []models.CachedRecord{
		workOrderRecord(t, "wo-2", "org-1", "Paint wall", "open", "low", time.Now()),
	}); err != nil {
		t.Fatalf("upsert after cancel: %v", err)
	}
	if fired != 1 {
		t.Fatalf("notifications after cancel: got %d, want 1", fired)
	}
}

func TestOrderAndLimit(t *testing.T) {
	st := setupStore(t)
	now := time.Now()

	var records []models.CachedRecord
	for i := 0; i < 5; i++ {
		records = append(records, workOrderRecord(t,
			fmt.Sprintf("wo-%d", i), "org-1", "Task", "open", "low", now.Add(time.Duration(i)*time.Minute)))
	}
	if err := st.UpsertBatch(WorkOrders, "org-1", records); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := st.GetAll(WorkOrders, "org-1", Filter{Limit: 2})
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("limited records: got %d, want 2", len(got))
	}
	if got[0].ID != "wo-4" || got[1].ID != "wo-3" {
		t.Fatalf("order: got %s, %s", got[0].ID, got[1].ID)
	}

	asc, err := st.GetAll(WorkOrders, "org-1", Filter{Asc: true, Limit: 1})
	if err != nil {
		t.Fatalf("get all asc: %v", err)
	}
	if len(asc) != 1 || asc[0].ID != "wo-0" {
		t.Fatalf("ascending order: got %v", asc)
	}
}
