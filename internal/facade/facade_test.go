package facade

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/erebuskaimoros/Landlord-sub000/internal/models"
	"github.com/erebuskaimoros/Landlord-sub000/internal/netmon"
	"github.com/erebuskaimoros/Landlord-sub000/internal/outbox"
	"github.com/erebuskaimoros/Landlord-sub000/internal/remote"
	"github.com/erebuskaimoros/Landlord-sub000/internal/store"
)

type fakeBackend struct {
	records   map[string][]remote.Record
	err       error
	inserted  int
	updated   int
	deleted   int
	gotFilter map[string]string
}

func (f *fakeBackend) Select(ctx context.Context, table string, filter map[string]string) ([]remote.Record, error) {
	f.gotFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.records[table], nil
}

func (f *fakeBackend) Insert(ctx context.Context, table string, payload json.RawMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.inserted++
	var p struct {
		ID string `json:"id"`
	}
	json.Unmarshal(payload, &p)
	return p.ID, nil
}

func (f *fakeBackend) Update(ctx context.Context, table, id string, payload json.RawMessage) error {
	if f.err != nil {
		return f.err
	}
	f.updated++
	return nil
}

func (f *fakeBackend) Delete(ctx context.Context, table, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted++
	return nil
}

type fixture struct {
	facade  *Facade
	store   *store.Store
	box     *outbox.Outbox
	backend *fakeBackend
	mon     *netmon.Monitor
}

func setup(t *testing.T, online bool) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := store.InitSchema(db); err != nil {
		t.Fatalf("init store schema: %v", err)
	}
	if err := outbox.InitSchema(db); err != nil {
		t.Fatalf("init outbox schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	backend := &fakeBackend{records: make(map[string][]remote.Record)}
	mon := netmon.New(netmon.WithSettleDelay(time.Millisecond))
	mon.SetState(netmon.State{Connected: online})
	st := store.New(db)
	box := outbox.New(db)
	return &fixture{
		facade:  New(st, box, backend, mon, "org-1"),
		store:   st,
		box:     box,
		backend: backend,
		mon:     mon,
	}
}

func cacheWorkOrder(t *testing.T, fx *fixture, id, status string) {
	t.Helper()
	payload := json.RawMessage(`{"id":"` + id + `","title":"Task","status":"` + status + `","priority":"low"}`)
	err := fx.store.UpsertBatch(store.WorkOrders, "org-1", []models.CachedRecord{
		{ID: id, OrganizationID: "org-1", Payload: payload, UpdatedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}
}

func TestListOnlineRefreshesCache(t *testing.T) {
	fx := setup(t, true)
	fx.backend.records["work_orders"] = []remote.Record{
		{ID: "wo-1", UpdatedAt: time.Now(), Payload: json.RawMessage(`{"id":"wo-1","status":"open","priority":"high"}`)},
	}

	res, err := fx.facade.List(context.Background(), store.WorkOrders, store.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.FromCache {
		t.Error("online read marked as cached")
	}
	if len(res.Records) != 1 {
		t.Fatalf("records: got %d, want 1", len(res.Records))
	}

	// The read refreshed the cache for later offline use
	n, err := fx.store.Count(store.WorkOrders, "org-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("cached rows after online read: got %d, want 1", n)
	}
}

func TestListPushesEqualityFiltersRemote(t *testing.T) {
	fx := setup(t, true)

	filter := store.Filter{Where: []store.Cond{
		store.Eq("status", "open"),
		store.Before("due_date", int64(123)),
	}}
	if _, err := fx.facade.List(context.Background(), store.WorkOrders, filter); err != nil {
		t.Fatalf("list: %v", err)
	}
	if fx.backend.gotFilter["status"] != "open" {
		t.Errorf("remote filter: got %v", fx.backend.gotFilter)
	}
	if _, ok := fx.backend.gotFilter["due_date"]; ok {
		t.Error("range predicate leaked into remote filter")
	}
}

func TestListOnlineAppliesRangePredicate(t *testing.T) {
	fx := setup(t, true)
	fx.backend.records["work_orders"] = []remote.Record{
		{ID: "wo-due", UpdatedAt: time.Now(), Payload: json.RawMessage(
			`{"id":"wo-due","status":"open","priority":"high","due_date":"2020-06-01T00:00:00Z"}`)},
		{ID: "wo-later", UpdatedAt: time.Now(), Payload: json.RawMessage(
			`{"id":"wo-later","status":"open","priority":"low","due_date":"2099-01-01T00:00:00Z"}`)},
	}

	cutoff := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	filter := store.Filter{Where: []store.Cond{store.Before("due_date", cutoff)}}

	res, err := fx.facade.List(context.Background(), store.WorkOrders, filter)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].ID != "wo-due" {
		ids := make([]string, 0, len(res.Records))
		for _, r := range res.Records {
			ids = append(ids, r.ID)
		}
		t.Fatalf("online range filter: got %v, want [wo-due]", ids)
	}

	// The full remote response is still cached, only the view is narrowed
	n, err := fx.store.Count(store.WorkOrders, "org-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("cached rows: got %d, want 2", n)
	}

	// The same filter offline now agrees with the online answer
	fx.mon.SetState(netmon.State{Connected: false})
	res, err = fx.facade.List(context.Background(), store.WorkOrders, filter)
	if err != nil {
		t.Fatalf("offline list: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].ID != "wo-due" {
		t.Fatalf("offline range filter: got %d records", len(res.Records))
	}
}

func TestListOnlineAppliesMembershipPredicate(t *testing.T) {
	fx := setup(t, true)
	fx.backend.records["work_orders"] = []remote.Record{
		{ID: "wo-open", UpdatedAt: time.Now(), Payload: json.RawMessage(`{"id":"wo-open","status":"open","priority":"low"}`)},
		{ID: "wo-done", UpdatedAt: time.Now(), Payload: json.RawMessage(`{"id":"wo-done","status":"completed","priority":"low"}`)},
	}

	filter := store.Filter{Where: []store.Cond{store.In("status", "open", "in_progress")}}
	res, err := fx.facade.List(context.Background(), store.WorkOrders, filter)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].ID != "wo-open" {
		t.Fatalf("online membership filter: got %d records", len(res.Records))
	}
}

func TestListOfflineServesCache(t *testing.T) {
	fx := setup(t, false)
	cacheWorkOrder(t, fx, "wo-1", "open")

	res, err := fx.facade.List(context.Background(), store.WorkOrders, store.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !res.FromCache {
		t.Error("offline read not marked as cached")
	}
	if len(res.Records) != 1 {
		t.Fatalf("records: got %d, want 1", len(res.Records))
	}
}

func TestListFallsBackOnRemoteFailure(t *testing.T) {
	fx := setup(t, true)
	fx.backend.err = errors.New("connection reset")
	cacheWorkOrder(t, fx, "wo-1", "open")

	res, err := fx.facade.List(context.Background(), store.WorkOrders, store.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !res.FromCache {
		t.Error("fallback read not marked as cached")
	}
	if len(res.Records) != 1 {
		t.Fatalf("records: got %d, want 1", len(res.Records))
	}
}

func TestGetNotFoundIsNotAnError(t *testing.T) {
	fx := setup(t, false)

	rec, fromCache, err := fx.facade.Get(context.Background(), store.WorkOrders, "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec != nil {
		t.Fatalf("record: got %+v, want nil", rec)
	}
	if !fromCache {
		t.Error("offline lookup not marked as cached")
	}
}

func TestGetOfflineServesCache(t *testing.T) {
	fx := setup(t, false)
	cacheWorkOrder(t, fx, "wo-1", "open")

	rec, fromCache, err := fx.facade.Get(context.Background(), store.WorkOrders, "wo-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil || rec.ID != "wo-1" {
		t.Fatalf("record: got %+v", rec)
	}
	if !fromCache {
		t.Error("offline read not marked as cached")
	}
}

func TestMutateOnlineAppliesAndCaches(t *testing.T) {
	fx := setup(t, true)

	res, err := fx.facade.Mutate(context.Background(), store.WorkOrders, outbox.OpInsert, "",
		json.RawMessage(`{"title":"Fix sink","status":"open","priority":"high"}`))
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if res.Queued {
		t.Error("online write reported as queued")
	}
	if res.ID == "" {
		t.Error("no id assigned to insert")
	}
	if fx.backend.inserted != 1 {
		t.Errorf("backend inserts: got %d, want 1", fx.backend.inserted)
	}

	rec, err := fx.store.GetByID(store.WorkOrders, res.ID)
	if err != nil {
		t.Fatalf("confirmed write not cached: %v", err)
	}
	var payload struct {
		OrganizationID string `json:"organization_id"`
	}
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		t.Fatalf("unmarshal cached payload: %v", err)
	}
	if payload.OrganizationID != "org-1" {
		t.Errorf("organization not stamped into payload: %q", payload.OrganizationID)
	}

	n, err := fx.box.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("online write left %d queue entries", n)
	}
}

func TestMutateOfflineQueues(t *testing.T) {
	fx := setup(t, false)

	res, err := fx.facade.Mutate(context.Background(), store.WorkOrders, outbox.OpInsert, "",
		json.RawMessage(`{"title":"Fix sink","status":"open","priority":"high"}`))
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if !res.Queued {
		t.Error("offline write not reported as queued")
	}

	entries, err := fx.box.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("queue entries: got %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Operation != outbox.OpInsert || e.TableName != "work_orders" || e.RecordID != res.ID {
		t.Errorf("queued entry: %+v", e)
	}
	// Queued payload is self-contained
	var payload struct {
		ID             string `json:"id"`
		OrganizationID string `json:"organization_id"`
	}
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		t.Fatalf("unmarshal queued payload: %v", err)
	}
	if payload.ID != res.ID || payload.OrganizationID != "org-1" {
		t.Errorf("queued payload: %+v", payload)
	}
}

func TestMutateTransportFailureQueues(t *testing.T) {
	fx := setup(t, true)
	fx.backend.err = errors.New("dial tcp: connection refused")

	res, err := fx.facade.Mutate(context.Background(), store.WorkOrders, outbox.OpUpdate, "wo-1",
		json.RawMessage(`{"title":"Task","status":"completed","priority":"low"}`))
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if !res.Queued {
		t.Error("transport failure did not queue the write")
	}
	if res.ID != "wo-1" {
		t.Errorf("id: got %q, want wo-1", res.ID)
	}
}

func TestMutateRejectionIsNotQueued(t *testing.T) {
	fx := setup(t, true)
	fx.backend.err = &remote.RejectionError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "validation_failed",
		Message:    "title is required",
	}

	_, err := fx.facade.Mutate(context.Background(), store.WorkOrders, outbox.OpInsert, "",
		json.RawMessage(`{"status":"open"}`))
	if err == nil {
		t.Fatal("rejection not surfaced")
	}
	if !remote.IsRejection(err) {
		t.Fatalf("error lost its rejection class: %v", err)
	}

	n, cerr := fx.box.Count()
	if cerr != nil {
		t.Fatalf("count: %v", cerr)
	}
	if n != 0 {
		t.Fatalf("rejection was queued: %d entries", n)
	}
}

func TestMutateDeleteKeepsPayloadEmpty(t *testing.T) {
	fx := setup(t, false)

	res, err := fx.facade.Mutate(context.Background(), store.WorkOrders, outbox.OpDelete, "wo-1", nil)
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if !res.Queued {
		t.Error("offline delete not queued")
	}

	entries, err := fx.box.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(entries[0].Data) != 0 {
		t.Errorf("delete payload: got %s", entries[0].Data)
	}
}
