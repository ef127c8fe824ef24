// Package facade is the surface application code talks to. Reads try the
// remote backend when online and fall back to the cache; writes try the
// remote backend and fall back to the outbox. Callers always learn whether
// data came from cache and whether a write was applied or merely queued.
package facade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/erebuskaimoros/Landlord-sub000/internal/models"
	"github.com/erebuskaimoros/Landlord-sub000/internal/netmon"
	"github.com/erebuskaimoros/Landlord-sub000/internal/outbox"
	"github.com/erebuskaimoros/Landlord-sub000/internal/remote"
	"github.com/erebuskaimoros/Landlord-sub000/internal/store"
)

// Facade routes reads and writes between the remote backend and the local
// engine, scoped to one organization.
type Facade struct {
	store   *store.Store
	box     *outbox.Outbox
	backend remote.Backend
	mon     *netmon.Monitor
	orgID   string
}

// New creates a Facade.
func New(st *store.Store, box *outbox.Outbox, backend remote.Backend, mon *netmon.Monitor, orgID string) *Facade {
	return &Facade{store: st, box: box, backend: backend, mon: mon, orgID: orgID}
}

// ReadResult carries records plus their provenance, so the UI can mark
// cached data as possibly stale.
type ReadResult struct {
	Records   []models.CachedRecord
	FromCache bool
}

// List returns all records of an entity type. Online it fetches from the
// remote backend, refreshing the cache as a side effect; on any fetch
// failure, or offline, it serves the cache. Filters apply in both paths.
func (f *Facade) List(ctx context.Context, schema *store.Schema, filter store.Filter) (*ReadResult, error) {
	if f.mon.IsOnline() {
		records, err := f.backend.Select(ctx, schema.Name, remoteFilter(filter))
		if err == nil {
			cached := make([]models.CachedRecord, 0, len(records))
			for _, r := range records {
				cached = append(cached, models.CachedRecord{
					ID:             r.ID,
					OrganizationID: f.orgID,
					Payload:        r.Payload,
					UpdatedAt:      r.UpdatedAt,
				})
			}
			if err := f.store.UpsertBatch(schema, f.orgID, cached); err != nil {
				// The remote answer is still good; a failed cache refresh
				// only costs offline freshness.
				slog.Warn("cache refresh after read", "table", schema.Name, "err", err)
			}
			filtered, err := filterLocal(schema, filter, cached)
			if err != nil {
				return nil, err
			}
			return &ReadResult{Records: filtered}, nil
		}
		slog.Debug("remote read failed, serving cache", "table", schema.Name, "err", err)
	}

	records, err := f.store.GetAll(schema, f.orgID, filter)
	if err != nil {
		// Store-unavailable is fatal, not an empty result
		return nil, fmt.Errorf("cache fallback: %w", err)
	}
	return &ReadResult{Records: records, FromCache: true}, nil
}

// Get returns one record plus whether the answer came from the cache.
// A record that exists nowhere comes back as (nil, _, nil): "not found"
// is a value, only a broken store is an error.
func (f *Facade) Get(ctx context.Context, schema *store.Schema, id string) (*models.CachedRecord, bool, error) {
	if f.mon.IsOnline() {
		records, err := f.backend.Select(ctx, schema.Name, map[string]string{"id": id})
		if err == nil {
			if len(records) == 0 {
				return nil, false, nil
			}
			r := records[0]
			rec := models.CachedRecord{
				ID:             r.ID,
				OrganizationID: f.orgID,
				Payload:        r.Payload,
				UpdatedAt:      r.UpdatedAt,
			}
			if err := f.store.UpsertBatch(schema, f.orgID, []models.CachedRecord{rec}); err != nil {
				slog.Warn("cache refresh after read", "table", schema.Name, "err", err)
			}
			return &rec, false, nil
		}
		slog.Debug("remote read failed, serving cache", "table", schema.Name, "id", id, "err", err)
	}

	rec, err := f.store.GetByID(schema, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, true, nil
	}
	if err != nil {
		return nil, true, fmt.Errorf("cache fallback: %w", err)
	}
	return rec, true, nil
}

// MutationResult reports how a write landed. Queued writes are not yet
// confirmed by the remote backend and must be surfaced as such.
type MutationResult struct {
	ID     string
	Queued bool
}

// Mutate applies a write. Online it goes straight to the remote backend; a
// confirmed insert or update also refreshes the cache row. A transport
// failure, or being offline, enqueues the write for later replay. A remote
// rejection is returned as an error and is never enqueued: retrying it
// would repeat the same rejection, the caller has to correct the data.
func (f *Facade) Mutate(ctx context.Context, schema *store.Schema, op outbox.Operation, recordID string, data json.RawMessage) (*MutationResult, error) {
	if op == outbox.OpInsert && recordID == "" {
		// Client-generated id, stable across queueing and retries
		recordID = uuid.NewString()
	}
	if op != outbox.OpDelete {
		var err error
		data, err = withID(data, recordID, f.orgID)
		if err != nil {
			return nil, err
		}
	}

	if f.mon.IsOnline() {
		err := f.applyRemote(ctx, schema, op, recordID, data)
		if err == nil {
			if op != outbox.OpDelete {
				rec := models.CachedRecord{
					ID:             recordID,
					OrganizationID: f.orgID,
					Payload:        data,
					UpdatedAt:      time.Now(),
				}
				if err := f.store.UpsertBatch(schema, f.orgID, []models.CachedRecord{rec}); err != nil {
					slog.Warn("cache confirmed write", "table", schema.Name, "err", err)
				}
			}
			return &MutationResult{ID: recordID}, nil
		}
		if remote.IsRejection(err) {
			return nil, fmt.Errorf("%s %s rejected: %w", op, schema.Name, err)
		}
		slog.Debug("remote write failed, queueing", "op", op, "table", schema.Name, "err", err)
	}

	if _, err := f.box.Enqueue(op, schema.Name, recordID, f.orgID, data); err != nil {
		return nil, fmt.Errorf("enqueue write: %w", err)
	}
	return &MutationResult{ID: recordID, Queued: true}, nil
}

func (f *Facade) applyRemote(ctx context.Context, schema *store.Schema, op outbox.Operation, recordID string, data json.RawMessage) error {
	switch op {
	case outbox.OpInsert:
		_, err := f.backend.Insert(ctx, schema.Name, data)
		return err
	case outbox.OpUpdate:
		return f.backend.Update(ctx, schema.Name, recordID, data)
	case outbox.OpDelete:
		return f.backend.Delete(ctx, schema.Name, recordID)
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}

// withID stamps the record id and organization scope into the payload so
// the queued form is self-contained.
func withID(data json.RawMessage, id, orgID string) (json.RawMessage, error) {
	var m map[string]any
	if len(data) == 0 {
		m = make(map[string]any)
	} else if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode mutation payload: %w", err)
	}
	m["id"] = id
	m["organization_id"] = orgID
	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode mutation payload: %w", err)
	}
	return out, nil
}

// filterLocal applies the predicates the remote select could not express:
// equality conds travel as select parameters, everything else narrows the
// response here so online and offline reads agree.
func filterLocal(schema *store.Schema, f store.Filter, records []models.CachedRecord) ([]models.CachedRecord, error) {
	var residual []store.Cond
	for _, c := range f.Where {
		if c.Op != store.OpEq {
			residual = append(residual, c)
		}
	}
	if len(residual) == 0 {
		return records, nil
	}

	kept := make([]models.CachedRecord, 0, len(records))
	for _, rec := range records {
		ok, err := store.Matches(schema, residual, rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("filter remote response: %w", err)
		}
		if ok {
			kept = append(kept, rec)
		}
	}
	return kept, nil
}

// remoteFilter translates the equality predicates of a local filter into
// remote select parameters. Range and membership predicates stay local.
func remoteFilter(f store.Filter) map[string]string {
	var params map[string]string
	for _, c := range f.Where {
		if c.Op != store.OpEq {
			continue
		}
		if params == nil {
			params = make(map[string]string)
		}
		params[c.Column] = fmt.Sprintf("%v", c.Value)
	}
	return params
}
