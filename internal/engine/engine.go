// Package engine orchestrates synchronization between the local replica and
// the remote backend: bulk cache refresh, outbox drain, and the automatic
// triggers that decide when each runs.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/erebuskaimoros/Landlord-sub000/internal/models"
	"github.com/erebuskaimoros/Landlord-sub000/internal/netmon"
	"github.com/erebuskaimoros/Landlord-sub000/internal/outbox"
	"github.com/erebuskaimoros/Landlord-sub000/internal/remote"
	"github.com/erebuskaimoros/Landlord-sub000/internal/store"
)

// Engine composes the cache store, the outbox, the backend client, and the
// network monitor.
type Engine struct {
	store   *store.Store
	box     *outbox.Outbox
	backend remote.Backend
	mon     *netmon.Monitor

	// Re-entrancy guards. Each operation runs singly; a refresh and a
	// drain may overlap since they touch disjoint state and the last
	// writer of any cache row wins.
	refreshing atomic.Bool
	draining   atomic.Bool

	lastSync  atomic.Int64 // unix millis of last completed SyncData
	lastDrain atomic.Int64
}

// New creates an Engine.
func New(st *store.Store, box *outbox.Outbox, backend remote.Backend, mon *netmon.Monitor) *Engine {
	return &Engine{store: st, box: box, backend: backend, mon: mon}
}

// Store returns the cache store the engine writes to.
func (e *Engine) Store() *store.Store { return e.store }

// Outbox returns the mutation queue the engine drains.
func (e *Engine) Outbox() *outbox.Outbox { return e.box }

// Monitor returns the network monitor.
func (e *Engine) Monitor() *netmon.Monitor { return e.mon }

// SyncReport summarises a bulk cache refresh.
type SyncReport struct {
	Refreshed map[string]int   // entity type -> rows cached
	Errors    map[string]error // entity type -> fetch error
	StartTime time.Time
	Duration  time.Duration
}

// SyncData refreshes the cache from the remote backend, one entity type at
// a time. Each fetch is independent and best-effort: one entity type
// failing does not abort the others. This is a full-replace reconciliation;
// rows deleted upstream are not pruned locally (only Clear removes rows).
// A re-entrant call while a refresh is running is a no-op.
func (e *Engine) SyncData(ctx context.Context, orgID string) (*SyncReport, error) {
	if !e.refreshing.CompareAndSwap(false, true) {
		slog.Debug("sync already in progress, skipping")
		return nil, nil
	}
	defer e.refreshing.Store(false)

	report := &SyncReport{
		Refreshed: make(map[string]int),
		Errors:    make(map[string]error),
		StartTime: time.Now(),
	}

	for _, schema := range store.Schemas() {
		records, err := e.backend.Select(ctx, schema.Name, nil)
		if err != nil {
			slog.Warn("refresh fetch failed", "table", schema.Name, "err", err)
			report.Errors[schema.Name] = err
			continue
		}

		cached := make([]models.CachedRecord, 0, len(records))
		for _, r := range records {
			cached = append(cached, models.CachedRecord{
				ID:             r.ID,
				OrganizationID: orgID,
				Payload:        r.Payload,
				UpdatedAt:      r.UpdatedAt,
			})
		}

		if err := e.store.UpsertBatch(schema, orgID, cached); err != nil {
			// Local store failure is not best-effort; it is fatal
			return report, fmt.Errorf("cache %s: %w", schema.Name, err)
		}
		report.Refreshed[schema.Name] = len(cached)
		slog.Debug("refreshed", "table", schema.Name, "rows", len(cached))
	}

	report.Duration = time.Since(report.StartTime)
	e.lastSync.Store(time.Now().UnixMilli())
	slog.Info("cache refresh complete", "tables", len(report.Refreshed), "errors", len(report.Errors), "took", report.Duration)
	return report, nil
}

// DrainResult summarises one drain pass over the outbox.
type DrainResult struct {
	Succeeded int
	Failed    int
}

// ProcessQueue replays pending outbox entries against the remote backend in
// FIFO order. No-op when offline or when a drain is already running.
//
// A rejection or failure poisons the entry's record for the rest of the
// pass: later entries against the same record are skipped so an UPDATE can
// never overtake the INSERT it depends on. Unrelated records keep draining.
// A transport-level failure aborts the pass; the connection is gone and the
// next reconnect retries everything.
func (e *Engine) ProcessQueue(ctx context.Context) (*DrainResult, error) {
	result := &DrainResult{}

	if !e.mon.IsOnline() {
		slog.Debug("offline, skipping queue drain")
		return result, nil
	}
	if !e.draining.CompareAndSwap(false, true) {
		slog.Debug("drain already in progress, skipping")
		return result, nil
	}
	defer e.draining.Store(false)

	if n, err := e.box.RequeueStale(); err != nil {
		return result, fmt.Errorf("requeue stale: %w", err)
	} else if n > 0 {
		slog.Warn("requeued entries from interrupted drain", "count", n)
	}

	pending, err := e.box.ListPending()
	if err != nil {
		return result, fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		return result, nil
	}

	poisoned := make(map[string]bool)

	for _, entry := range pending {
		if poisoned[entry.RecordID] {
			// A prerequisite write for this record just failed;
			// applying this one would break replay order.
			slog.Debug("skipping dependent entry", "id", entry.ID, "record", entry.RecordID)
			result.Failed++
			continue
		}

		if err := e.box.UpdateStatus(entry.ID, outbox.StatusSyncing, ""); err != nil {
			return result, fmt.Errorf("mark syncing: %w", err)
		}

		err := e.apply(ctx, entry)
		if err == nil {
			if err := e.confirm(entry); err != nil {
				return result, err
			}
			result.Succeeded++
			slog.Debug("replayed", "op", entry.Operation, "table", entry.TableName, "record", entry.RecordID)
			continue
		}

		if uerr := e.box.UpdateStatus(entry.ID, outbox.StatusFailed, err.Error()); uerr != nil {
			return result, fmt.Errorf("mark failed: %w", uerr)
		}
		result.Failed++
		poisoned[entry.RecordID] = true

		if !remote.IsRejection(err) {
			slog.Warn("drain aborted, backend unreachable", "err", err)
			break
		}
		slog.Warn("entry rejected", "op", entry.Operation, "table", entry.TableName, "record", entry.RecordID, "err", err)
	}

	e.lastDrain.Store(time.Now().UnixMilli())
	slog.Info("queue drain complete", "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// apply performs one entry's remote operation.
func (e *Engine) apply(ctx context.Context, entry outbox.Entry) error {
	switch entry.Operation {
	case outbox.OpInsert:
		_, err := e.backend.Insert(ctx, entry.TableName, entry.Data)
		return err
	case outbox.OpUpdate:
		return e.backend.Update(ctx, entry.TableName, entry.RecordID, entry.Data)
	case outbox.OpDelete:
		return e.backend.Delete(ctx, entry.TableName, entry.RecordID)
	default:
		return fmt.Errorf("unknown operation %q", entry.Operation)
	}
}

// confirm completes an entry and, for inserts and updates, writes the
// confirmed state into the cache.
func (e *Engine) confirm(entry outbox.Entry) error {
	if err := e.box.UpdateStatus(entry.ID, outbox.StatusCompleted, ""); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	if entry.Operation == outbox.OpDelete {
		// Cache rows are only removed by an explicit clear; the next
		// full refresh reconciles deletions.
		return nil
	}

	schema, ok := store.SchemaByName(entry.TableName)
	if !ok {
		return nil
	}
	rec := models.CachedRecord{
		ID:             entry.RecordID,
		OrganizationID: entry.OrganizationID,
		Payload:        entry.Data,
		UpdatedAt:      time.Now(),
	}
	if err := e.store.UpsertBatch(schema, entry.OrganizationID, []models.CachedRecord{rec}); err != nil {
		return fmt.Errorf("cache confirmed write: %w", err)
	}
	return nil
}

// LastSyncAt returns when the last cache refresh completed, or zero time.
func (e *Engine) LastSyncAt() time.Time {
	ms := e.lastSync.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Bind subscribes the engine to reconnect transitions: every
// offline-to-online edge triggers a queue drain (never a bulk refresh, to
// keep bandwidth use bounded). Returns a cancel func.
func (e *Engine) Bind(ctx context.Context) func() {
	return e.mon.OnOnline(func() {
		if _, err := e.ProcessQueue(ctx); err != nil {
			slog.Warn("reconnect drain", "err", err)
		}
	})
}

// NotifyForeground triggers a queue drain for an app-foreground transition.
func (e *Engine) NotifyForeground(ctx context.Context) {
	if _, err := e.ProcessQueue(ctx); err != nil {
		slog.Warn("foreground drain", "err", err)
	}
}

// RunPeriodic drains the queue on a fixed interval until ctx is cancelled.
func (e *Engine) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.ProcessQueue(ctx); err != nil {
				slog.Warn("periodic drain", "err", err)
			}
		}
	}
}
