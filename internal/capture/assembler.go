package capture

import (
	"context"

	"go.uber.org/zap"

	"github.com/mzeiler/audittrail/internal/core"
	"github.com/mzeiler/audittrail/internal/observability"
	"github.com/mzeiler/audittrail/internal/registry"
)

// finish assembles the buffer's accumulated state into audit records and
// hands the batch to the store. It runs inside the surrounding unit-of-work,
// strictly before the transaction finalizes, so a persisted domain change
// always has its records and vice versa. Persistence failures are logged and
// swallowed: an audit failure degrades observability, not availability.
func (ic *Interceptor) finish(ctx context.Context, tx *Tx) {
	if tx.empty() {
		return
	}

	actor := core.UnknownActor
	if ic.principal != nil {
		if a, ok := ic.principal(ctx); ok {
			actor = a
		}
	}

	// Entities captured while the registry was not yet loaded were captured
	// speculatively; filter them now that a snapshot may be available. The
	// registry often lives in the same storage the records go to, so this is
	// the earliest point it is reliably loadable. The snapshot is also handed
	// to the collection pass so speculatively observed owners get the same
	// re-check before they are promoted.
	snap, snapOK := ic.registry.Snapshot(ctx)
	if snapOK {
		filterMonitored(tx.inserted, snap)
		filterMonitored(tx.updated, snap)
		filterMonitored(tx.deleted, snap)
	}

	records := make([]*core.AuditRecord, 0, len(tx.inserted)+len(tx.updated)+len(tx.deleted))

	for e := range tx.inserted {
		records = append(records, ic.newBareRecord(e, core.ActionCreated, actor, tx))
	}
	for e := range tx.deleted {
		records = append(records, ic.newBareRecord(e, core.ActionDeleted, actor, tx))
	}

	ownerChildren, childByID := ic.propagateCollectionUpdates(ctx, tx, actor, snap, snapOK)

	for e := range tx.updated {
		rec, isChild := childByID[e.AuditID()]
		if rec == nil {
			rec = ic.newRecord(e, core.ActionUpdated, actor, tx)
		}
		for _, child := range ownerChildren[e.AuditID()] {
			rec.AddChild(child)
		}
		// A record already nested under an owner never repeats at top level.
		if !isChild {
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		return
	}

	if err := ic.store.SaveAll(ctx, records); err != nil {
		observability.PersistFailures.Inc()
		ic.log.Error("failed to persist audit records",
			zap.Int("records", len(records)),
			zap.Error(err),
		)
		return
	}

	for _, rec := range records {
		observability.RecordsEmitted.WithLabelValues(string(rec.Action)).Inc()
	}
	ic.log.Debug("audit records persisted", zap.Int("records", len(records)))
}

// newBareRecord builds a record with no change payload (creates and deletes).
func (ic *Interceptor) newBareRecord(e core.Entity, action core.Action, actor string, tx *Tx) *core.AuditRecord {
	return &core.AuditRecord{
		RecordID:   core.NewID(),
		EntityType: e.TypeName(),
		EntityID:   e.AuditID(),
		Action:     action,
		Actor:      actor,
		Timestamp:  tx.startedAt,
	}
}

// newRecord builds a record carrying the entity's accumulated property
// changes, if any.
func (ic *Interceptor) newRecord(e core.Entity, action core.Action, actor string, tx *Tx) *core.AuditRecord {
	rec := ic.newBareRecord(e, action, actor, tx)
	if action == core.ActionUpdated {
		if cs := tx.changes[e.AuditID()]; cs != nil {
			rec.Changes = append(rec.Changes, cs.entries...)
		}
	}
	return rec
}

func filterMonitored(set map[core.Entity]struct{}, snap registry.Snapshot) {
	for e := range set {
		if !snap.IsAuditable(e.TypeName()) {
			delete(set, e)
		}
	}
}
