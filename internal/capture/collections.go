package capture

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mzeiler/audittrail/internal/core"
	"github.com/mzeiler/audittrail/internal/observability"
	"github.com/mzeiler/audittrail/internal/registry"
)

// EmptyCollection marks a collection that serialized to no elements, so an
// empty membership is never confused with "no change recorded".
const EmptyCollection = "(empty)"

// CollectionChanged captures a membership mutation of a collection-valued
// property. role is the property path of the collection on its owner; before
// is the snapshot taken when the collection was loaded and after its current
// contents. The diff is stored as a synthetic property change on the owner,
// which joins the updated set.
func (ic *Interceptor) CollectionChanged(ctx context.Context, tx *Tx, owner core.Entity, role string, before, after []any) {
	if !ic.auditable(ctx, owner) {
		return
	}

	afterSerialized := ic.serializeElements(after)
	beforeSerialized := ic.serializeElements(before)
	property := collectionProperty(role)

	if removed := removedElements(before, after, ic.meta); len(removed) > 0 {
		ic.log.Debug("collection elements removed",
			zap.String("entity_id", owner.AuditID()),
			zap.String("property", property),
			zap.Strings("removed", removed),
		)
	}

	observability.CollectionDiffs.Inc()
	tx.changesFor(owner.AuditID()).put(property, beforeSerialized, afterSerialized)
	tx.updated[owner] = struct{}{}
}

// ObserveCollections records, once per entity per transaction, the non-empty
// collection-valued properties of a monitored entity seen during dirty
// checking. The recorded contents are scanned at transaction end to discover
// elements that were independently updated, so their owners can be marked
// dirty too.
func (ic *Interceptor) ObserveCollections(ctx context.Context, tx *Tx, e core.Entity, state []any, props []core.PropertyDescriptor) {
	if !ic.registry.IsMonitored(ctx, e.TypeName()) {
		return
	}
	if tx.hasObservedCollections(e) {
		return
	}
	var colls [][]any
	for i, prop := range props {
		if prop.Kind != core.KindCollection || i >= len(state) {
			continue
		}
		coll, ok := state[i].([]any)
		if !ok || len(coll) == 0 {
			continue
		}
		colls = append(colls, coll)
	}
	if len(colls) > 0 {
		tx.collections[e] = colls
	}
}

// propagateCollectionUpdates runs at transaction end, after all per-entity
// diffs are known. Owners whose collections contain independently updated
// elements are promoted into the updated set, and one child UPDATED record
// is built per changed element, attributed to every owner that references
// it. Returns children keyed by owner entity id and the per-element records
// keyed by element entity id.
func (ic *Interceptor) propagateCollectionUpdates(ctx context.Context, tx *Tx, actor string, snap registry.Snapshot, snapOK bool) (map[string][]*core.AuditRecord, map[string]*core.AuditRecord) {
	ownerChildren := make(map[string][]*core.AuditRecord)
	childByID := make(map[string]*core.AuditRecord)

	for owner, colls := range tx.collections {
		// Owners observed while the registry was unavailable get the same
		// re-check as the entity sets. An owner of an unauditable type is
		// never promoted; its changed monitored elements keep their own
		// top-level records instead of nesting under it.
		if snapOK && !snap.IsAuditable(owner.TypeName()) {
			continue
		}
		for _, coll := range colls {
			for _, el := range coll {
				element, ok := el.(core.Entity)
				if !ok || !tx.isUpdated(element) {
					continue
				}
				if tx.isUpdated(owner) {
					ic.log.Debug("owner already marked updated",
						zap.String("entity_type", owner.TypeName()),
						zap.String("entity_id", owner.AuditID()),
					)
				} else {
					ic.log.Debug("marking owner updated due to changed collection element",
						zap.String("entity_type", owner.TypeName()),
						zap.String("entity_id", owner.AuditID()),
						zap.String("element_id", element.AuditID()),
					)
					tx.updated[owner] = struct{}{}
				}

				if !ic.registry.IsMonitored(ctx, element.TypeName()) {
					continue
				}
				child := childByID[element.AuditID()]
				if child == nil {
					child = ic.newRecord(element, core.ActionUpdated, actor, tx)
					childByID[element.AuditID()] = child
				} else {
					// Fan-out to an additional owner: copy with a fresh
					// record id so persisted rows stay unique under their
					// single parent.
					clone := *child
					clone.RecordID = core.NewID()
					child = &clone
				}
				ownerChildren[owner.AuditID()] = append(ownerChildren[owner.AuditID()], child)
			}
		}
	}
	return ownerChildren, childByID
}

// serializeElements flattens collection contents to a comma-joined list in
// iteration order. Nil elements are dropped; a fully empty result gets the
// explicit empty marker.
func (ic *Interceptor) serializeElements(elements []any) string {
	parts := make([]string, 0, len(elements))
	for _, el := range elements {
		if el == nil {
			continue
		}
		if s := core.FlattenElement(el, ic.meta); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return EmptyCollection
	}
	return strings.Join(parts, ",")
}

// removedElements computes before minus after over flattened element forms.
func removedElements(before, after []any, meta core.Metadata) []string {
	present := make(map[string]struct{}, len(after))
	for _, el := range after {
		if el == nil {
			continue
		}
		present[core.FlattenElement(el, meta)] = struct{}{}
	}
	var removed []string
	for _, el := range before {
		if el == nil {
			continue
		}
		s := core.FlattenElement(el, meta)
		if _, ok := present[s]; !ok {
			removed = append(removed, s)
		}
	}
	return removed
}

// collectionProperty reduces a collection role path to its property name.
func collectionProperty(role string) string {
	if i := strings.LastIndex(role, "."); i >= 0 {
		return role[i+1:]
	}
	return role
}
