package capture

import (
	"sync"
	"time"

	"github.com/mzeiler/audittrail/internal/core"
)

// changeSet holds the accumulated property changes of one entity in
// insertion order.
type changeSet struct {
	entries []core.PropertyChange
	index   map[string]int
}

func newChangeSet() *changeSet {
	return &changeSet{index: make(map[string]int)}
}

// put records a change, replacing an earlier entry for the same property
// while keeping its position.
func (cs *changeSet) put(property, old, new string) {
	if i, ok := cs.index[property]; ok {
		cs.entries[i].Old = old
		cs.entries[i].New = new
		return
	}
	cs.index[property] = len(cs.entries)
	cs.entries = append(cs.entries, core.PropertyChange{Property: property, Old: old, New: new})
}

// Tx is the capture buffer for one in-flight transaction. It is created by
// Interceptor.Begin, passed explicitly through every capture call, and owned
// by the single goroutine executing that transaction, so it needs no
// internal locking. Concurrent transactions hold independent buffers and
// never observe each other's state.
type Tx struct {
	startedAt time.Time

	// Entity sets keyed by identity, so repeated saves of the same entity
	// within one transaction deduplicate.
	inserted map[core.Entity]struct{}
	updated  map[core.Entity]struct{}
	deleted  map[core.Entity]struct{}

	// Changed properties per entity id, including synthetic collection
	// membership entries.
	changes map[string]*changeSet

	// Collections observed per owner, scanned at transaction end to find
	// elements that were independently updated.
	collections map[core.Entity][][]any

	drain sync.Once
}

func newTx(now time.Time) *Tx {
	return &Tx{
		startedAt:   now,
		inserted:    make(map[core.Entity]struct{}),
		updated:     make(map[core.Entity]struct{}),
		deleted:     make(map[core.Entity]struct{}),
		changes:     make(map[string]*changeSet),
		collections: make(map[core.Entity][][]any),
	}
}

// StartedAt is the timestamp fixed at transaction begin; every record of the
// transaction carries it.
func (tx *Tx) StartedAt() time.Time {
	return tx.startedAt
}

func (tx *Tx) changesFor(entityID string) *changeSet {
	cs := tx.changes[entityID]
	if cs == nil {
		cs = newChangeSet()
		tx.changes[entityID] = cs
	}
	return cs
}

func (tx *Tx) isUpdated(e core.Entity) bool {
	_, ok := tx.updated[e]
	return ok
}

// hasObservedCollections reports whether collections were already recorded
// for this entity in this transaction.
func (tx *Tx) hasObservedCollections(e core.Entity) bool {
	_, ok := tx.collections[e]
	return ok
}

// empty reports whether nothing was captured.
func (tx *Tx) empty() bool {
	return len(tx.inserted) == 0 && len(tx.updated) == 0 && len(tx.deleted) == 0
}

// drainOnce runs fn exactly once per transaction, no matter how many times
// End is invoked (commit, rollback, or an internal error path).
func (tx *Tx) drainOnce(fn func()) {
	tx.drain.Do(fn)
}
