package capture

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mzeiler/audittrail/internal/core"
)

var conceptProps = []core.PropertyDescriptor{
	{Name: "version", Kind: core.KindText},
	{Name: "names", Kind: core.KindCollection},
}

var conceptNameProps = []core.PropertyDescriptor{
	{Name: "name", Kind: core.KindText},
	{Name: "locale", Kind: core.KindText},
}

func TestCollectionChangeRecordsSyntheticProperty(t *testing.T) {
	f := newFixture([]string{conceptType, conceptNameType}, nil)
	owner := newEntity(conceptType)
	kept := newEntity(conceptNameType)
	removed := newEntity(conceptNameType)
	added := newEntity(conceptNameType)

	before := []any{kept, removed}
	after := []any{kept, added}

	f.runTx(func(tx *Tx) {
		f.ic.CollectionChanged(context.Background(), tx, owner, conceptType+".names", before, after)
	})

	records := f.st.All()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Action != core.ActionUpdated {
		t.Fatalf("expected UPDATED on the owner, got %s", rec.Action)
	}
	if rec.EntityID != owner.AuditID() {
		t.Errorf("synthetic change belongs to the owner, got %s", rec.EntityID)
	}

	c, ok := rec.Change("names")
	if !ok {
		t.Fatalf("expected a synthetic change keyed by the collection property, got %+v", rec.Changes)
	}
	wantOld := "UUID:" + kept.AuditID() + ",UUID:" + removed.AuditID()
	wantNew := "UUID:" + kept.AuditID() + ",UUID:" + added.AuditID()
	if c.Old != wantOld {
		t.Errorf("before serialization wrong:\n got %q\nwant %q", c.Old, wantOld)
	}
	if c.New != wantNew {
		t.Errorf("after serialization wrong:\n got %q\nwant %q", c.New, wantNew)
	}
}

func TestCollectionSerializationOfMixedElements(t *testing.T) {
	f := newFixture([]string{conceptType}, nil)
	owner := newEntity(conceptType)

	member := &struct{ id int }{id: 11}
	f.meta.ids[member] = "11"

	before := []any{}
	after := []any{member, 42, nil}

	f.runTx(func(tx *Tx) {
		f.ic.CollectionChanged(context.Background(), tx, owner, "members", before, after)
	})

	rec := f.st.All()[0]
	c, ok := rec.Change("members")
	if !ok {
		t.Fatalf("missing members change: %+v", rec.Changes)
	}
	if c.Old != EmptyCollection {
		t.Errorf("empty collection must serialize to the explicit marker, got %q", c.Old)
	}
	if c.New != "ID:11,42" {
		t.Errorf("mixed elements serialized wrong: %q", c.New)
	}
	if strings.Contains(c.New, "<nil>") {
		t.Errorf("nil elements must be dropped: %q", c.New)
	}
}

func TestClearedCollectionSerializesToMarker(t *testing.T) {
	f := newFixture([]string{conceptType, conceptNameType}, nil)
	owner := newEntity(conceptType)
	gone := newEntity(conceptNameType)

	f.runTx(func(tx *Tx) {
		f.ic.CollectionChanged(context.Background(), tx, owner, "names", []any{gone}, []any{})
	})

	rec := f.st.All()[0]
	c, _ := rec.Change("names")
	if c.New != EmptyCollection {
		t.Errorf("cleared collection must serialize to the marker, never an empty string; got %q", c.New)
	}
	if c.Old != "UUID:"+gone.AuditID() {
		t.Errorf("before serialization wrong: %q", c.Old)
	}
}

func TestChildElementUpdatePromotesOwner(t *testing.T) {
	f := newFixture([]string{conceptType, conceptNameType}, nil)
	owner := newEntity(conceptType)
	child := newEntity(conceptNameType)

	f.runTx(func(tx *Tx) {
		ctx := context.Background()
		// Dirty checking sees the owner with its names collection.
		f.ic.ObserveCollections(ctx, tx, owner, []any{"1.0", []any{child}}, conceptProps)
		// The element itself is edited; the owner's own properties are not.
		prev := []any{"old name", "en"}
		curr := []any{"new name", "en"}
		f.ic.EntityUpdating(ctx, tx, child, prev, curr, conceptNameProps)
	})

	records := f.st.All()
	if len(records) != 1 {
		t.Fatalf("expected exactly one top-level record, got %d", len(records))
	}
	rec := records[0]
	if rec.EntityID != owner.AuditID() || rec.Action != core.ActionUpdated {
		t.Fatalf("owner should acquire the UPDATED record, got %s %s", rec.EntityType, rec.Action)
	}
	if len(rec.Changes) != 0 {
		t.Errorf("owner had no own-property changes, got %+v", rec.Changes)
	}
	if len(rec.Children) != 1 {
		t.Fatalf("expected the child record nested under the owner, got %d children", len(rec.Children))
	}
	childRec := rec.Children[0]
	if childRec.EntityID != child.AuditID() || childRec.Action != core.ActionUpdated {
		t.Errorf("child record wrong: %s %s", childRec.EntityID, childRec.Action)
	}
	if c, ok := childRec.Change("name"); !ok || c.Old != "old name" || c.New != "new name" {
		t.Errorf("child record must carry the element's own changes: %+v", childRec.Changes)
	}
}

func TestOwnerWithExplicitUpdateKeepsSingleRecord(t *testing.T) {
	f := newFixture([]string{conceptType, conceptNameType}, nil)
	owner := newEntity(conceptType)
	child := newEntity(conceptNameType)

	f.runTx(func(tx *Tx) {
		ctx := context.Background()
		f.ic.ObserveCollections(ctx, tx, owner, []any{"1.0", []any{child}}, conceptProps)
		f.ic.EntityUpdating(ctx, tx, owner, []any{"1.0", nil}, []any{"2.0", nil}, conceptProps)
		f.ic.EntityUpdating(ctx, tx, child, []any{"a", "en"}, []any{"b", "en"}, conceptNameProps)
	})

	records := f.st.All()
	if len(records) != 1 {
		t.Fatalf("owner with an explicit update must not get a second record, got %d", len(records))
	}
	rec := records[0]
	if c, ok := rec.Change("version"); !ok || c.New != "2.0" {
		t.Errorf("owner's own change missing: %+v", rec.Changes)
	}
	if len(rec.Children) != 1 {
		t.Errorf("child record should still nest under the owner, got %d", len(rec.Children))
	}
}

func TestChildFanOutAcrossOwners(t *testing.T) {
	f := newFixture([]string{conceptType, conceptNameType}, nil)
	ownerA := newEntity(conceptType)
	ownerB := newEntity(conceptType)
	shared := newEntity(conceptNameType)

	f.runTx(func(tx *Tx) {
		ctx := context.Background()
		f.ic.ObserveCollections(ctx, tx, ownerA, []any{"1.0", []any{shared}}, conceptProps)
		f.ic.ObserveCollections(ctx, tx, ownerB, []any{"1.0", []any{shared}}, conceptProps)
		f.ic.EntityUpdating(ctx, tx, shared, []any{"a", "en"}, []any{"b", "en"}, conceptNameProps)
	})

	records := f.st.All()
	if len(records) != 2 {
		t.Fatalf("both owners should acquire records, got %d", len(records))
	}
	seen := make(map[string]bool)
	childIDs := make(map[string]bool)
	for _, rec := range records {
		seen[rec.EntityID] = true
		if len(rec.Children) != 1 {
			t.Fatalf("each owner should carry the child, got %d children", len(rec.Children))
		}
		if rec.Children[0].EntityID != shared.AuditID() {
			t.Errorf("nested child should be the shared element")
		}
		childIDs[rec.Children[0].RecordID] = true
	}
	if !seen[ownerA.AuditID()] || !seen[ownerB.AuditID()] {
		t.Error("fan-out must attribute the child to each referencing owner")
	}
	if len(childIDs) != 2 {
		t.Error("fanned-out child records need distinct record ids")
	}
}

func TestImplicitlyMonitoredElementPromotesOwnerWithoutChildRecord(t *testing.T) {
	// The element type is auditable only implicitly; its update still marks
	// the owner dirty but no child record is built for it.
	f := newFixture([]string{conceptType}, []string{conceptNameType})
	owner := newEntity(conceptType)
	child := newEntity(conceptNameType)

	f.runTx(func(tx *Tx) {
		ctx := context.Background()
		f.ic.ObserveCollections(ctx, tx, owner, []any{"1.0", []any{child}}, conceptProps)
		f.ic.EntityUpdating(ctx, tx, child, []any{"a", "en"}, []any{"b", "en"}, conceptNameProps)
	})

	records := f.st.All()
	// The child is itself in the updated set, so it gets its own top-level
	// record; the owner is promoted but carries no nested child.
	var ownerRec *core.AuditRecord
	for _, rec := range records {
		if rec.EntityID == owner.AuditID() {
			ownerRec = rec
		}
	}
	if ownerRec == nil {
		t.Fatal("owner was not promoted to updated")
	}
	if len(ownerRec.Children) != 0 {
		t.Errorf("implicitly monitored elements build no child records, got %d", len(ownerRec.Children))
	}
}

func TestUnmonitoredOwnerNotPromotedOnceRegistryLoads(t *testing.T) {
	f := newFixture([]string{conceptNameType}, nil)
	// Registry unreachable during capture: the owner and its collection are
	// observed speculatively.
	f.src.err = errors.New("registry store not ready")

	owner := newEntity(conceptType)
	element := newEntity(conceptNameType)

	ctx := context.Background()
	tx := f.ic.Begin()
	f.ic.ObserveCollections(ctx, tx, owner, []any{"1.0", []any{element}}, conceptProps)
	f.ic.EntityUpdating(ctx, tx, element, []any{"a", "en"}, []any{"b", "en"}, conceptNameProps)

	// Registry recovers before transaction end; the owner's type turns out
	// not to be monitored.
	f.src.err = nil
	f.ic.End(ctx, tx, true)

	records := f.st.All()
	if len(records) != 1 {
		t.Fatalf("expected only the monitored element's record, got %d", len(records))
	}
	rec := records[0]
	if rec.EntityID != element.AuditID() || rec.Action != core.ActionUpdated {
		t.Fatalf("expected the element's own UPDATED record, got %s %s", rec.EntityType, rec.Action)
	}
	if rec.EntityType != conceptNameType {
		t.Errorf("unmonitored owner type must not acquire a record, got %s", rec.EntityType)
	}
	if len(rec.Children) != 0 {
		t.Errorf("element record must not nest under the unpromoted owner, got %d children", len(rec.Children))
	}
	if c, ok := rec.Change("name"); !ok || c.Old != "a" || c.New != "b" {
		t.Errorf("element record must keep its own changes: %+v", rec.Changes)
	}
}

func TestObserveCollectionsOncePerEntity(t *testing.T) {
	f := newFixture([]string{conceptType, conceptNameType}, nil)
	owner := newEntity(conceptType)
	child := newEntity(conceptNameType)

	f.runTx(func(tx *Tx) {
		ctx := context.Background()
		f.ic.ObserveCollections(ctx, tx, owner, []any{"1.0", []any{child}}, conceptProps)
		f.ic.ObserveCollections(ctx, tx, owner, []any{"1.0", []any{child}}, conceptProps)
		if len(tx.collections[owner]) != 1 {
			t.Fatalf("collections must be observed once per entity, got %d", len(tx.collections[owner]))
		}
		f.ic.EntityUpdating(ctx, tx, child, []any{"a", "en"}, []any{"b", "en"}, conceptNameProps)
	})

	records := f.st.All()
	if len(records) != 1 || len(records[0].Children) != 1 {
		t.Errorf("duplicate observation must not duplicate child records")
	}
}
