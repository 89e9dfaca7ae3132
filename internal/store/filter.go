package store

import (
	"time"

	"github.com/mzeiler/audittrail/internal/core"
)

// Cursor marks the last record of the previous page. Records of one
// transaction share a single timestamp, so the boundary compares
// (ts, record_id) and the record id breaks ties; a timestamp alone would
// drop the rest of a batch when a page ends inside it.
type Cursor struct {
	Ts       time.Time
	RecordID string
}

// Filter narrows a record listing. Zero values mean "no constraint". Listing
// returns newest records first; Cursor pages through results by excluding
// records at or after the cursor position.
type Filter struct {
	EntityType string
	EntityID   string
	Actions    []core.Action
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Cursor     *Cursor
}

func (f Filter) matchesAction(a core.Action) bool {
	if len(f.Actions) == 0 {
		return true
	}
	for _, want := range f.Actions {
		if a == want {
			return true
		}
	}
	return false
}

func (f Filter) matches(r *core.AuditRecord) bool {
	if f.EntityType != "" && r.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && r.EntityID != f.EntityID {
		return false
	}
	if !f.matchesAction(r.Action) {
		return false
	}
	if f.Since != nil && r.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && r.Timestamp.After(*f.Until) {
		return false
	}
	if f.Cursor != nil {
		if r.Timestamp.After(f.Cursor.Ts) {
			return false
		}
		if r.Timestamp.Equal(f.Cursor.Ts) && r.RecordID >= f.Cursor.RecordID {
			return false
		}
	}
	return true
}
