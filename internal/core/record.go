package core

import "time"

type Action string

const (
	ActionCreated Action = "CREATED"
	ActionUpdated Action = "UPDATED"
	ActionDeleted Action = "DELETED"
)

// UnknownActor is recorded when no principal is authenticated.
const UnknownActor = "unknown"

// PropertyChange is one changed property with its flattened old and new values.
type PropertyChange struct {
	Property string `json:"property"`
	Old      string `json:"old"`
	New      string `json:"new"`
}

// AuditRecord is one audit trail entry for a single entity mutation. Records
// for collection elements that changed inside an owning entity are nested
// under the owner via Children.
type AuditRecord struct {
	RecordID   string           `json:"record_id"`
	EntityType string           `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	Action     Action           `json:"action"`
	Actor      string           `json:"actor"`
	Timestamp  time.Time        `json:"ts"`
	Changes    []PropertyChange `json:"changes,omitempty"`
	Children   []*AuditRecord   `json:"children,omitempty"`
}

// Change returns the change entry for a property name, if present.
func (r *AuditRecord) Change(property string) (PropertyChange, bool) {
	for _, c := range r.Changes {
		if c.Property == property {
			return c, true
		}
	}
	return PropertyChange{}, false
}

// AddChild nests a collection-element record under this record.
func (r *AuditRecord) AddChild(child *AuditRecord) {
	r.Children = append(r.Children, child)
}
