package core

import "github.com/google/uuid"

// NewID mints the identifier for a new audit record. V7 ids are
// time-ordered, so within one transaction's batch the record_id tiebreak of
// the listing order follows insertion order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails (should not happen).
		return uuid.New().String()
	}
	return id.String()
}
