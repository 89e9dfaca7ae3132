package store

import (
	"context"
	"sort"
	"sync"

	"github.com/mzeiler/audittrail/internal/core"
)

// Memory is an in-process AuditStore used by tests and as a dev backend. It
// offers the same query surface as Postgres.
type Memory struct {
	mu      sync.Mutex
	records []*core.AuditRecord
	failErr error
}

func NewMemory() *Memory {
	return &Memory{}
}

// FailWith makes every subsequent SaveAll return err. Pass nil to restore
// normal behavior.
func (s *Memory) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *Memory) SaveAll(ctx context.Context, records []*core.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *Memory) ListRecords(ctx context.Context, f Filter) ([]*core.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.AuditRecord
	for _, rec := range s.records {
		if f.matches(rec) {
			out = append(out, rec)
		}
	}
	// Newest first; record id breaks timestamp ties so pagination stays
	// stable across same-timestamp batches.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].RecordID > out[j].RecordID
	})
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Memory) GetRecord(ctx context.Context, recordID string) (*core.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if found := findRecord(rec, recordID); found != nil {
			return found, nil
		}
	}
	return nil, core.NewAppError(core.ErrNotFound, "record not found")
}

// All returns every stored top-level record; test helper.
func (s *Memory) All() []*core.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}

func findRecord(rec *core.AuditRecord, recordID string) *core.AuditRecord {
	if rec.RecordID == recordID {
		return rec
	}
	for _, child := range rec.Children {
		if found := findRecord(child, recordID); found != nil {
			return found
		}
	}
	return nil
}
