// Package registry caches the set of monitored entity types. The
// configuration lives outside this process; the cache holds an immutable
// snapshot that is swapped atomically on reload and read without locks.
package registry

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Source loads the monitored-type configuration. Implementations typically
// query the same storage the audit records live in, which is why the
// snapshot may only become loadable once that storage is first reachable.
type Source interface {
	Load(ctx context.Context) (Snapshot, error)
}

// Snapshot is one immutable view of the monitored-type configuration.
// Monitored types are administrator-configured; implicit types are monitored
// because they are structurally owned by a monitored type.
type Snapshot struct {
	Monitored map[string]struct{}
	Implicit  map[string]struct{}
}

// NewSnapshot builds a snapshot from type-name lists.
func NewSnapshot(monitored, implicit []string) Snapshot {
	s := Snapshot{
		Monitored: make(map[string]struct{}, len(monitored)),
		Implicit:  make(map[string]struct{}, len(implicit)),
	}
	for _, t := range monitored {
		s.Monitored[t] = struct{}{}
	}
	for _, t := range implicit {
		s.Implicit[t] = struct{}{}
	}
	return s
}

func (s Snapshot) IsMonitored(typeName string) bool {
	_, ok := s.Monitored[typeName]
	return ok
}

func (s Snapshot) IsImplicitlyMonitored(typeName string) bool {
	_, ok := s.Implicit[typeName]
	return ok
}

// IsAuditable reports whether a type is monitored directly or implicitly.
func (s Snapshot) IsAuditable(typeName string) bool {
	return s.IsMonitored(typeName) || s.IsImplicitlyMonitored(typeName)
}

// Cache wraps a Source with lazy loading and lock-free reads. Until the
// first successful load every type is treated as potentially monitored so
// nothing is missed due to load ordering; speculative captures are filtered
// out at assembly time once a snapshot exists. If two transactions race the
// first load both compute the same snapshot, so no exclusive lock is needed,
// only the atomic publish.
type Cache struct {
	source Source
	log    *zap.Logger

	snap       atomic.Pointer[Snapshot]
	generation atomic.Uint64
}

func NewCache(source Source, log *zap.Logger) *Cache {
	return &Cache{source: source, log: log}
}

// IsMonitored reports whether a type is directly monitored, assuming
// monitored while no snapshot is available.
func (c *Cache) IsMonitored(ctx context.Context, typeName string) bool {
	snap := c.load(ctx)
	if snap == nil {
		return true
	}
	return snap.IsMonitored(typeName)
}

// IsImplicitlyMonitored reports whether a type is monitored because it is a
// component of a monitored owner, assuming monitored while no snapshot is
// available.
func (c *Cache) IsImplicitlyMonitored(ctx context.Context, typeName string) bool {
	snap := c.load(ctx)
	if snap == nil {
		return true
	}
	return snap.IsImplicitlyMonitored(typeName)
}

// IsAuditable reports whether a type is monitored directly or implicitly.
func (c *Cache) IsAuditable(ctx context.Context, typeName string) bool {
	snap := c.load(ctx)
	if snap == nil {
		return true
	}
	return snap.IsAuditable(typeName)
}

// Snapshot returns the current snapshot, attempting a load if none is
// published yet. The second return is false while the registry is still
// unavailable.
func (c *Cache) Snapshot(ctx context.Context) (Snapshot, bool) {
	snap := c.load(ctx)
	if snap == nil {
		return Snapshot{}, false
	}
	return *snap, true
}

// Generation returns the number of snapshot publishes so far.
func (c *Cache) Generation() uint64 {
	return c.generation.Load()
}

// Invalidate drops the published snapshot so the next read reloads. Called
// when the monitored-type configuration changes.
func (c *Cache) Invalidate() {
	c.snap.Store(nil)
}

func (c *Cache) load(ctx context.Context) *Snapshot {
	if snap := c.snap.Load(); snap != nil {
		return snap
	}
	snap, err := c.source.Load(ctx)
	if err != nil {
		c.log.Warn("monitored-type registry unavailable, assuming monitored", zap.Error(err))
		return nil
	}
	c.snap.Store(&snap)
	c.generation.Add(1)
	c.log.Info("monitored-type registry loaded",
		zap.Int("monitored", len(snap.Monitored)),
		zap.Int("implicit", len(snap.Implicit)),
		zap.Uint64("generation", c.generation.Load()),
	)
	return &snap
}
