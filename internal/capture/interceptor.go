// Package capture implements the change-detection and audit-record-assembly
// engine. It observes entity lifecycle notifications delivered by the host
// persistence layer, accumulates per-transaction state in an explicit Tx
// buffer, and at transaction end assembles and persists one audit record per
// changed monitored entity. Nothing in this package may break the audited
// transaction: every internal failure is logged and swallowed.
package capture

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mzeiler/audittrail/internal/core"
	"github.com/mzeiler/audittrail/internal/observability"
	"github.com/mzeiler/audittrail/internal/registry"
)

// Store is the durable-write boundary for assembled records. The whole batch
// of one transaction is persisted atomically; children are nested under
// their parent record.
type Store interface {
	SaveAll(ctx context.Context, records []*core.AuditRecord) error
}

// PrincipalFunc resolves the authenticated principal that caused the change.
// ok is false when no principal is authenticated.
type PrincipalFunc func(ctx context.Context) (actor string, ok bool)

// Interceptor is the lifecycle dispatcher. The host persistence layer calls
// Begin at transaction start, the capture hooks as entities flush, and End
// exactly once at transaction completion. All hooks take the Tx explicitly;
// the interceptor itself holds no per-transaction state and is safe for use
// by concurrent transactions.
type Interceptor struct {
	cfg       Config
	registry  *registry.Cache
	store     Store
	meta      core.Metadata
	principal PrincipalFunc
	log       *zap.Logger

	ignored map[string]struct{}
}

func New(cfg Config, reg *registry.Cache, store Store, meta core.Metadata, principal PrincipalFunc, log *zap.Logger) *Interceptor {
	ignored := make(map[string]struct{}, len(cfg.IgnoredProperties))
	for _, p := range cfg.IgnoredProperties {
		ignored[p] = struct{}{}
	}
	return &Interceptor{
		cfg:       cfg,
		registry:  reg,
		store:     store,
		meta:      meta,
		principal: principal,
		log:       log,
		ignored:   ignored,
	}
}

// Begin allocates a fresh capture buffer for a transaction that just
// started. The buffer timestamp is fixed here and shared by every record the
// transaction produces.
func (ic *Interceptor) Begin() *Tx {
	observability.TransactionsStarted.Inc()
	return newTx(time.Now().UTC())
}

// EntityCreated captures an entity about to be inserted.
func (ic *Interceptor) EntityCreated(ctx context.Context, tx *Tx, e core.Entity) {
	if !ic.auditable(ctx, e) {
		return
	}
	ic.log.Debug("captured created entity",
		zap.String("entity_type", e.TypeName()),
		zap.String("entity_id", e.AuditID()),
	)
	tx.inserted[e] = struct{}{}
}

// EntityDeleted captures an entity about to be deleted.
func (ic *Interceptor) EntityDeleted(ctx context.Context, tx *Tx, e core.Entity) {
	if !ic.auditable(ctx, e) {
		return
	}
	ic.log.Debug("captured deleted entity",
		zap.String("entity_type", e.TypeName()),
		zap.String("entity_id", e.AuditID()),
	)
	tx.deleted[e] = struct{}{}
}

// End completes the transaction. When committed, the accumulated state is
// assembled into audit records and handed to the store before the buffer is
// released; on rollback the buffer is discarded with no records emitted.
// Exactly one drain happens per transaction regardless of how End is
// reached, and no failure in here ever propagates to the caller.
func (ic *Interceptor) End(ctx context.Context, tx *Tx, committed bool) {
	tx.drainOnce(func() {
		defer func() {
			if r := recover(); r != nil {
				observability.CapturePanics.Inc()
				ic.log.Error("audit capture panicked", zap.Any("panic", r))
			}
		}()
		if !committed {
			observability.TransactionsEnded.WithLabelValues("rolled_back").Inc()
			return
		}
		observability.TransactionsEnded.WithLabelValues("committed").Inc()
		ic.finish(ctx, tx)
	})
}

// auditable checks whether the entity's type is marked as monitored or is
// implicitly monitored. While the registry is unavailable this is
// deliberately true; speculative captures are filtered at assembly time.
func (ic *Interceptor) auditable(ctx context.Context, e core.Entity) bool {
	return ic.registry.IsAuditable(ctx, e.TypeName())
}
