package capture

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mzeiler/audittrail/internal/core"
	"github.com/mzeiler/audittrail/internal/observability"
)

// EntityUpdating captures a dirty-checked entity. previous and current are
// property-value vectors aligned with props. The entity is marked updated
// only when the diff is non-empty after the ignore list, flattening and the
// equivalence rules are applied.
func (ic *Interceptor) EntityUpdating(ctx context.Context, tx *Tx, e core.Entity, previous, current []any, props []core.PropertyDescriptor) {
	if len(props) == 0 || !ic.auditable(ctx, e) {
		return
	}
	start := time.Now()
	changed := ic.detectPropertyChanges(e, previous, current, props)
	observability.ChangeDetectDuration.Observe(time.Since(start).Seconds())
	if len(changed) == 0 {
		return
	}

	ic.log.Debug("captured updated entity",
		zap.String("entity_type", e.TypeName()),
		zap.String("entity_id", e.AuditID()),
		zap.Int("changed_properties", len(changed)),
	)
	tx.updated[e] = struct{}{}
	cs := tx.changesFor(e.AuditID())
	for _, c := range changed {
		cs.put(c.Property, c.Old, c.New)
	}
}

// detectPropertyChanges computes the changed-property list for one entity.
// A failure to flatten or classify a value skips that single property only.
func (ic *Interceptor) detectPropertyChanges(e core.Entity, previous, current []any, props []core.PropertyDescriptor) []core.PropertyChange {
	var changed []core.PropertyChange
	for i, prop := range props {
		if _, skip := ic.ignored[prop.Name]; skip {
			continue
		}
		switch prop.Kind {
		case core.KindCollection:
			// Collections are diffed by the collection tracker.
			continue
		case core.KindComponent:
			ic.log.Info("component-typed properties are not audited",
				zap.String("entity_type", e.TypeName()),
				zap.String("property", prop.Name),
			)
			continue
		}

		var prev, curr any
		if i < len(previous) {
			prev = previous[i]
		}
		if i < len(current) {
			curr = current[i]
		}

		oldFlat, err := core.Flatten(prop.Kind, prev, ic.meta)
		if err != nil {
			ic.skipProperty(e, prop, err)
			continue
		}
		newFlat, err := core.Flatten(prop.Kind, curr, ic.meta)
		if err != nil {
			ic.skipProperty(e, prop, err)
			continue
		}
		if core.EqualFlattened(prop.Kind, oldFlat, newFlat) {
			continue
		}
		changed = append(changed, core.PropertyChange{Property: prop.Name, Old: oldFlat, New: newFlat})
	}
	return changed
}

func (ic *Interceptor) skipProperty(e core.Entity, prop core.PropertyDescriptor, err error) {
	var appErr *core.AppError
	code := core.ErrFlattenFailed
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	observability.PropertiesSkipped.WithLabelValues(string(code)).Inc()
	observability.EntityLogger(ic.log, e.TypeName(), e.AuditID()).Info("skipping property",
		zap.String("property", prop.Name),
		zap.String("kind", prop.Kind.String()),
		zap.Error(err),
	)
}
