package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mzeiler/audittrail/internal/core"
)

// Postgres persists audit records in a postgres table. One SaveAll call
// writes the whole batch of a transaction in a single DB transaction, so a
// batch is stored completely or not at all.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate applies the schema.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Postgres) SaveAll(ctx context.Context, records []*core.AuditRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		if err := insertRecord(ctx, tx, rec, nil); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertRecord(ctx context.Context, tx pgx.Tx, rec *core.AuditRecord, parentID *string) error {
	var changes []byte
	if len(rec.Changes) > 0 {
		b, err := json.Marshal(rec.Changes)
		if err != nil {
			return fmt.Errorf("marshal changes for %s: %w", rec.RecordID, err)
		}
		changes = b
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO audit_records (record_id, parent_record_id, entity_type, entity_id, action, actor, ts, changes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.RecordID, parentID, rec.EntityType, rec.EntityID, string(rec.Action), rec.Actor, rec.Timestamp, changes,
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.RecordID, err)
	}
	for _, child := range rec.Children {
		if err := insertRecord(ctx, tx, child, &rec.RecordID); err != nil {
			return err
		}
	}
	return nil
}

// ListRecords returns top-level records matching the filter, newest first,
// with children attached.
func (s *Postgres) ListRecords(ctx context.Context, f Filter) ([]*core.AuditRecord, error) {
	query := `
		SELECT record_id, entity_type, entity_id, action, actor, ts, changes
		FROM audit_records
		WHERE parent_record_id IS NULL`
	args := []any{}
	i := 1
	add := func(clause string, v any) {
		query += fmt.Sprintf(" AND %s $%d", clause, i)
		args = append(args, v)
		i++
	}
	if f.EntityType != "" {
		add("entity_type =", f.EntityType)
	}
	if f.EntityID != "" {
		add("entity_id =", f.EntityID)
	}
	if len(f.Actions) > 0 {
		actions := make([]string, len(f.Actions))
		for j, a := range f.Actions {
			actions[j] = string(a)
		}
		query += fmt.Sprintf(" AND action = ANY($%d)", i)
		args = append(args, actions)
		i++
	}
	if f.Since != nil {
		add("ts >=", *f.Since)
	}
	if f.Until != nil {
		add("ts <=", *f.Until)
	}
	if f.Cursor != nil {
		// Row comparison so the page boundary stays exact when several
		// records share one timestamp.
		query += fmt.Sprintf(" AND (ts, record_id) < ($%d, $%d)", i, i+1)
		args = append(args, f.Cursor.Ts, f.Cursor.RecordID)
		i += 2
	}
	query += " ORDER BY ts DESC, record_id DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*core.AuditRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	for _, rec := range records {
		if err := s.loadChildren(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// GetRecord fetches one record by id with its children.
func (s *Postgres) GetRecord(ctx context.Context, recordID string) (*core.AuditRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT record_id, entity_type, entity_id, action, actor, ts, changes
		FROM audit_records WHERE record_id = $1`, recordID)
	rec, err := scanRecord(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, core.NewAppError(core.ErrNotFound, "record not found")
		}
		return nil, err
	}
	if err := s.loadChildren(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Postgres) loadChildren(ctx context.Context, parent *core.AuditRecord) error {
	rows, err := s.pool.Query(ctx, `
		SELECT record_id, entity_type, entity_id, action, actor, ts, changes
		FROM audit_records WHERE parent_record_id = $1
		ORDER BY record_id`, parent.RecordID)
	if err != nil {
		return fmt.Errorf("load children of %s: %w", parent.RecordID, err)
	}
	defer rows.Close()
	for rows.Next() {
		child, err := scanRecord(rows)
		if err != nil {
			return err
		}
		parent.AddChild(child)
	}
	return rows.Err()
}

func scanRecord(row pgx.Row) (*core.AuditRecord, error) {
	var rec core.AuditRecord
	var action string
	var changes []byte
	if err := row.Scan(&rec.RecordID, &rec.EntityType, &rec.EntityID, &action, &rec.Actor, &rec.Timestamp, &changes); err != nil {
		return nil, err
	}
	rec.Action = core.Action(action)
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &rec.Changes); err != nil {
			return nil, fmt.Errorf("unmarshal changes for %s: %w", rec.RecordID, err)
		}
	}
	return &rec, nil
}
