package store

// Schema is the DDL for the audit record table. Child records (collection
// element updates) reference their owner through parent_record_id.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	record_id        TEXT PRIMARY KEY,
	parent_record_id TEXT REFERENCES audit_records(record_id) ON DELETE CASCADE,
	entity_type      TEXT NOT NULL,
	entity_id        TEXT NOT NULL,
	action           TEXT NOT NULL,
	actor            TEXT NOT NULL,
	ts               TIMESTAMPTZ NOT NULL,
	changes          JSONB
);

CREATE INDEX IF NOT EXISTS audit_records_ts_idx ON audit_records (ts DESC, record_id DESC);
CREATE INDEX IF NOT EXISTS audit_records_entity_idx ON audit_records (entity_type, entity_id);
CREATE INDEX IF NOT EXISTS audit_records_parent_idx ON audit_records (parent_record_id);
`
