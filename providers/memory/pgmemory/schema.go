package pgmemory

import (
	"context"
	"fmt"
)

// createTableSQL creates the transcript table. The seq column gives a
// monotonic order within a session even when created_at collides.
const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    id          UUID PRIMARY KEY,
    seq         BIGSERIAL NOT NULL,
    session_id  TEXT NOT NULL,
    role        TEXT NOT NULL,
    content     TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// createSessionSeqIndexSQL backs every read: one session, ordered by seq.
const createSessionSeqIndexSQL = `CREATE INDEX IF NOT EXISTS %s
    ON %s (session_id, seq)`

// EnsureSchema creates the transcript table and its index if they do not
// already exist.
func (m *PgMemory) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.Exec(ctx, fmt.Sprintf(createTableSQL, m.tableName)); err != nil {
		return fmt.Errorf("pgmemory: create table: %w", err)
	}

	if _, err := m.db.Exec(ctx, fmt.Sprintf(createSessionSeqIndexSQL, m.indexName, m.tableName)); err != nil {
		return fmt.Errorf("pgmemory: create session_seq index: %w", err)
	}

	return nil
}
