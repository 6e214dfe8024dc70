package pgmemory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leofalp/convo/providers/ai"
	"github.com/leofalp/convo/providers/memory"
)

// defaultTableName is the PostgreSQL table used when no custom name is provided.
const defaultTableName = "convo_messages"

// Querier abstracts the pgx query methods needed by PgMemory.
// Both *pgxpool.Pool and pgx.Tx satisfy this interface.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgMemory is a [memory.Provider] that keeps one session's transcript in a
// PostgreSQL table shared by all sessions. Safe for concurrent use when the
// Querier is (a *pgxpool.Pool is).
type PgMemory struct {
	db        Querier
	sessionID string
	tableName string
	indexName string
	stmt      statements
}

var _ memory.Provider = (*PgMemory)(nil)

// statements are the queries of one PgMemory, rendered for its table name.
type statements struct {
	insert, count, all, last, clear string
}

func newStatements(table string) statements {
	return statements{
		insert: fmt.Sprintf(`INSERT INTO %s (id, session_id, role, content) VALUES ($1, $2, $3, $4)`, table),
		count:  fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE session_id = $1`, table),
		all:    fmt.Sprintf(`SELECT role, content FROM %s WHERE session_id = $1 ORDER BY seq`, table),
		// The newest n turns, returned oldest first.
		last: fmt.Sprintf(`SELECT role, content FROM (
    SELECT seq, role, content FROM %s WHERE session_id = $1 ORDER BY seq DESC LIMIT $2
) newest ORDER BY newest.seq`, table),
		clear: fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, table),
	}
}

// Option configures a PgMemory.
type Option func(*PgMemory)

// WithTableName stores transcripts in name instead of "convo_messages". The
// name is quoted with pgx.Identifier before it reaches any statement.
func WithTableName(name string) Option {
	return func(m *PgMemory) {
		m.tableName = pgx.Identifier{name}.Sanitize()
		m.indexName = pgx.Identifier{"idx_" + name + "_session_seq"}.Sanitize()
	}
}

// New returns the transcript store of sessionID. db is usually a
// *pgxpool.Pool shared by every session.
func New(db Querier, sessionID string, opts ...Option) *PgMemory {
	m := &PgMemory{
		db:        db,
		sessionID: sessionID,
		tableName: defaultTableName,
		indexName: "idx_" + defaultTableName + "_session_seq",
	}
	for _, opt := range opts {
		opt(m)
	}
	m.stmt = newStatements(m.tableName)
	return m
}

// SessionID returns the session this store is scoped to.
func (m *PgMemory) SessionID() string {
	return m.sessionID
}

// AppendMessage inserts message as the session's newest turn. nil is a no-op.
func (m *PgMemory) AppendMessage(ctx context.Context, message *ai.Message) error {
	if message == nil {
		return nil
	}

	if _, err := m.db.Exec(ctx, m.stmt.insert, uuid.New(), m.sessionID, string(message.Role), message.Content); err != nil {
		return fmt.Errorf("pgmemory: append message: %w", err)
	}
	return nil
}

func (m *PgMemory) Count(ctx context.Context) (int, error) {
	var count int
	if err := m.db.QueryRow(ctx, m.stmt.count, m.sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgmemory: count: %w", err)
	}
	return count, nil
}

// AllMessages returns the session's transcript in insertion order.
func (m *PgMemory) AllMessages(ctx context.Context) ([]ai.Message, error) {
	messages, err := m.collect(ctx, m.stmt.all, m.sessionID)
	if err != nil {
		return nil, fmt.Errorf("pgmemory: all messages: %w", err)
	}
	return messages, nil
}

// LastMessages returns the newest n turns, oldest first. n <= 0 yields an
// empty slice without a query.
func (m *PgMemory) LastMessages(ctx context.Context, n int) ([]ai.Message, error) {
	if n <= 0 {
		return []ai.Message{}, nil
	}

	messages, err := m.collect(ctx, m.stmt.last, m.sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("pgmemory: last messages: %w", err)
	}
	return messages, nil
}

// ClearMessages deletes the session's rows. Other sessions are untouched.
func (m *PgMemory) ClearMessages(ctx context.Context) error {
	if _, err := m.db.Exec(ctx, m.stmt.clear, m.sessionID); err != nil {
		return fmt.Errorf("pgmemory: clear messages: %w", err)
	}
	return nil
}

// collect runs a role/content query. The result is never nil.
func (m *PgMemory) collect(ctx context.Context, query string, args ...any) ([]ai.Message, error) {
	rows, err := m.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ai.Message, error) {
		var role, content string
		err := row.Scan(&role, &content)
		return ai.Message{Role: ai.MessageRole(role), Content: content}, err
	})
}
