package pgmemory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Catalog answers questions about the sessions stored in a transcript table,
// so a restarted server can find conversations it did not create.
type Catalog struct {
	db    Querier
	opts  []Option
	query string
}

// NewCatalog returns a Catalog over the same table New(db, id, opts...)
// writes to.
func NewCatalog(db Querier, opts ...Option) *Catalog {
	table := New(db, "", opts...).tableName
	return &Catalog{
		db:    db,
		opts:  opts,
		query: fmt.Sprintf(`SELECT DISTINCT session_id FROM %s ORDER BY session_id`, table),
	}
}

// Exists reports whether any turn is stored under sessionID. A session that
// never exchanged a message leaves no rows and is not found.
func (c *Catalog) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := New(c.db, sessionID, c.opts...).Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SessionIDs returns every session with stored turns, sorted.
func (c *Catalog) SessionIDs(ctx context.Context) ([]string, error) {
	rows, err := c.db.Query(ctx, c.query)
	if err != nil {
		return nil, fmt.Errorf("pgmemory: session ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("pgmemory: session ids: %w", err)
	}
	return ids, nil
}
