// Package pgmemory provides a PostgreSQL-backed implementation of the
// [memory.Provider] interface for persisting transcripts across process
// restarts. Each [PgMemory] instance is scoped to a single session and uses
// pgx/v5 for pool-safe queries.
//
// The main entry point is [New], which returns a [PgMemory] bound to a
// session. [PgMemory.EnsureSchema] creates the table and index when they do
// not exist yet.
package pgmemory
