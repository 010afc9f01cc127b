// Package sqlite provides the in-process SQLite connection used for the
// host's local database feature. It is a thin pass-through to the native
// SQL engine; schema and query semantics belong to callers.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"
)

// Location selects where the database lives.
type Location struct {
	path string
}

// InMemory returns a location for a transient in-memory database.
func InMemory() Location {
	return Location{}
}

// File returns a location backed by a database file at path.
func File(path string) Location {
	return Location{path: path}
}

func (l Location) dsn() string {
	if l.path == "" {
		return ":memory:"
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", l.path, 5000)
}

// Connection is a handle to an in-process SQLite database.
type Connection struct {
	db *sql.DB
}

// Open opens a connection for the given location.
func Open(loc Location) (*Connection, error) {
	db, err := sql.Open("sqlite", loc.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// A single underlying connection: in-memory databases are per
	// connection, and file-backed ones avoid writer contention.
	db.SetMaxOpenConns(1)
	return &Connection{db: db}, nil
}

// QueryResult holds the columns and row values of a query.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// Query runs a parameterized query and materializes the full result.
func (c *Connection) Query(ctx context.Context, query string, params ...any) (*QueryResult, error) {
	rows, err := c.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

// Execute runs a single statement and returns the affected row count.
func (c *Connection) Execute(ctx context.Context, statement string, params ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, statement, params...)
	if err != nil {
		return 0, fmt.Errorf("sqlite execute: %w", err)
	}
	return res.RowsAffected()
}

// ExecuteScript runs a batch of semicolon-separated statements.
func (c *Connection) ExecuteScript(ctx context.Context, script string) error {
	if _, err := c.db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("sqlite batch execute: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Connection) Close() error {
	return c.db.Close()
}
