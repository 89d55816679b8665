package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SchemaTable records which migrations have been applied.
const SchemaTable = "__dbmig_schema_migrations"

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// dialect supplies the SQL that differs between backends.
type dialect interface {
	// placeholder returns the bind parameter marker for the n-th argument (1-based).
	placeholder(n int) string

	// hasTableSql returns a query taking the table name as its only
	// argument and yielding a row when the table exists.
	hasTableSql() string
}

// NewClient creates a new Client for the backend, bound to db.
func NewClient(backend Backend, db DBTX) (*Client, error) {
	if !backend.Valid() {
		return nil, fmt.Errorf("backend '%s' not supported. Must be one of: postgres, sqlite or mysql", backend)
	}

	switch backend {
	case Postgres:
		return NewPostgresClient(db), nil
	case MySQL:
		return NewMysqlClient(db), nil
	default:
		return NewSqlite3Client(db), nil
	}
}

// Client reads and writes the migration version table.
type Client struct {
	Backend Backend
	DB      DBTX

	dialect dialect
}

// WithTx returns a copy of the client that runs its statements in tx.
func (c *Client) WithTx(tx *sql.Tx) *Client {
	return &Client{
		Backend: c.Backend,
		DB:      tx,
		dialect: c.dialect,
	}
}

// RunSqlScript executes a SQL script. Scripts holding only comments and
// whitespace are skipped, since some drivers reject empty queries.
func (c *Client) RunSqlScript(ctx context.Context, script string) error {
	if isBlankScript(script) {
		return nil
	}
	_, err := c.DB.ExecContext(ctx, script)
	return err
}

// HasVersionTable reports whether the version table exists.
func (c *Client) HasVersionTable(ctx context.Context) (bool, error) {
	rows, err := c.DB.QueryContext(ctx, c.dialect.hasTableSql(), SchemaTable)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	// if there is at least one row then the table exists.
	found := rows.Next()
	return found, rows.Err()
}

// EnsureTable creates the version table if it is missing.
func (c *Client) EnsureTable(ctx context.Context) error {
	_, err := c.DB.ExecContext(ctx, fmt.Sprintf(`
      CREATE TABLE IF NOT EXISTS %s (
        version VARCHAR(50) PRIMARY KEY NOT NULL,
        run_on TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
      );`, SchemaTable))
	return err
}

// AppliedVersions returns the recorded versions in ascending string order.
func (c *Client) AppliedVersions(ctx context.Context) ([]string, error) {
	rows, err := c.DB.QueryContext(ctx, fmt.Sprintf(`
      SELECT version
      FROM %s
      ORDER BY version ASC;`, SchemaTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// MarkApplied records version as applied.
func (c *Client) MarkApplied(ctx context.Context, version string) error {
	_, err := c.DB.ExecContext(ctx, fmt.Sprintf(`
      INSERT INTO %s (version)
      VALUES (%s);`, SchemaTable, c.dialect.placeholder(1)), version)
	return err
}

// MarkReverted removes the record for version.
func (c *Client) MarkReverted(ctx context.Context, version string) error {
	_, err := c.DB.ExecContext(ctx, fmt.Sprintf(`
      DELETE FROM %s
      WHERE version = %s;`, SchemaTable, c.dialect.placeholder(1)), version)
	return err
}

// isBlankScript reports whether script contains nothing but whitespace and
// line comments.
func isBlankScript(script string) bool {
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		return false
	}
	return true
}
