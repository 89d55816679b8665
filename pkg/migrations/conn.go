package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io"
)

// Conn is an open database connection for a known backend.
type Conn struct {
	DB      *sql.DB
	Backend Backend

	out io.Writer
}

// NewConn wraps db. Progress lines of migrators created from the
// connection are written to out.
func NewConn(db *sql.DB, backend Backend, out io.Writer) *Conn {
	if out == nil {
		out = io.Discard
	}
	return &Conn{
		DB:      db,
		Backend: backend,
		out:     out,
	}
}

// Migrator returns a Migrator bound to the connection.
func (c *Conn) Migrator() (*Migrator, error) {
	client, err := NewClient(c.Backend, c.DB)
	if err != nil {
		return nil, err
	}
	return NewMigrator(client, c.out), nil
}

// Transaction runs fn with a Migrator bound to a single transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
func (c *Conn) Transaction(ctx context.Context, fn func(*Migrator) error) error {
	client, err := NewClient(c.Backend, c.DB)
	if err != nil {
		return err
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(NewMigrator(client.WithTx(tx), c.out)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Close closes the underlying database.
func (c *Conn) Close() error {
	return c.DB.Close()
}
