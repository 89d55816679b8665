package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/bcomnes/dbmig/pkg/dberrors"
)

// Marked pairs a migration with whether it has been applied.
type Marked struct {
	Migration Migration
	Applied   bool
}

// Migrator applies and reverts the migrations of a directory.
//
// A Migrator bound to a *sql.DB runs every migration in its own transaction
// when the backend supports transactional DDL. A Migrator bound to a *sql.Tx
// runs everything inside that transaction.
type Migrator struct {
	client *Client
	out    io.Writer
}

// NewMigrator creates a Migrator writing progress lines to out.
func NewMigrator(client *Client, out io.Writer) *Migrator {
	if out == nil {
		out = io.Discard
	}
	return &Migrator{
		client: client,
		out:    out,
	}
}

// ApplyPending applies every migration in dir that has not been applied,
// in ascending version order, and returns the applied versions.
func (m *Migrator) ApplyPending(ctx context.Context, dir string) ([]string, error) {
	if err := m.client.EnsureTable(ctx); err != nil {
		return nil, err
	}
	migs, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	applied, err := m.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	var versions []string
	for _, mig := range migs {
		if applied[mig.Version] {
			continue
		}
		if err := m.run(ctx, mig, up); err != nil {
			return versions, err
		}
		versions = append(versions, mig.Version)
	}
	return versions, nil
}

// RevertLatest reverts the most recently applied migration and returns its version.
func (m *Migrator) RevertLatest(ctx context.Context, dir string) (string, error) {
	if err := m.client.EnsureTable(ctx); err != nil {
		return "", err
	}
	versions, err := m.client.AppliedVersions(ctx)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", dberrors.ErrNoMigrationRun
	}
	latest := versions[len(versions)-1]

	mig, err := m.lookup(dir, latest)
	if err != nil {
		return "", err
	}
	if err := m.run(ctx, mig, down); err != nil {
		return "", err
	}
	return latest, nil
}

// ApplyByVersion applies the migration with the given version.
func (m *Migrator) ApplyByVersion(ctx context.Context, dir, version string) error {
	if err := m.client.EnsureTable(ctx); err != nil {
		return err
	}
	mig, err := m.lookup(dir, version)
	if err != nil {
		return err
	}
	return m.run(ctx, mig, up)
}

// ListMarked returns every migration in dir with its applied flag.
// It does not create the version table.
func (m *Migrator) ListMarked(ctx context.Context, dir string) ([]Marked, error) {
	migs, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	applied, err := m.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	marked := make([]Marked, 0, len(migs))
	for _, mig := range migs {
		marked = append(marked, Marked{Migration: mig, Applied: applied[mig.Version]})
	}
	return marked, nil
}

// AnyPending reports whether dir holds a migration that has not been applied.
func (m *Migrator) AnyPending(ctx context.Context, dir string) (bool, error) {
	marked, err := m.ListMarked(ctx, dir)
	if err != nil {
		return false, err
	}
	for _, mk := range marked {
		if !mk.Applied {
			return true, nil
		}
	}
	return false, nil
}

func (m *Migrator) appliedSet(ctx context.Context) (map[string]bool, error) {
	exists, err := m.client.HasVersionTable(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	if !exists {
		return set, nil
	}
	versions, err := m.client.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		set[v] = true
	}
	return set, nil
}

func (m *Migrator) lookup(dir, version string) (Migration, error) {
	migs, err := Discover(dir)
	if err != nil {
		return Migration{}, err
	}
	for _, mig := range migs {
		if mig.Version == version {
			return mig, nil
		}
	}
	return Migration{}, fmt.Errorf("%w: %s", dberrors.ErrUnknownMigrationVersion, version)
}

type direction int

const (
	up direction = iota
	down
)

// run executes one migration script and records the result.
func (m *Migrator) run(ctx context.Context, mig Migration, dir direction) error {
	var (
		script string
		err    error
	)
	if dir == up {
		fmt.Fprintf(m.out, "Running migration %s\n", mig.FolderName())
		script, err = mig.UpSQL()
	} else {
		fmt.Fprintf(m.out, "Rolling back migration %s\n", mig.FolderName())
		script, err = mig.DownSQL()
	}
	if err != nil {
		return err
	}

	db, ok := m.client.DB.(*sql.DB)
	if !ok || !m.client.Backend.SupportsTransactionalDDL() {
		return m.apply(ctx, m.client, mig, script, dir)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := m.apply(ctx, m.client.WithTx(tx), mig, script, dir); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (m *Migrator) apply(ctx context.Context, c *Client, mig Migration, script string, dir direction) error {
	if err := c.RunSqlScript(ctx, script); err != nil {
		return fmt.Errorf("migration %s failed: %w", mig.FolderName(), err)
	}
	if dir == up {
		return c.MarkApplied(ctx, mig.Version)
	}
	return c.MarkReverted(ctx, mig.Version)
}
