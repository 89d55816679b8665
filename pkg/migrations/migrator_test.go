package migrations_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcomnes/dbmig/pkg/dberrors"
	"github.com/bcomnes/dbmig/pkg/migrations"

	gocmp "github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
)

// writeMigration creates <dir>/<folder>/up.sql and down.sql.
func writeMigration(t *testing.T, dir, folder, upSQL, downSQL string) {
	t.Helper()

	path := filepath.Join(dir, folder)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create migration folder: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "up.sql"), []byte(upSQL), 0o644); err != nil {
		t.Fatalf("failed to write up.sql: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "down.sql"), []byte(downSQL), 0o644); err != nil {
		t.Fatalf("failed to write down.sql: %v", err)
	}
}

func newTestMigrations(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "migrations")
	writeMigration(t, dir, "20240101000000_create_users",
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);",
		"DROP TABLE users;")
	writeMigration(t, dir, "20240102000000_create_posts",
		"CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT NOT NULL);",
		"DROP TABLE posts;")
	writeMigration(t, dir, "20240103000000_add_body",
		"ALTER TABLE posts ADD COLUMN body TEXT;",
		"ALTER TABLE posts DROP COLUMN body;")

	return dir
}

func openSqlite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite3 db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return n > 0
}

func TestSqliteMigrations(t *testing.T) {
	ctx := context.Background()
	db := openSqlite(t)
	dir := newTestMigrations(t)

	var out bytes.Buffer
	conn := migrations.NewConn(db, migrations.SQLite, &out)
	m, err := conn.Migrator()
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}

	t.Run("Pending before run", func(t *testing.T) {
		pending, err := m.AnyPending(ctx, dir)
		if err != nil {
			t.Fatalf("AnyPending failed: %v", err)
		}
		if !pending {
			t.Fatal("expected pending migrations")
		}
		if tableExists(t, db, migrations.SchemaTable) {
			t.Fatal("AnyPending must not create the version table")
		}
	})

	t.Run("Apply pending", func(t *testing.T) {
		applied, err := m.ApplyPending(ctx, dir)
		if err != nil {
			t.Fatalf("ApplyPending failed: %v", err)
		}
		want := []string{"20240101000000", "20240102000000", "20240103000000"}
		if diff := gocmp.Diff(want, applied); diff != "" {
			t.Fatalf("applied versions mismatch (-want +got):\n%s", diff)
		}
		if !strings.Contains(out.String(), "Running migration 20240102000000_create_posts") {
			t.Errorf("expected progress output, got:\n%s", out.String())
		}
		if !tableExists(t, db, "posts") {
			t.Fatal("expected posts table to exist")
		}
	})

	t.Run("Nothing pending after run", func(t *testing.T) {
		applied, err := m.ApplyPending(ctx, dir)
		if err != nil {
			t.Fatalf("ApplyPending failed: %v", err)
		}
		if len(applied) != 0 {
			t.Fatalf("expected no migrations, got %v", applied)
		}
		pending, err := m.AnyPending(ctx, dir)
		if err != nil || pending {
			t.Fatalf("expected nothing pending, got pending=%v err=%v", pending, err)
		}
	})

	t.Run("Revert latest", func(t *testing.T) {
		out.Reset()
		version, err := m.RevertLatest(ctx, dir)
		if err != nil {
			t.Fatalf("RevertLatest failed: %v", err)
		}
		if version != "20240103000000" {
			t.Fatalf("expected latest version to be reverted, got %s", version)
		}
		if !strings.Contains(out.String(), "Rolling back migration 20240103000000_add_body") {
			t.Errorf("expected rollback output, got:\n%s", out.String())
		}
	})

	t.Run("List marked", func(t *testing.T) {
		marked, err := m.ListMarked(ctx, dir)
		if err != nil {
			t.Fatalf("ListMarked failed: %v", err)
		}
		var got []string
		for _, mk := range marked {
			flag := " "
			if mk.Applied {
				flag = "X"
			}
			got = append(got, flag+" "+mk.Migration.FolderName())
		}
		want := []string{
			"X 20240101000000_create_users",
			"X 20240102000000_create_posts",
			"  20240103000000_add_body",
		}
		if diff := gocmp.Diff(want, got); diff != "" {
			t.Fatalf("marked mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Apply by version", func(t *testing.T) {
		if err := m.ApplyByVersion(ctx, dir, "20240103000000"); err != nil {
			t.Fatalf("ApplyByVersion failed: %v", err)
		}
		pending, err := m.AnyPending(ctx, dir)
		if err != nil || pending {
			t.Fatalf("expected nothing pending, got pending=%v err=%v", pending, err)
		}
	})

	t.Run("Apply unknown version", func(t *testing.T) {
		err := m.ApplyByVersion(ctx, dir, "19990101000000")
		if !errors.Is(err, dberrors.ErrUnknownMigrationVersion) {
			t.Fatalf("expected ErrUnknownMigrationVersion, got %v", err)
		}
	})
}

func TestRevertLatest_NothingApplied(t *testing.T) {
	db := openSqlite(t)
	dir := newTestMigrations(t)

	m, err := migrations.NewConn(db, migrations.SQLite, nil).Migrator()
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	_, err = m.RevertLatest(context.Background(), dir)
	if !errors.Is(err, dberrors.ErrNoMigrationRun) {
		t.Fatalf("expected ErrNoMigrationRun, got %v", err)
	}
}

func TestMigrationFail(t *testing.T) {
	ctx := context.Background()
	db := openSqlite(t)
	dir := filepath.Join(t.TempDir(), "migrations")
	writeMigration(t, dir, "001_widgets",
		"CREATE TABLE widgets (name TEXT);\nINSERT INTO widgets (name) VALUES ('a');\nINSERT INTO nope VALUES (1);",
		"DROP TABLE widgets;")

	m, err := migrations.NewConn(db, migrations.SQLite, nil).Migrator()
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	if _, err := m.ApplyPending(ctx, dir); err == nil {
		t.Fatal("expected migration failure error, got none")
	}

	// The failed migration ran in its own transaction.
	if tableExists(t, db, "widgets") {
		t.Fatal("expected widgets table to be rolled back")
	}
	marked, err := m.ListMarked(ctx, dir)
	if err != nil {
		t.Fatalf("ListMarked failed: %v", err)
	}
	if len(marked) != 1 || marked[0].Applied {
		t.Fatalf("expected one unapplied migration, got %+v", marked)
	}
}

func TestConnTransaction_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := openSqlite(t)
	dir := newTestMigrations(t)
	conn := migrations.NewConn(db, migrations.SQLite, nil)

	boom := errors.New("boom")
	err := conn.Transaction(ctx, func(m *migrations.Migrator) error {
		if _, err := m.ApplyPending(ctx, dir); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error to be returned, got %v", err)
	}
	if tableExists(t, db, "users") {
		t.Fatal("expected users table to be rolled back")
	}
}
