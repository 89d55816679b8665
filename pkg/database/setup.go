package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bcomnes/dbmig/pkg/dberrors"
	"github.com/bcomnes/dbmig/pkg/migrations"
)

// Setup creates the database when it does not exist. When the version table
// is missing it is created and every pending migration in dir is applied.
func Setup(ctx context.Context, databaseURL, dir string, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if err := createIfMissing(ctx, databaseURL, out); err != nil {
		return err
	}

	conn, err := Connect(ctx, databaseURL, out)
	if err != nil {
		return err
	}
	defer conn.Close()

	m, err := conn.Migrator()
	if err != nil {
		return err
	}
	client, err := migrations.NewClient(conn.Backend, conn.DB)
	if err != nil {
		return err
	}
	exists, err := client.HasVersionTable(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for version table: %w", err)
	}
	if exists {
		return nil
	}
	_, err = m.ApplyPending(ctx, dir)
	return err
}

// Reset drops the database and sets it up again.
func Reset(ctx context.Context, databaseURL, dir string, out io.Writer) error {
	if err := Drop(ctx, databaseURL, out); err != nil {
		return err
	}
	return Setup(ctx, databaseURL, dir, out)
}

// Drop removes the database if it exists.
func Drop(ctx context.Context, databaseURL string, out io.Writer) error {
	if databaseURL == "" {
		return dberrors.ErrMissingDatabaseURL
	}
	if out == nil {
		out = io.Discard
	}

	switch backend := BackendFromURL(databaseURL); backend {
	case migrations.Postgres:
		return dropPostgres(ctx, databaseURL, out)
	case migrations.MySQL:
		return dropMysql(ctx, databaseURL, out)
	default:
		return dropSqlite(databaseURL, out)
	}
}

func createIfMissing(ctx context.Context, databaseURL string, out io.Writer) error {
	if databaseURL == "" {
		return dberrors.ErrMissingDatabaseURL
	}

	switch backend := BackendFromURL(databaseURL); backend {
	case migrations.Postgres:
		return createPostgres(ctx, databaseURL, out)
	case migrations.MySQL:
		return createMysql(ctx, databaseURL, out)
	default:
		return createSqlite(databaseURL, out)
	}
}

// postgres

func createPostgres(ctx context.Context, databaseURL string, out io.Writer) error {
	name, maintenanceURL, err := postgresTarget(databaseURL)
	if err != nil {
		return err
	}
	return withServer(ctx, migrations.Postgres, maintenanceURL, func(db *sql.DB) error {
		exists, err := rowExists(ctx, db, `SELECT 1 FROM pg_database WHERE datname = $1`, name)
		if err != nil || exists {
			return err
		}
		fmt.Fprintf(out, "Creating database: %s\n", name)
		_, err = db.ExecContext(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize())
		return err
	})
}

func dropPostgres(ctx context.Context, databaseURL string, out io.Writer) error {
	name, maintenanceURL, err := postgresTarget(databaseURL)
	if err != nil {
		return err
	}
	return withServer(ctx, migrations.Postgres, maintenanceURL, func(db *sql.DB) error {
		exists, err := rowExists(ctx, db, `SELECT 1 FROM pg_database WHERE datname = $1`, name)
		if err != nil || !exists {
			return err
		}
		fmt.Fprintf(out, "Dropping database: %s\n", name)
		_, err = db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize())
		return err
	})
}

// mysql

func createMysql(ctx context.Context, databaseURL string, out io.Writer) error {
	cfg, err := mysqlConfig(databaseURL)
	if err != nil {
		return err
	}
	name := cfg.DBName
	if name == "" {
		return fmt.Errorf("mysql url does not name a database")
	}
	cfg.DBName = ""
	return withServer(ctx, migrations.MySQL, cfg.FormatDSN(), func(db *sql.DB) error {
		exists, err := rowExists(ctx, db, `SELECT 1 FROM information_schema.schemata WHERE schema_name = ?`, name)
		if err != nil || exists {
			return err
		}
		fmt.Fprintf(out, "Creating database: %s\n", name)
		_, err = db.ExecContext(ctx, "CREATE DATABASE "+quoteMysql(name))
		return err
	})
}

func dropMysql(ctx context.Context, databaseURL string, out io.Writer) error {
	cfg, err := mysqlConfig(databaseURL)
	if err != nil {
		return err
	}
	name := cfg.DBName
	if name == "" {
		return fmt.Errorf("mysql url does not name a database")
	}
	cfg.DBName = ""
	return withServer(ctx, migrations.MySQL, cfg.FormatDSN(), func(db *sql.DB) error {
		exists, err := rowExists(ctx, db, `SELECT 1 FROM information_schema.schemata WHERE schema_name = ?`, name)
		if err != nil || !exists {
			return err
		}
		fmt.Fprintf(out, "Dropping database: %s\n", name)
		_, err = db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+quoteMysql(name))
		return err
	})
}

func quoteMysql(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// sqlite

func createSqlite(databaseURL string, out io.Writer) error {
	path := sqlitePath(databaseURL)
	if path == memoryDatabase {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Fprintf(out, "Creating database: %s\n", path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", path, err)
	}
	return f.Close()
}

func dropSqlite(databaseURL string, out io.Writer) error {
	path := sqlitePath(databaseURL)
	if path == memoryDatabase {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	fmt.Fprintf(out, "Dropping database: %s\n", path)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to drop database %s: %w", path, err)
	}
	return nil
}

// withServer opens a connection to a server-level DSN and calls f with it.
func withServer(ctx context.Context, backend migrations.Backend, dsn string, f func(db *sql.DB) error) error {
	db, err := sql.Open(backend.DriverName(), dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s server connection: %w", backend, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s server: %w", backend, err)
	}
	return f(db)
}

func rowExists(ctx context.Context, db *sql.DB, query string, args ...any) (bool, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	found := rows.Next()
	return found, rows.Err()
}
