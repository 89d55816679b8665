package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/bcomnes/dbmig/pkg/dberrors"
	"github.com/bcomnes/dbmig/pkg/migrations"
)

// Open opens and pings the database named by databaseURL.
func Open(ctx context.Context, databaseURL string) (*sql.DB, migrations.Backend, error) {
	if databaseURL == "" {
		return nil, 0, dberrors.ErrMissingDatabaseURL
	}
	backend := BackendFromURL(databaseURL)

	db, err := openBackend(ctx, backend, databaseURL)
	if err != nil {
		return nil, 0, err
	}
	return db, backend, nil
}

func openBackend(ctx context.Context, backend migrations.Backend, databaseURL string) (*sql.DB, error) {
	dsn, err := dataSource(backend, databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(backend.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == migrations.SQLite && dsn == memoryDatabase {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}
	return db, nil
}

// Connect opens databaseURL and wraps it in a migrations.Conn that writes
// progress lines to out.
func Connect(ctx context.Context, databaseURL string, out io.Writer) (*migrations.Conn, error) {
	db, backend, err := Open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return migrations.NewConn(db, backend, out), nil
}
