// Package migrations is the migration-execution service used by dbmig.
//
// A migrations directory holds one folder per migration, named
// <version>_<name>, each containing an up.sql and a down.sql script:
//
//	migrations/
//	    20240101120000_create_users/
//	        up.sql
//	        down.sql
//
// Versions are compared as strings, so they must be fixed-width. Applied
// versions are recorded in the __dbmig_schema_migrations table.
//
// A thin dialect layer (PostgreSQL, SQLite and MySQL) supplies the SQL that
// differs between backends. [Backend.SupportsTransactionalDDL] tells callers
// whether a group of migration steps can be wrapped in one transaction.
//
//	conn := migrations.NewConn(db, migrations.Postgres, os.Stdout)
//	m, _ := conn.Migrator()
//	m.ApplyPending(ctx, "migrations")
package migrations
