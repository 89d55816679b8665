package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bcomnes/dbmig/pkg/migrations"
)

const defaultPostgresSchema = "public"

// Introspect reads the tables of the connected database. The migration
// version table and backend-internal tables are never returned.
// An empty schemaName selects the backend default.
func Introspect(ctx context.Context, db *sql.DB, backend migrations.Backend, schemaName string) ([]Table, error) {
	var (
		tables []Table
		err    error
	)
	switch backend {
	case migrations.Postgres:
		tables, err = introspectPostgres(ctx, db, schemaName)
	case migrations.MySQL:
		tables, err = introspectMysql(ctx, db, schemaName)
	case migrations.SQLite:
		tables, err = introspectSqlite(ctx, db)
	default:
		return nil, fmt.Errorf("backend '%s' not supported", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to introspect %s schema: %w", backend, err)
	}
	sortTables(tables)
	return tables, nil
}

func introspectSqlite(ctx context.Context, db *sql.DB) ([]Table, error) {
	names, err := queryStrings(ctx, db, `
      SELECT name
      FROM sqlite_master
      WHERE type = 'table'
        AND name NOT LIKE 'sqlite_%'
        AND name <> ?
      ORDER BY name;`, migrations.SchemaTable)
	if err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		rows, err := db.QueryContext(ctx, `
          SELECT name, type, "notnull", pk
          FROM pragma_table_info(?)
          ORDER BY cid;`, name)
		if err != nil {
			return nil, err
		}
		t := Table{Name: name}
		for rows.Next() {
			var (
				c       Column
				notNull int
				pk      int
			)
			if err := rows.Scan(&c.Name, &c.Type, &notNull, &pk); err != nil {
				rows.Close()
				return nil, err
			}
			c.PrimaryKey = pk > 0
			c.Nullable = notNull == 0 && !c.PrimaryKey
			t.Columns = append(t.Columns, c)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
		tables = append(tables, t)
	}
	return tables, nil
}

func introspectPostgres(ctx context.Context, db *sql.DB, schemaName string) ([]Table, error) {
	if schemaName == "" {
		schemaName = defaultPostgresSchema
	}

	rows, err := db.QueryContext(ctx, `
      SELECT c.relname, COALESCE(obj_description(c.oid, 'pg_class'), '')
      FROM pg_class c
      JOIN pg_namespace n ON n.oid = c.relnamespace
      WHERE n.nspname = $1
        AND c.relkind IN ('r', 'p')
        AND c.relname <> $2
      ORDER BY c.relname;`, schemaName, migrations.SchemaTable)
	if err != nil {
		return nil, err
	}
	var tables []Table
	for rows.Next() {
		t := Table{Schema: schemaName}
		if err := rows.Scan(&t.Name, &t.Comment); err != nil {
			rows.Close()
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range tables {
		cols, err := db.QueryContext(ctx, `
          SELECT a.attname,
                 format_type(a.atttypid, a.atttypmod),
                 NOT a.attnotnull,
                 COALESCE(a.attnum = ANY(i.indkey), false),
                 COALESCE(col_description(c.oid, a.attnum), '')
          FROM pg_attribute a
          JOIN pg_class c ON c.oid = a.attrelid
          JOIN pg_namespace n ON n.oid = c.relnamespace
          LEFT JOIN pg_index i ON i.indrelid = c.oid AND i.indisprimary
          WHERE n.nspname = $1
            AND c.relname = $2
            AND a.attnum > 0
            AND NOT a.attisdropped
          ORDER BY a.attnum;`, schemaName, tables[i].Name)
		if err != nil {
			return nil, err
		}
		for cols.Next() {
			var c Column
			if err := cols.Scan(&c.Name, &c.Type, &c.Nullable, &c.PrimaryKey, &c.Comment); err != nil {
				cols.Close()
				return nil, err
			}
			tables[i].Columns = append(tables[i].Columns, c)
		}
		if err := cols.Err(); err != nil {
			cols.Close()
			return nil, err
		}
		cols.Close()
	}
	return tables, nil
}

func introspectMysql(ctx context.Context, db *sql.DB, schemaName string) ([]Table, error) {
	if schemaName == "" {
		if err := db.QueryRowContext(ctx, `SELECT DATABASE()`).Scan(&schemaName); err != nil {
			return nil, err
		}
	}

	rows, err := db.QueryContext(ctx, `
      SELECT table_name, table_comment
      FROM information_schema.tables
      WHERE table_schema = ?
        AND table_type = 'BASE TABLE'
        AND table_name <> ?
      ORDER BY table_name;`, schemaName, migrations.SchemaTable)
	if err != nil {
		return nil, err
	}
	var tables []Table
	for rows.Next() {
		t := Table{Schema: schemaName}
		if err := rows.Scan(&t.Name, &t.Comment); err != nil {
			rows.Close()
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range tables {
		cols, err := db.QueryContext(ctx, `
          SELECT column_name, column_type, is_nullable = 'YES', column_key = 'PRI', column_comment
          FROM information_schema.columns
          WHERE table_schema = ?
            AND table_name = ?
          ORDER BY ordinal_position;`, schemaName, tables[i].Name)
		if err != nil {
			return nil, err
		}
		for cols.Next() {
			var c Column
			if err := cols.Scan(&c.Name, &c.Type, &c.Nullable, &c.PrimaryKey, &c.Comment); err != nil {
				cols.Close()
				return nil, err
			}
			tables[i].Columns = append(tables[i].Columns, c)
		}
		if err := cols.Err(); err != nil {
			cols.Close()
			return nil, err
		}
		cols.Close()
	}
	return tables, nil
}

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
