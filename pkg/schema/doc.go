// Package schema renders a snapshot of the database schema.
//
// The catalog of the connected database is introspected, filtered by the
// [print_schema] settings of dbmig.toml and written as deterministic SQL DDL.
// An optional patch file is applied to the rendered text, so hand edits to
// the committed snapshot survive regeneration.
package schema
