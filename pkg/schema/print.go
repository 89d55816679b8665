package schema

import (
	"bytes"
	"context"
	"database/sql"
	"io"

	"github.com/bcomnes/dbmig/pkg/config"
	"github.com/bcomnes/dbmig/pkg/database"
	"github.com/bcomnes/dbmig/pkg/migrations"
)

// Print introspects db, filters and renders the tables, applies the patch
// file if one is configured and writes the result to w.
func Print(ctx context.Context, db *sql.DB, backend migrations.Backend, cfg config.PrintSchema, w io.Writer) error {
	tables, err := Introspect(ctx, db, backend, cfg.Schema)
	if err != nil {
		return err
	}
	tables = FilterTables(tables, cfg.Filter)

	var buf bytes.Buffer
	if err := Render(&buf, tables, cfg); err != nil {
		return err
	}

	out := buf.Bytes()
	if cfg.PatchFile != "" {
		if out, err = ApplyPatch(out, cfg.PatchFile); err != nil {
			return err
		}
	}
	_, err = w.Write(out)
	return err
}

// Renderer renders the schema of the database named by a URL.
type Renderer struct{}

// RenderSchema connects to databaseURL and returns the rendered schema.
func (Renderer) RenderSchema(ctx context.Context, databaseURL string, cfg config.PrintSchema) ([]byte, error) {
	db, backend, err := database.Open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var buf bytes.Buffer
	if err := Print(ctx, db, backend, cfg, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
