package orchestrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bcomnes/dbmig/pkg/config"
	"github.com/bcomnes/dbmig/pkg/dberrors"
)

// SchemaRenderer renders the schema of a database. schema.Renderer implements it.
type SchemaRenderer interface {
	RenderSchema(ctx context.Context, databaseURL string, cfg config.PrintSchema) ([]byte, error)
}

// SyncSchema keeps print_schema.file in step with the database. It does
// nothing when no file is configured. In locked mode the file is compared
// with a fresh rendering and never written.
func SyncSchema(ctx context.Context, inv Invocation, renderer SchemaRenderer) error {
	if inv.Config == nil || inv.Config.PrintSchema.File == "" {
		return nil
	}
	cfg := inv.Config.PrintSchema
	path := inv.abs(cfg.File)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create schema file directory: %w", err)
	}

	rendered, err := renderer.RenderSchema(ctx, inv.DatabaseURL, cfg)
	if err != nil {
		return fmt.Errorf("failed to render schema: %w", err)
	}

	if inv.LockedSchema {
		existing, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		if err != nil || !bytes.Equal(existing, rendered) {
			return &dberrors.SchemaOutOfSyncError{Path: RelativePath(path, inv.WorkDir)}
		}
		return nil
	}

	inv.logger().Debug("writing schema file", "path", path)
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	return nil
}
