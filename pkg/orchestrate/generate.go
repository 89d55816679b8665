package orchestrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bcomnes/dbmig/pkg/dberrors"
	"github.com/bcomnes/dbmig/pkg/migrations"
)

// GenerateRequest describes a migration to scaffold.
type GenerateRequest struct {
	Name string
	// Version is used verbatim when set.
	Version string
	// Format defaults to migrations.FormatSQL.
	Format string
	Now    time.Time
}

// GenerateMigration creates <migrations-dir>/<version>_<name> and fills it
// using the generator registered for the requested format. It returns the
// path of the new folder.
func GenerateMigration(inv Invocation, finder DirFinder, req GenerateRequest) (string, error) {
	format := req.Format
	if format == "" {
		format = migrations.FormatSQL
	}
	gen, ok := migrations.LookupGenerator(format)
	if !ok {
		return "", fmt.Errorf("%w: %s", dberrors.ErrUnrecognizedMigrationFormat, format)
	}

	dir, err := ResolveMigrationsDir(inv, finder)
	if err != nil {
		return "", err
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	folder := filepath.Join(dir, MigrationFolderName(AllocateVersion(req.Version, now), req.Name))

	if err := os.Mkdir(folder, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", dberrors.ErrMigrationFolderExists, RelativePath(folder, inv.WorkDir))
		}
		return "", fmt.Errorf("failed to create migration folder: %w", err)
	}

	created, err := gen(folder)
	for _, path := range created {
		fmt.Fprintf(inv.out(), "Creating %s\n", RelativePath(path, inv.WorkDir))
	}
	if err != nil {
		return "", err
	}
	return folder, nil
}
