package migrations

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bcomnes/dbmig/pkg/dberrors"
)

const (
	upFile   = "up.sql"
	downFile = "down.sql"
)

// Migration is a single migration folder named <version>_<name>.
type Migration struct {
	// Version is the folder name up to the first underscore.
	Version string

	// Name is the rest of the folder name. It may be empty.
	Name string

	// Dir is the path to the migration folder.
	Dir string
}

// FolderName returns the base name of the migration folder.
func (m Migration) FolderName() string {
	return filepath.Base(m.Dir)
}

// UpSQL reads the migration's up.sql.
func (m Migration) UpSQL() (string, error) {
	return readScript(filepath.Join(m.Dir, upFile))
}

// DownSQL reads the migration's down.sql.
func (m Migration) DownSQL() (string, error) {
	return readScript(filepath.Join(m.Dir, downFile))
}

func readScript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// sortMigrationsAsc sorts migrations by version. Versions compare as strings.
func sortMigrationsAsc(migs []Migration) {
	sort.Slice(migs, func(i, j int) bool {
		return migs[i].Version < migs[j].Version
	})
}

// parseFolderName splits a migration folder name into version and name.
func parseFolderName(folder string) (version, name string) {
	version, name, _ = strings.Cut(folder, "_")
	return version, name
}

// Discover scans dir for migration folders and returns them sorted by version.
// Hidden entries and plain files are ignored.
func Discover(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &dberrors.DirectoryNotFoundError{Path: dir}
		}
		return nil, fmt.Errorf("failed to scan migrations directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(path, upFile)); err != nil {
			return nil, fmt.Errorf("%w: %s has no %s", dberrors.ErrUnrecognizedMigrationFormat, path, upFile)
		}

		version, name := parseFolderName(entry.Name())
		if prev, exists := seen[version]; exists {
			return nil, fmt.Errorf("duplicate migration for version %s: %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		migrations = append(migrations, Migration{
			Version: version,
			Name:    name,
			Dir:     path,
		})
	}

	sortMigrationsAsc(migrations)
	return migrations, nil
}

// FindMigrationsDir walks upward from start looking for a directory named
// "migrations".
func FindMigrationsDir(start string) (string, error) {
	dir := start
	for {
		candidate := filepath.Join(dir, "migrations")
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &dberrors.DirectoryNotFoundError{}
		}
		dir = parent
	}
}
