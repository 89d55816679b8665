package orchestrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bcomnes/dbmig/pkg/config"
	"github.com/bcomnes/dbmig/pkg/dberrors"
)

const (
	defaultMigrationsDir = "migrations"
	legacyKeepFile       = ".gitkeep"
	keepFile             = ".keep"
)

// projectMarkers are searched for in order, each over the full path to the root.
var projectMarkers = []string{config.FileName, "go.mod"}

// DirFinder is the fallback search for a migrations directory, starting at a
// directory and walking upward. migrations.FindMigrationsDir implements it.
type DirFinder func(start string) (string, error)

// LocateMigrationsDir resolves the migrations directory. Explicit
// --migration-dir values win over MIGRATION_DIRECTORY, which wins over the
// config file. When none is set, finder searches upward from the working
// directory.
func LocateMigrationsDir(inv Invocation, finder DirFinder) (string, error) {
	logger := inv.logger()

	candidates := make([]string, 0, len(inv.MigrationDirs)+2)
	candidates = append(candidates, inv.MigrationDirs...)
	candidates = append(candidates, inv.EnvMigrationDir, inv.Config.MigrationsDir())

	if dir := firstNonEmpty(candidates...); dir != "" {
		path := inv.abs(dir)
		logger.Debug("using configured migrations directory", "dir", path)
		removeLegacyKeepFile(inv, path)
		return path, nil
	}

	logger.Debug("searching for migrations directory", "start", inv.WorkDir)
	return finder(inv.WorkDir)
}

// ResolveMigrationsDir locates the migrations directory and requires it to exist.
func ResolveMigrationsDir(inv Invocation, finder DirFinder) (string, error) {
	dir, err := LocateMigrationsDir(inv, finder)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", &dberrors.DirectoryNotFoundError{Path: dir}
	}
	return dir, nil
}

// EnsureMigrationsDir locates the migrations directory, falling back to
// <project-root>/migrations, and creates it when missing.
func EnsureMigrationsDir(inv Invocation, finder DirFinder) (string, error) {
	dir, err := LocateMigrationsDir(inv, finder)
	if errors.Is(err, dberrors.ErrDirectoryNotFound) {
		root, rootErr := FindProjectRoot(inv.WorkDir)
		if rootErr != nil {
			return "", rootErr
		}
		dir = filepath.Join(root, defaultMigrationsDir)
	} else if err != nil {
		return "", err
	}

	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	fmt.Fprintf(inv.out(), "Creating migrations directory at: %s\n", dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, keepFile), nil, 0o644); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", keepFile, err)
	}
	return dir, nil
}

// FindProjectRoot searches upward from start for dbmig.toml, then for go.mod.
func FindProjectRoot(start string) (string, error) {
	for _, marker := range projectMarkers {
		if root, ok := searchUpward(start, marker); ok {
			return root, nil
		}
	}
	return "", &dberrors.ProjectRootNotFoundError{Path: start}
}

func searchUpward(start, name string) (string, bool) {
	dir := filepath.Clean(start)
	for {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// removeLegacyKeepFile deletes a .gitkeep file left by older project
// layouts. Anything other than a regular file is left alone. Failures are
// logged and otherwise ignored.
func removeLegacyKeepFile(inv Invocation, dir string) {
	path := filepath.Join(dir, legacyKeepFile)
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	if err := os.Remove(path); err != nil {
		inv.logger().Warn("failed to remove legacy file", "path", path, "err", err)
		return
	}
	inv.logger().Debug("removed legacy file", "path", path)
}
