// Package dberrors defines the error kinds shared by the dbmig packages.
package dberrors

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectoryNotFound indicates that no migrations directory could be resolved.
	ErrDirectoryNotFound = errors.New("migrations directory not found")

	// ErrProjectRootNotFound indicates that no project marker file was found
	// between the start directory and the filesystem root.
	ErrProjectRootNotFound = errors.New("project root not found")

	// ErrSchemaOutOfSync indicates that the rendered schema differs from the
	// committed schema file while running in locked mode.
	ErrSchemaOutOfSync = errors.New("schema file out of sync")

	// ErrUnrecognizedMigrationFormat indicates an unsupported migration format.
	ErrUnrecognizedMigrationFormat = errors.New("unrecognized migration format")

	// ErrNoMigrationRun indicates that a revert was requested but nothing is applied.
	ErrNoMigrationRun = errors.New("no migrations have been run")

	// ErrUnknownMigrationVersion indicates a version with no matching migration folder.
	ErrUnknownMigrationVersion = errors.New("unknown migration version")

	// ErrMigrationFolderExists indicates that a generated migration folder already exists.
	ErrMigrationFolderExists = errors.New("migration folder already exists")

	// ErrMissingDatabaseURL indicates that no connection string was supplied.
	ErrMissingDatabaseURL = errors.New("database url not provided")
)

// DirectoryNotFoundError reports the path that failed to resolve to a migrations directory.
type DirectoryNotFoundError struct {
	Path string
}

func (e *DirectoryNotFoundError) Error() string {
	if e.Path == "" {
		return "Unable to find migrations directory in this directory or any parent directories."
	}

	return fmt.Sprintf("Unable to find migrations directory at %s.", e.Path)
}

func (*DirectoryNotFoundError) Is(target error) bool { return target == ErrDirectoryNotFound }

// ProjectRootNotFoundError reports the directory the project root search started from.
type ProjectRootNotFoundError struct {
	Path string
}

func (e *ProjectRootNotFoundError) Error() string {
	return fmt.Sprintf("Unable to find dbmig.toml or go.mod in %s or any parent directories.", e.Path)
}

func (*ProjectRootNotFoundError) Is(target error) bool { return target == ErrProjectRootNotFound }

// SchemaOutOfSyncError names the schema file that would have changed.
type SchemaOutOfSyncError struct {
	Path string
}

func (e *SchemaOutOfSyncError) Error() string {
	return fmt.Sprintf("Command would result in changes to %s. Rerun the command locally, and commit the changes.", e.Path)
}

func (*SchemaOutOfSyncError) Is(target error) bool { return target == ErrSchemaOutOfSync }
