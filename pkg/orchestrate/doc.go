// Package orchestrate coordinates the migration workflow of a single dbmig
// command.
//
// It resolves the migrations directory from an ordered cascade of sources,
// allocates versions for new migrations, keeps the committed schema file in
// sync with the database and composes revert and reapply into redo. Every
// operation takes an explicitly built Invocation and returns its errors; the
// package never reads the environment or exits the process.
package orchestrate
