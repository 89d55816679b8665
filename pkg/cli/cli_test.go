package cli_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/bcomnes/dbmig/pkg/cli"
	"github.com/bcomnes/dbmig/pkg/config"
	"github.com/bcomnes/dbmig/pkg/dberrors"
)

const usersUp = "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL);"

// newTestProject creates a project directory with a go.mod and makes it the
// working directory for the rest of the test.
func newTestProject(t *testing.T) string {
	t.Helper()

	t.Setenv("DATABASE_URL", "")
	t.Setenv("MIGRATION_DIRECTORY", "")
	t.Setenv("DBMIG_CONFIG_FILE", "")
	color.NoColor = true

	work := t.TempDir()
	if err := os.WriteFile(filepath.Join(work, "go.mod"), []byte("module example.com/app\n"), 0o644); err != nil {
		t.Fatalf("failed to write go.mod: %v", err)
	}
	t.Chdir(work)

	return work
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := cli.NewDefaultDbmigCommand(&cli.IOStreams{Out: out, ErrOut: errOut}, args)
	err = cmd.Execute()

	return out.String(), errOut.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, errOut, err := run(t, args...)
	if err != nil {
		t.Fatalf("%s failed: %v\nstderr: %s", strings.Join(args, " "), err, errOut)
	}
	return out
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(b)
}

func TestSetupAndMigrationLifecycle(t *testing.T) {
	work := newTestProject(t)
	db := "--database-url=sqlite://app.db"

	out := mustRun(t, "setup", db)
	if !strings.Contains(out, "Creating migrations directory at: "+filepath.Join(work, "migrations")) {
		t.Errorf("expected migrations directory to be created, got:\n%s", out)
	}
	if !strings.Contains(out, "Creating database: app.db") {
		t.Errorf("expected database to be created, got:\n%s", out)
	}
	if got := readFile(t, filepath.Join(work, config.FileName)); got != string(config.DefaultFile) {
		t.Errorf("expected default config, got:\n%s", got)
	}
	schemaFile := filepath.Join(work, "db", "schema.sql")
	if got := readFile(t, schemaFile); got != "-- @generated automatically by dbmig. Do not edit by hand.\n" {
		t.Errorf("unexpected initial schema file:\n%s", got)
	}

	out = mustRun(t, "migration", "generate", "create_users", "--version", "20240101000000")
	wantOut := "Creating " + filepath.Join("migrations", "20240101000000_create_users", "up.sql") + "\n" +
		"Creating " + filepath.Join("migrations", "20240101000000_create_users", "down.sql") + "\n"
	if out != wantOut {
		t.Errorf("unexpected generate output:\n%s", out)
	}
	migDir := filepath.Join(work, "migrations", "20240101000000_create_users")
	if err := os.WriteFile(filepath.Join(migDir, "up.sql"), []byte(usersUp), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(migDir, "down.sql"), []byte("DROP TABLE users;"), 0o644); err != nil {
		t.Fatal(err)
	}

	if out := mustRun(t, "migration", "pending", db); out != "true\n" {
		t.Errorf("expected pending migrations, got %q", out)
	}

	out = mustRun(t, "migration", "run", db)
	if out != "Running migration 20240101000000_create_users\n" {
		t.Errorf("unexpected run output %q", out)
	}
	if got := readFile(t, schemaFile); !strings.Contains(got, "CREATE TABLE users (") {
		t.Errorf("expected schema file to be regenerated, got:\n%s", got)
	}

	out = mustRun(t, "migration", "list", db)
	if out != "Migrations:\n  [X] 20240101000000_create_users\n" {
		t.Errorf("unexpected list output %q", out)
	}
	if out := mustRun(t, "migration", "pending", db); out != "false\n" {
		t.Errorf("expected nothing pending, got %q", out)
	}

	out = mustRun(t, "migration", "redo", db)
	if out != "Rolling back migration 20240101000000_create_users\nRunning migration 20240101000000_create_users\n" {
		t.Errorf("unexpected redo output %q", out)
	}

	mustRun(t, "migration", "revert", db)
	out = mustRun(t, "migration", "list", db)
	if out != "Migrations:\n  [ ] 20240101000000_create_users\n" {
		t.Errorf("unexpected list output after revert %q", out)
	}
	if got := readFile(t, schemaFile); strings.Contains(got, "users") {
		t.Errorf("expected users table to be gone from schema file, got:\n%s", got)
	}
}

func TestMigrationRun_LockedSchema(t *testing.T) {
	work := newTestProject(t)
	db := "--database-url=sqlite://app.db"
	mustRun(t, "setup", db)

	schemaFile := filepath.Join(work, "db", "schema.sql")
	before := readFile(t, schemaFile)

	mig := filepath.Join(work, "migrations", "20240101000000_create_users")
	if err := os.MkdirAll(mig, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mig, "up.sql"), []byte(usersUp), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mig, "down.sql"), []byte("DROP TABLE users;"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := run(t, "migration", "--locked-schema", "run", db)
	if !errors.Is(err, dberrors.ErrSchemaOutOfSync) {
		t.Fatalf("expected ErrSchemaOutOfSync, got %v", err)
	}
	if !strings.Contains(err.Error(), filepath.Join("db", "schema.sql")) {
		t.Errorf("expected error to name the schema file, got %q", err.Error())
	}
	if got := readFile(t, schemaFile); got != before {
		t.Errorf("locked mode must not write the schema file, got:\n%s", got)
	}

	// Regenerate, after which the locked check passes.
	mustRun(t, "migration", "redo", db)
	mustRun(t, "migration", "redo", "--locked-schema", db)
}

func TestMigrationDirectoryCascade(t *testing.T) {
	work := newTestProject(t)
	db := "--database-url=sqlite://app.db"

	for _, dir := range []string{"flag-dir", "env-dir"} {
		mig := filepath.Join(work, dir, "001_"+strings.ReplaceAll(dir, "-", "_"))
		if err := os.MkdirAll(mig, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(mig, "up.sql"), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("MIGRATION_DIRECTORY", "env-dir")

	out := mustRun(t, "migration", "list", db)
	if !strings.Contains(out, "001_env_dir") {
		t.Errorf("expected env directory to be used, got:\n%s", out)
	}

	out = mustRun(t, "migration", "--migration-dir", "flag-dir", "list", db)
	if !strings.Contains(out, "001_flag_dir") {
		t.Errorf("expected flag directory to win over env, got:\n%s", out)
	}
}

func TestMissingMigrationsDirectory(t *testing.T) {
	newTestProject(t)

	_, _, err := run(t, "migration", "list", "--database-url=sqlite://app.db", "--migration-dir", "nope")
	if !errors.Is(err, dberrors.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
}

func TestGenerate_UnknownFormat(t *testing.T) {
	work := newTestProject(t)
	if err := os.Mkdir(filepath.Join(work, "migrations"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, _, err := run(t, "migration", "generate", "x", "--format", "barrel")
	if !errors.Is(err, dberrors.ErrUnrecognizedMigrationFormat) {
		t.Fatalf("expected ErrUnrecognizedMigrationFormat, got %v", err)
	}
}

func TestDatabaseResetAndDrop(t *testing.T) {
	work := newTestProject(t)
	t.Setenv("DATABASE_URL", "sqlite://app.db")
	mustRun(t, "setup")

	out := mustRun(t, "database", "reset")
	if !strings.Contains(out, "Dropping database: app.db") || !strings.Contains(out, "Creating database: app.db") {
		t.Errorf("unexpected reset output:\n%s", out)
	}

	mustRun(t, "database", "drop")
	if _, err := os.Stat(filepath.Join(work, "app.db")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected database file to be removed, got %v", err)
	}
}

func TestDatabaseSetup_MissingURL(t *testing.T) {
	work := newTestProject(t)
	if err := os.Mkdir(filepath.Join(work, "migrations"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, _, err := run(t, "database", "setup")
	if !errors.Is(err, dberrors.ErrMissingDatabaseURL) {
		t.Fatalf("expected ErrMissingDatabaseURL, got %v", err)
	}
}

func TestPrintSchema(t *testing.T) {
	newTestProject(t)
	db := "--database-url=sqlite://app.db"
	mustRun(t, "setup", db)
	if err := os.MkdirAll(filepath.Join("migrations", "001_tables"), 0o755); err != nil {
		t.Fatal(err)
	}
	tables := usersUp + "\nCREATE TABLE posts (id INTEGER PRIMARY KEY);"
	if err := os.WriteFile(filepath.Join("migrations", "001_tables", "up.sql"), []byte(tables), 0o644); err != nil {
		t.Fatal(err)
	}
	mustRun(t, "migration", "run", db)

	out := mustRun(t, "print-schema", db)
	if !strings.Contains(out, "CREATE TABLE posts") || !strings.Contains(out, "CREATE TABLE users") {
		t.Errorf("expected both tables, got:\n%s", out)
	}

	out = mustRun(t, "print-schema", "users", db)
	if strings.Contains(out, "posts") || !strings.Contains(out, "CREATE TABLE users") {
		t.Errorf("expected only users, got:\n%s", out)
	}

	out = mustRun(t, "print-schema", "-e", "users", "--import-types", "citext", db)
	if strings.Contains(out, "users") || !strings.Contains(out, "-- import: citext\n") {
		t.Errorf("expected posts with import header, got:\n%s", out)
	}

	out, errOut, err := run(t, "print-schema", "--blacklist", "users", db)
	if err != nil {
		t.Fatalf("print-schema --blacklist failed: %v", err)
	}
	if strings.Contains(out, "users") {
		t.Errorf("expected --blacklist to behave like --except-tables, got:\n%s", out)
	}
	if !strings.Contains(errOut, "deprecated") {
		t.Errorf("expected deprecation warning, got stderr %q", errOut)
	}

	if _, _, err := run(t, "print-schema", "--whitelist", "-e", "users", db); err == nil {
		t.Error("expected only and except to be rejected together")
	}
}

func TestCompletions(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out := mustRun(t, "completions", shell)
		if !strings.Contains(out, "dbmig") {
			t.Errorf("%s completion does not mention dbmig", shell)
		}
	}

	if _, _, err := run(t, "completions", "tcsh"); err == nil {
		t.Error("expected unsupported shell to be rejected")
	}

	out, errOut, err := run(t, "bash-completion")
	if err != nil {
		t.Fatalf("bash-completion failed: %v", err)
	}
	if !strings.Contains(out, "dbmig") || !strings.Contains(errOut, "deprecated") {
		t.Errorf("expected script and deprecation warning, stderr: %q", errOut)
	}
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	newTestProject(t)

	_, _, err := run(t, "migration", "list", "--config-file", "missing.toml", "--database-url=sqlite://app.db")
	if err == nil || !strings.Contains(err.Error(), "failed to load config") {
		t.Fatalf("expected config load error, got %v", err)
	}
}

func TestVerboseLogsLoadedConfig(t *testing.T) {
	newTestProject(t)
	mustRun(t, "setup", "--database-url=sqlite://app.db")

	_, errOut, err := run(t, "migration", "list", "-v", "--database-url=sqlite://app.db")
	if err != nil {
		t.Fatalf("migration list failed: %v", err)
	}
	if !strings.Contains(errOut, "loaded config") || !strings.Contains(errOut, config.FileName) {
		t.Errorf("expected debug log naming the config file, got %q", errOut)
	}
}
