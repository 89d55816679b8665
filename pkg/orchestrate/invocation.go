package orchestrate

import (
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/bcomnes/dbmig/pkg/config"
)

// Invocation is everything a command knows about how it was invoked.
// It is built once by the CLI and not modified afterwards.
type Invocation struct {
	// MigrationDirs holds --migration-dir values, innermost command first.
	MigrationDirs []string
	// EnvMigrationDir is the MIGRATION_DIRECTORY override.
	EnvMigrationDir string
	Config          *config.Config
	DatabaseURL     string
	LockedSchema    bool
	// WorkDir is the absolute working directory. Relative paths resolve against it.
	WorkDir string
	Logger  *log.Logger
	Out     io.Writer
}

func (inv Invocation) logger() *log.Logger {
	if inv.Logger == nil {
		return log.New(io.Discard)
	}
	return inv.Logger
}

func (inv Invocation) out() io.Writer {
	if inv.Out == nil {
		return io.Discard
	}
	return inv.Out
}

func (inv Invocation) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(inv.WorkDir, path)
}

// firstNonEmpty returns the first non-empty string in the provided list.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
