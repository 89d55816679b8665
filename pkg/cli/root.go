// Package cli implements the dbmig command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bcomnes/dbmig/pkg/config"
	"github.com/bcomnes/dbmig/pkg/database"
	"github.com/bcomnes/dbmig/pkg/migrations"
	"github.com/bcomnes/dbmig/pkg/orchestrate"
)

const (
	flagDatabaseURL  = "database-url"
	flagConfigFile   = "config-file"
	flagVerbose      = "verbose"
	flagMigrationDir = "migration-dir"
	flagLockedSchema = "locked-schema"

	keyDatabaseURL  = "database_url"
	keyConfigFile   = "config_file"
	keyMigrationDir = "migration_directory"
)

// rootOptions holds the state shared by every command.
type rootOptions struct {
	streams *IOStreams
	v       *viper.Viper
	logger  *log.Logger
	verbose bool
}

// NewDefaultDbmigCommand builds the dbmig command tree. args replace
// os.Args[1:] when non-nil.
func NewDefaultDbmigCommand(streams *IOStreams, args []string) *cobra.Command {
	o := &rootOptions{
		streams: streams,
		v:       viper.New(),
		logger: log.NewWithOptions(streams.ErrOut, log.Options{
			Prefix: "dbmig",
			Level:  log.WarnLevel,
		}),
	}

	cmd := &cobra.Command{
		Use:   "dbmig",
		Short: "Manage database migrations and schema snapshots",
		Long: `dbmig applies, reverts and scaffolds SQL migrations for PostgreSQL,
SQLite and MySQL, and keeps a committed schema snapshot in sync with
the database.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if o.verbose {
				o.logger.SetLevel(log.DebugLevel)
			}
		},
	}
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)
	if args != nil {
		cmd.SetArgs(args)
	}

	flags := cmd.PersistentFlags()
	flags.String(flagDatabaseURL, "", "database connection URL (env DATABASE_URL)")
	flags.String(flagConfigFile, "", "path to "+config.FileName+" (env DBMIG_CONFIG_FILE)")
	flags.BoolVarP(&o.verbose, flagVerbose, "v", false, "enable debug logging")

	_ = o.v.BindPFlag(keyDatabaseURL, flags.Lookup(flagDatabaseURL))
	_ = o.v.BindEnv(keyDatabaseURL, "DATABASE_URL")
	_ = o.v.BindPFlag(keyConfigFile, flags.Lookup(flagConfigFile))
	_ = o.v.BindEnv(keyConfigFile, "DBMIG_CONFIG_FILE")
	_ = o.v.BindEnv(keyMigrationDir, "MIGRATION_DIRECTORY")

	cmd.AddCommand(newCmdMigration(o))
	cmd.AddCommand(newCmdDatabase(o))
	cmd.AddCommand(newCmdSetup(o))
	cmd.AddCommand(newCmdPrintSchema(o))
	cmd.AddCommand(newCmdCompletions(o))
	cmd.AddCommand(newCmdBashCompletion(o))

	return cmd
}

// addMigrationFlags registers --migration-dir and --locked-schema.
func addMigrationFlags(flags *pflag.FlagSet) {
	flags.String(flagMigrationDir, "", "directory holding the migrations (env MIGRATION_DIRECTORY)")
	flags.Bool(flagLockedSchema, false, "fail instead of updating print_schema.file when it is out of date")
}

// migrationDirs collects --migration-dir values from cmd and its parents,
// innermost first.
func migrationDirs(cmd *cobra.Command) []string {
	var dirs []string
	for c := cmd; c != nil; c = c.Parent() {
		for _, fs := range []*pflag.FlagSet{c.LocalNonPersistentFlags(), c.PersistentFlags()} {
			if f := fs.Lookup(flagMigrationDir); f != nil && f.Changed {
				dirs = append(dirs, f.Value.String())
				break
			}
		}
	}
	return dirs
}

// configPath picks the config file: --config-file, DBMIG_CONFIG_FILE, the
// project root, then the working directory. explicit reports whether the
// path was given by the user.
func (o *rootOptions) configPath(workDir string) (path string, explicit bool) {
	if p := o.v.GetString(keyConfigFile); p != "" {
		if !filepath.IsAbs(p) {
			p = filepath.Join(workDir, p)
		}
		return p, true
	}
	if root, err := orchestrate.FindProjectRoot(workDir); err == nil {
		return filepath.Join(root, config.FileName), false
	}
	return filepath.Join(workDir, config.FileName), false
}

func (o *rootOptions) loadConfig(workDir string) (*config.Config, error) {
	path, explicit := o.configPath(workDir)
	o.logger.Debug("loading config", "path", path, "explicit", explicit)

	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Path() != "" {
		o.logger.Debug("loaded config", "path", cfg.Path())
	}
	return cfg, nil
}

// invocation builds the immutable invocation for cmd.
func (o *rootOptions) invocation(cmd *cobra.Command) (orchestrate.Invocation, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return orchestrate.Invocation{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, err := o.loadConfig(workDir)
	if err != nil {
		return orchestrate.Invocation{}, err
	}

	// commands without the flag are never locked
	locked, _ := cmd.Flags().GetBool(flagLockedSchema)

	return orchestrate.Invocation{
		MigrationDirs:   migrationDirs(cmd),
		EnvMigrationDir: o.v.GetString(keyMigrationDir),
		Config:          cfg,
		DatabaseURL:     o.v.GetString(keyDatabaseURL),
		LockedSchema:    locked,
		WorkDir:         workDir,
		Logger:          o.logger,
		Out:             cmd.OutOrStdout(),
	}, nil
}

// withConn opens the invocation's database, calls f and closes the connection.
func (o *rootOptions) withConn(ctx context.Context, inv orchestrate.Invocation, f func(conn *migrations.Conn) error) error {
	o.logger.Debug("connecting", "backend", database.BackendFromURL(inv.DatabaseURL))

	conn, err := database.Connect(ctx, inv.DatabaseURL, inv.Out)
	if err != nil {
		return err
	}
	defer conn.Close()

	return f(conn)
}
