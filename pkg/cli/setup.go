package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bcomnes/dbmig/pkg/config"
	"github.com/bcomnes/dbmig/pkg/database"
	"github.com/bcomnes/dbmig/pkg/dberrors"
	"github.com/bcomnes/dbmig/pkg/migrations"
	"github.com/bcomnes/dbmig/pkg/orchestrate"
	"github.com/bcomnes/dbmig/pkg/schema"
)

func newCmdSetup(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create " + config.FileName + ", the migrations directory and the database",
		Long: `Creates a default ` + config.FileName + ` when none exists, creates the
migrations directory, creates the database and runs all migrations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			path, _ := o.configPath(workDir)
			created, err := config.WriteDefault(path)
			if err != nil {
				return err
			}
			if created {
				o.logger.Debug("created config file", "path", path)
			}

			// the invocation reads the config written above
			inv, err := o.invocation(cmd)
			if err != nil {
				return err
			}
			dir, err := orchestrate.EnsureMigrationsDir(inv, migrations.FindMigrationsDir)
			if err != nil {
				return err
			}
			if inv.DatabaseURL == "" {
				return dberrors.ErrMissingDatabaseURL
			}
			if err := database.Setup(cmd.Context(), inv.DatabaseURL, dir, inv.Out); err != nil {
				return err
			}
			return orchestrate.SyncSchema(cmd.Context(), inv, schema.Renderer{})
		},
	}
	addMigrationFlags(cmd.Flags())

	return cmd
}
