package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/bcomnes/dbmig/pkg/database"
	"github.com/bcomnes/dbmig/pkg/dberrors"
	"github.com/bcomnes/dbmig/pkg/migrations"
	"github.com/bcomnes/dbmig/pkg/orchestrate"
	"github.com/bcomnes/dbmig/pkg/schema"
)

func newCmdDatabase(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "database",
		Short: "Create, reset and drop the database",
	}
	addMigrationFlags(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "setup",
		Short: "Create the database and run all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.provision(cmd, database.Setup)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Drop the database, then set it up again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.provision(cmd, database.Reset)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "drop",
		Short: "Drop the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := o.invocation(cmd)
			if err != nil {
				return err
			}
			return database.Drop(cmd.Context(), inv.DatabaseURL, inv.Out)
		},
	})

	return cmd
}

type provisionFunc func(ctx context.Context, databaseURL, dir string, out io.Writer) error

// provision runs a database setup operation against the resolved
// migrations directory, then syncs the schema file.
func (o *rootOptions) provision(cmd *cobra.Command, f provisionFunc) error {
	inv, err := o.invocation(cmd)
	if err != nil {
		return err
	}
	if inv.DatabaseURL == "" {
		return dberrors.ErrMissingDatabaseURL
	}
	dir, err := orchestrate.ResolveMigrationsDir(inv, migrations.FindMigrationsDir)
	if err != nil {
		return err
	}
	if err := f(cmd.Context(), inv.DatabaseURL, dir, inv.Out); err != nil {
		return err
	}
	return orchestrate.SyncSchema(cmd.Context(), inv, schema.Renderer{})
}
