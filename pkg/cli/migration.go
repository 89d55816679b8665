package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bcomnes/dbmig/pkg/migrations"
	"github.com/bcomnes/dbmig/pkg/orchestrate"
	"github.com/bcomnes/dbmig/pkg/schema"
)

func newCmdMigration(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migration",
		Short: "Run, revert, list and generate migrations",
	}
	addMigrationFlags(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: o.migrationRunE(func(cmd *cobra.Command, conn *migrations.Conn, dir string) error {
			m, err := conn.Migrator()
			if err != nil {
				return err
			}
			_, err = m.ApplyPending(cmd.Context(), dir)
			return err
		}, true),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "revert",
		Short: "Revert the latest applied migration",
		Args:  cobra.NoArgs,
		RunE: o.migrationRunE(func(cmd *cobra.Command, conn *migrations.Conn, dir string) error {
			m, err := conn.Migrator()
			if err != nil {
				return err
			}
			_, err = m.RevertLatest(cmd.Context(), dir)
			return err
		}, true),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "redo",
		Short: "Revert and reapply the latest applied migration",
		Args:  cobra.NoArgs,
		RunE: o.migrationRunE(func(cmd *cobra.Command, conn *migrations.Conn, dir string) error {
			session, err := orchestrate.NewSession(conn)
			if err != nil {
				return err
			}
			_, err = orchestrate.Redo(cmd.Context(), session, dir)
			return err
		}, true),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List migrations and whether they have been applied",
		Args:  cobra.NoArgs,
		RunE: o.migrationRunE(func(cmd *cobra.Command, conn *migrations.Conn, dir string) error {
			m, err := conn.Migrator()
			if err != nil {
				return err
			}
			marked, err := m.ListMarked(cmd.Context(), dir)
			if err != nil {
				return err
			}
			printMarked(cmd, marked)
			return nil
		}, false),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "Print whether any migration is pending",
		Args:  cobra.NoArgs,
		RunE: o.migrationRunE(func(cmd *cobra.Command, conn *migrations.Conn, dir string) error {
			m, err := conn.Migrator()
			if err != nil {
				return err
			}
			pending, err := m.AnyPending(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pending)
			return nil
		}, false),
	})

	cmd.AddCommand(newCmdGenerate(o))

	return cmd
}

// migrationRunE resolves the migrations directory, opens the database and
// runs f. When sync is set the schema file is updated afterwards.
func (o *rootOptions) migrationRunE(f func(cmd *cobra.Command, conn *migrations.Conn, dir string) error, sync bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		inv, err := o.invocation(cmd)
		if err != nil {
			return err
		}
		dir, err := orchestrate.ResolveMigrationsDir(inv, migrations.FindMigrationsDir)
		if err != nil {
			return err
		}

		err = o.withConn(cmd.Context(), inv, func(conn *migrations.Conn) error {
			return f(cmd, conn, dir)
		})
		if err != nil || !sync {
			return err
		}
		return orchestrate.SyncSchema(cmd.Context(), inv, schema.Renderer{})
	}
}

func printMarked(cmd *cobra.Command, marked []migrations.Marked) {
	applied := color.New(color.FgGreen).SprintFunc()
	pending := color.New(color.FgYellow).SprintFunc()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Migrations:")
	for _, mk := range marked {
		marker := pending("[ ]")
		if mk.Applied {
			marker = applied("[X]")
		}
		fmt.Fprintf(out, "  %s %s\n", marker, mk.Migration.FolderName())
	}
}

type generateOptions struct {
	version string
	format  string
}

func newCmdGenerate(o *rootOptions) *cobra.Command {
	g := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate MIGRATION_NAME",
		Short: "Create a new migration folder with up.sql and down.sql",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := o.invocation(cmd)
			if err != nil {
				return err
			}
			_, err = orchestrate.GenerateMigration(inv, migrations.FindMigrationsDir, orchestrate.GenerateRequest{
				Name:    args[0],
				Version: g.version,
				Format:  g.format,
				Now:     time.Now(),
			})
			return err
		},
	}

	cmd.Flags().StringVar(&g.version, "version", "", "version of the migration (default: current UTC timestamp)")
	cmd.Flags().StringVar(&g.format, "format", migrations.FormatSQL, "migration format")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return migrations.Formats(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
