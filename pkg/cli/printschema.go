package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/bcomnes/dbmig/pkg/config"
	"github.com/bcomnes/dbmig/pkg/migrations"
	"github.com/bcomnes/dbmig/pkg/schema"
)

type printSchemaOptions struct {
	schema       string
	onlyTables   bool
	exceptTables bool
	whitelist    bool
	blacklist    bool
	withDocs     bool
	patchFile    string
	importTypes  []string
}

func newCmdPrintSchema(o *rootOptions) *cobra.Command {
	p := &printSchemaOptions{}

	cmd := &cobra.Command{
		Use:   "print-schema [TABLE...]",
		Short: "Print the database schema as SQL",
		Long: `Prints the schema of the database. Settings from the [print_schema]
table of ` + config.FileName + ` apply unless overridden by flags. Table
names given as arguments are kept with --only-tables (the default) or
dropped with --except-tables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := o.invocation(cmd)
			if err != nil {
				return err
			}
			cfg, err := p.printSchemaConfig(cmd, o, inv.Config, args)
			if err != nil {
				return err
			}
			return o.withConn(cmd.Context(), inv, func(conn *migrations.Conn) error {
				return schema.Print(cmd.Context(), conn.DB, conn.Backend, cfg, cmd.OutOrStdout())
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&p.schema, "schema", "s", "", "name of the schema to print")
	flags.BoolVarP(&p.onlyTables, "only-tables", "o", false, "only print the given tables")
	flags.BoolVarP(&p.exceptTables, "except-tables", "e", false, "print every table except the given ones")
	flags.BoolVar(&p.whitelist, "whitelist", false, "alias of --only-tables")
	flags.BoolVar(&p.blacklist, "blacklist", false, "alias of --except-tables")
	flags.BoolVar(&p.withDocs, "with-docs", false, "render documentation comments for tables and columns")
	flags.StringVar(&p.patchFile, "patch-file", "", "unified diff applied to the rendered schema")
	flags.StringSliceVar(&p.importTypes, "import-types", nil, "types listed in the schema header")
	_ = flags.MarkHidden("whitelist")
	_ = flags.MarkHidden("blacklist")
	cmd.MarkFlagsMutuallyExclusive("only-tables", "except-tables")

	return cmd
}

// printSchemaConfig merges flags over the [print_schema] settings of cfg.
func (p *printSchemaOptions) printSchemaConfig(cmd *cobra.Command, o *rootOptions, cfg *config.Config, tables []string) (config.PrintSchema, error) {
	var ps config.PrintSchema
	if cfg != nil {
		ps = cfg.PrintSchema
	}

	if p.whitelist {
		o.logger.Warn("the --whitelist flag is deprecated, use --only-tables instead")
		p.onlyTables = true
	}
	if p.blacklist {
		o.logger.Warn("the --blacklist flag is deprecated, use --except-tables instead")
		p.exceptTables = true
	}
	if p.onlyTables && p.exceptTables {
		return ps, errors.New("--only-tables and --except-tables cannot be combined")
	}

	if len(tables) > 0 {
		if p.exceptTables {
			ps.Filter = config.Filter{ExceptTables: tables}
		} else {
			ps.Filter = config.Filter{OnlyTables: tables}
		}
	}

	flags := cmd.Flags()
	if flags.Changed("schema") {
		ps.Schema = p.schema
	}
	if flags.Changed("with-docs") {
		ps.WithDocs = p.withDocs
	}
	if flags.Changed("patch-file") {
		ps.PatchFile = p.patchFile
	}
	if flags.Changed("import-types") {
		ps.ImportTypes = p.importTypes
	}
	return ps, nil
}
