// Command dbmig manages SQL migrations and schema snapshots for PostgreSQL,
// SQLite and MySQL databases.
//
// The connection URL is read from --database-url or DATABASE_URL. A .env
// file in the working directory is loaded before the environment is read.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"

	"github.com/bcomnes/dbmig/pkg/cli"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	root := cli.NewDefaultDbmigCommand(cli.NewDefaultIOStreams(), nil)
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(cli.Version+" ("+cli.GitCommit+")"),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
