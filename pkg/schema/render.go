package schema

import (
	"fmt"
	"io"
	"strings"

	"github.com/bcomnes/dbmig/pkg/config"
)

// Header is the first line of every rendered schema file.
const Header = "-- @generated automatically by dbmig. Do not edit by hand."

const indent = "    "

// Render writes tables as SQL DDL. Tables are written in the order given;
// Introspect returns them sorted.
func Render(w io.Writer, tables []Table, cfg config.PrintSchema) error {
	var b strings.Builder

	b.WriteString(Header)
	b.WriteString("\n")
	for _, typ := range cfg.ImportTypes {
		fmt.Fprintf(&b, "-- import: %s\n", typ)
	}

	for _, t := range tables {
		b.WriteString("\n")
		name := t.Name
		if cfg.Schema != "" {
			name = t.QualifiedName()
		}

		if cfg.WithDocs {
			writeDoc(&b, "", t.Comment, fmt.Sprintf("Representation of the `%s` table.", t.Name))
		}
		fmt.Fprintf(&b, "CREATE TABLE %s (\n", name)

		var (
			lines []string
			pk    []string
		)
		for _, c := range t.Columns {
			var line strings.Builder
			if cfg.WithDocs {
				writeDoc(&line, indent, c.Comment, fmt.Sprintf("The `%s` column of the `%s` table.", c.Name, t.Name))
			}
			line.WriteString(indent + c.Name)
			if c.Type != "" {
				line.WriteString(" " + c.Type)
			}
			if !c.Nullable {
				line.WriteString(" NOT NULL")
			}
			lines = append(lines, line.String())
			if c.PrimaryKey {
				pk = append(pk, c.Name)
			}
		}
		if len(pk) > 0 {
			lines = append(lines, fmt.Sprintf("%sPRIMARY KEY (%s)", indent, strings.Join(pk, ", ")))
		}
		b.WriteString(strings.Join(lines, ",\n"))
		b.WriteString("\n);\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeDoc writes comment as SQL line comments, or fallback when comment is empty.
func writeDoc(b *strings.Builder, prefix, comment, fallback string) {
	if strings.TrimSpace(comment) == "" {
		comment = fallback
	}
	for _, line := range strings.Split(comment, "\n") {
		b.WriteString(strings.TrimRight(prefix+"-- "+line, " "))
		b.WriteString("\n")
	}
}
