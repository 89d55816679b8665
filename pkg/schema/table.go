package schema

import (
	"sort"

	"github.com/bcomnes/dbmig/pkg/config"
)

// Column is one column of an introspected table.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Comment    string
}

// Table is an introspected table with its columns in ordinal order.
type Table struct {
	Schema  string
	Name    string
	Comment string
	Columns []Column
}

// QualifiedName returns schema.name, or name when the table has no schema.
func (t Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

func sortTables(tables []Table) {
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].Schema != tables[j].Schema {
			return tables[i].Schema < tables[j].Schema
		}
		return tables[i].Name < tables[j].Name
	})
}

// FilterTables keeps the tables selected by f. Names in the filter match
// either the bare table name or the schema-qualified name.
func FilterTables(tables []Table, f config.Filter) []Table {
	var kept []Table
	for _, t := range tables {
		switch {
		case len(f.OnlyTables) > 0:
			if matchesAny(t, f.OnlyTables) {
				kept = append(kept, t)
			}
		case len(f.ExceptTables) > 0:
			if !matchesAny(t, f.ExceptTables) {
				kept = append(kept, t)
			}
		default:
			kept = append(kept, t)
		}
	}
	return kept
}

func matchesAny(t Table, names []string) bool {
	for _, name := range names {
		if name == t.Name || name == t.QualifiedName() {
			return true
		}
	}
	return false
}
