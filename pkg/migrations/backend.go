package migrations

import "fmt"

// Backend identifies a supported database family.
type Backend int

const (
	Postgres Backend = iota + 1
	SQLite
	MySQL
)

type capability struct {
	name   string
	driver string

	// transactionalDDL reports whether schema changes can be rolled back.
	transactionalDDL bool
}

var capabilities = map[Backend]capability{
	Postgres: {name: "postgres", driver: "pgx", transactionalDDL: true},
	SQLite:   {name: "sqlite", driver: "sqlite3", transactionalDDL: true},
	MySQL:    {name: "mysql", driver: "mysql", transactionalDDL: false},
}

func (b Backend) String() string {
	if c, ok := capabilities[b]; ok {
		return c.name
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

// DriverName returns the database/sql driver name registered for the backend.
func (b Backend) DriverName() string {
	return capabilities[b].driver
}

// SupportsTransactionalDDL reports whether DDL statements on this backend
// take part in transactions.
func (b Backend) SupportsTransactionalDDL() bool {
	return capabilities[b].transactionalDDL
}

// Valid reports whether b is one of the known backends.
func (b Backend) Valid() bool {
	_, ok := capabilities[b]
	return ok
}
