package migrations

import "fmt"

type postgresDialect struct{}

// NewPostgresClient creates a Client using PostgreSQL SQL.
func NewPostgresClient(db DBTX) *Client {
	return &Client{
		Backend: Postgres,
		DB:      db,
		dialect: postgresDialect{},
	}
}

func (postgresDialect) placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// hasTableSql looks the table up in the schema at the front of search_path.
func (postgresDialect) hasTableSql() string {
	return `SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1;`
}
