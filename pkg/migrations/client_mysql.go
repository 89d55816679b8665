package migrations

type mysqlDialect struct{}

// NewMysqlClient creates a Client using MySQL SQL.
func NewMysqlClient(db DBTX) *Client {
	return &Client{
		Backend: MySQL,
		DB:      db,
		dialect: mysqlDialect{},
	}
}

func (mysqlDialect) placeholder(int) string { return "?" }

// hasTableSql is scoped to the database selected by the connection.
func (mysqlDialect) hasTableSql() string {
	return `SELECT 1 FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?;`
}
