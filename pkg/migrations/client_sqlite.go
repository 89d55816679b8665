package migrations

type sqlite3Dialect struct{}

// NewSqlite3Client creates a Client using SQLite SQL.
func NewSqlite3Client(db DBTX) *Client {
	return &Client{
		Backend: SQLite,
		DB:      db,
		dialect: sqlite3Dialect{},
	}
}

func (sqlite3Dialect) placeholder(int) string { return "?" }

func (sqlite3Dialect) hasTableSql() string {
	return `SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?;`
}
