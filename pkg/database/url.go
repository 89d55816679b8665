package database

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/bcomnes/dbmig/pkg/migrations"
)

const (
	sqlitePrefix   = "sqlite://"
	memoryDatabase = ":memory:"

	// maintenanceDatabase is connected to while creating or dropping a postgres database.
	maintenanceDatabase = "postgres"
)

// BackendFromURL picks the backend for a database URL.
// Anything that is not a postgres or mysql URL is treated as a SQLite path.
func BackendFromURL(databaseURL string) migrations.Backend {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return migrations.Postgres
	case strings.HasPrefix(databaseURL, "mysql://"):
		return migrations.MySQL
	default:
		return migrations.SQLite
	}
}

// dataSource returns the driver-specific DSN for databaseURL.
func dataSource(backend migrations.Backend, databaseURL string) (string, error) {
	switch backend {
	case migrations.Postgres:
		return databaseURL, nil
	case migrations.MySQL:
		cfg, err := mysqlConfig(databaseURL)
		if err != nil {
			return "", err
		}
		return cfg.FormatDSN(), nil
	default:
		return sqlitePath(databaseURL), nil
	}
}

func sqlitePath(databaseURL string) string {
	return strings.TrimPrefix(databaseURL, sqlitePrefix)
}

// mysqlConfig converts a mysql:// URL to a driver config.
func mysqlConfig(databaseURL string) (*mysql.Config, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql url: %w", err)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.MultiStatements = true
	cfg.ParseTime = true

	for key, vals := range u.Query() {
		if len(vals) == 0 {
			continue
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params[key] = vals[len(vals)-1]
	}
	return cfg, nil
}

// postgresTarget splits a postgres URL into the database name and a URL
// pointing at the maintenance database on the same server.
func postgresTarget(databaseURL string) (name, maintenanceURL string, err error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid postgres url: %w", err)
	}
	name = strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", "", fmt.Errorf("postgres url %q does not name a database", u.Redacted())
	}
	u.Path = "/" + maintenanceDatabase
	return name, u.String(), nil
}
