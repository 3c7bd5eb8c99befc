package connector

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kebairia/tablesnap/internal/config"
)

// mysqlConnectTimeout bounds the initial connection attempt so a hanging
// backup run fails fast instead of blocking indefinitely.
const mysqlConnectTimeout = 10 * time.Second

// mysqlConnector is a session against a MySQL or MariaDB database.
type mysqlConnector struct {
	db *sql.DB
}

func openMySQL(target config.Target) (Connector, error) {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", target.Host, target.Port)
	cfg.User = target.User
	cfg.Passwd = target.Password
	cfg.DBName = target.Database
	cfg.Timeout = mysqlConnectTimeout

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, NewConnectionError(target.Kind, target.Name, err)
	}
	// sql.Open is lazy; ping so unreachable hosts and rejected credentials
	// surface here rather than on the first table query.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewConnectionError(target.Kind, target.Name, err)
	}
	return &mysqlConnector{db: db}, nil
}

// Tables returns all tables in catalog order. SHOW TABLES does not guarantee
// any particular ordering; callers must not assume a sorted result.
func (c *mysqlConnector) Tables() ([]string, error) {
	rows, err := c.db.Query("SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (c *mysqlConnector) RowCount(table string) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteMySQLIdent(table))
	if err := c.db.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows of %q: %w", table, err)
	}
	return count, nil
}

func (c *mysqlConnector) FetchPage(table string, limit, offset int) ([]Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT ? OFFSET ?", quoteMySQLIdent(table))
	rows, err := c.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch page of %q at offset %d: %w", table, offset, err)
	}
	return scanRows(rows)
}

func (c *mysqlConnector) Close() error {
	return c.db.Close()
}

// quoteMySQLIdent backtick-quotes an identifier so table names with reserved
// characters remain usable.
func quoteMySQLIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
