package connector

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kebairia/tablesnap/internal/config"
)

// sqliteConnector is a read-only session against a SQLite database file. The
// connection is opened with mode=ro so the source file can never be mutated
// through this session.
type sqliteConnector struct {
	db *sql.DB
}

func openSQLite(target config.Target) (Connector, error) {
	path := strings.TrimSpace(target.Path)
	if path == "" {
		return nil, config.NewConfigError("path",
			"sqlite target requires a 'path' field pointing to the .db file")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, NewConnectionError(target.Kind, target.Name,
			fmt.Errorf("sqlite file not found: %s", path))
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, NewConnectionError(target.Kind, target.Name, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewConnectionError(target.Kind, target.Name, err)
	}
	return &sqliteConnector{db: db}, nil
}

// Tables returns all user tables sorted lexicographically.
func (c *sqliteConnector) Tables() ([]string, error) {
	rows, err := c.db.Query(
		"SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
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

func (c *sqliteConnector) RowCount(table string) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))
	if err := c.db.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows of %q: %w", table, err)
	}
	return count, nil
}

func (c *sqliteConnector) FetchPage(table string, limit, offset int) ([]Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT ? OFFSET ?", quoteIdent(table))
	rows, err := c.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch page of %q at offset %d: %w", table, offset, err)
	}
	return scanRows(rows)
}

func (c *sqliteConnector) Close() error {
	return c.db.Close()
}

// quoteIdent double-quotes an identifier so table names with reserved
// characters remain usable.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
