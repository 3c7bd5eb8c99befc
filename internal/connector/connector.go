// Package connector provides per-backend database adapters exposing table
// discovery, row counts, and paginated row fetch for the backup pipeline.
package connector

import (
	"fmt"

	"github.com/kebairia/tablesnap/internal/config"
)

// Connector is a read-oriented session against one database target. A
// Connector owns exactly one live connection, is not shared across concurrent
// operations, and is closed exactly once at the end of a backup run.
type Connector interface {
	// Tables enumerates all user tables. The SQLite implementation returns
	// them in lexicographic order; the MySQL implementation returns whatever
	// order the catalog yields, which is not guaranteed to be sorted.
	Tables() ([]string, error)

	// RowCount reports the current number of rows in a table. It is advisory,
	// for progress reporting only: the data may change between the count and
	// the subsequent fetches, so it must not be used for loop control.
	RowCount(table string) (int64, error)

	// FetchPage returns up to limit rows starting at offset, using the
	// database's native paging clause. It returns fewer than limit rows only
	// when the table is exhausted.
	FetchPage(table string, limit, offset int) ([]Row, error)

	// Close releases the underlying session. It is idempotent; callers treat
	// close failures as non-fatal since data already written on disk is not
	// invalidated by them.
	Close() error
}

// ConnectionError reports a target that could not be opened: unreachable
// host, rejected credentials, missing SQLite file. It is scoped to one
// target and never aborts the other targets of a run.
type ConnectionError struct {
	Kind string
	Name string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed for %s database %q: %v", e.Kind, e.Name, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func NewConnectionError(kind, name string, err error) *ConnectionError {
	return &ConnectionError{Kind: kind, Name: name, Err: err}
}

// Open establishes a read-oriented session for the target, dispatching on its
// kind. Unknown kinds are a configuration error so the caller can abort the
// whole run instead of skipping one target.
func Open(target config.Target) (Connector, error) {
	switch target.Kind {
	case config.KindSQLite:
		return openSQLite(target)
	case config.KindMySQL, config.KindMariaDB:
		return openMySQL(target)
	default:
		return nil, config.NewConfigError("type",
			fmt.Sprintf("unknown database type %q: use sqlite, mysql, or mariadb", target.Kind))
	}
}
