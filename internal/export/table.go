package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kebairia/tablesnap/internal/connector"
)

// ExportError reports a fetch or write failure mid-table. It is scoped to one
// target: the orchestrator records it and skips the target's remaining
// tables, keeping already-written tables on disk.
type ExportError struct {
	Table string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export failed for table %q: %v", e.Table, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func NewExportError(table string, err error) *ExportError {
	return &ExportError{Table: table, Err: err}
}

// Table dumps every row of a table as an individual JSON file under dir,
// fetching in LIMIT/OFFSET batches of batchSize. Files are named after the
// row's title/name/slug when available, otherwise row_{n}.json; the stem
// index is the running total over the whole table, not the batch. Returns
// the total rows written; an empty table yields an empty directory and zero,
// not an error.
func Table(conn connector.Connector, table, dir string, batchSize int) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, NewExportError(table, fmt.Errorf("create directory %q: %w", dir, err))
	}

	total := 0
	offset := 0
	for {
		rows, err := conn.FetchPage(table, batchSize, offset)
		if err != nil {
			return total, NewExportError(table, err)
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			stem := RowStem(row, total)
			if err := writeRow(filepath.Join(dir, stem+".json"), row); err != nil {
				return total, NewExportError(table, err)
			}
			total++
		}
		offset += batchSize
		if len(rows) < batchSize {
			// Last (partial) batch.
			break
		}
	}
	return total, nil
}

func writeRow(path string, row connector.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(row); err != nil {
		return fmt.Errorf("encode row to %q: %w", path, err)
	}
	return f.Close()
}
