package connector

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Row is an ordered column-to-value mapping for one fetched row. There is no
// fixed schema: columns vary per table and are only known after the first
// fetch. Row marshals to a JSON object that preserves column order.
type Row struct {
	columns []string
	values  []any
}

// NewRow builds a Row from parallel column and value slices. Values are
// normalized so the row is always JSON-serializable: byte slices become
// strings, and anything else without a native JSON form is rendered through
// its string representation.
func NewRow(columns []string, values []any) Row {
	normalized := make([]any, len(values))
	for i, v := range values {
		normalized[i] = normalizeValue(v)
	}
	return Row{columns: columns, values: normalized}
}

// Columns returns the column names in fetch order.
func (r Row) Columns() []string {
	return r.columns
}

// Value returns the value for a column and whether the column exists.
func (r Row) Value(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// MarshalJSON writes the row as a JSON object in column order. encoding/json
// would otherwise sort map keys, losing the table's column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[i])
		if err != nil {
			// Last resort for values the normalizer let through.
			val, _ = json.Marshal(fmt.Sprint(r.values[i]))
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// scanRows drains a result set into Rows, preserving column order.
func scanRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
