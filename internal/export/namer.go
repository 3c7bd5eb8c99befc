// Package export streams table rows through a connector and writes one JSON
// document per row.
package export

import (
	"fmt"
	"strings"

	"github.com/kebairia/tablesnap/internal/connector"
)

// nameColumns are tried in order when naming a row's JSON file. The first
// non-empty value found becomes the filename stem.
var nameColumns = []string{"title", "name", "slug", "login", "email", "uid"}

// SafeFilename sanitizes a value for use as a filename: every character that
// is not alphanumeric, underscore, hyphen, or dot becomes an underscore, runs
// of underscores collapse to one, and leading/trailing underscores are
// trimmed. An empty result becomes "unnamed".
func SafeFilename(value string) string {
	value = strings.TrimSpace(value)

	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if isFilenameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	sanitized := b.String()
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		return "unnamed"
	}
	return sanitized
}

func isFilenameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-', r == '.':
		return true
	}
	return false
}

// RowStem returns a human-readable and unique filename stem for a row. The
// index is the zero-based position over the whole table's export and is
// always prepended (e.g. "3_My_Dashboard") so that two rows with identical
// titles never produce the same filename. Rows with no usable name column
// fall back to "row_{index}".
func RowStem(row connector.Row, index int) string {
	for _, col := range nameColumns {
		val, ok := row.Value(col)
		if !ok || val == nil {
			continue
		}
		s := fmt.Sprint(val)
		if strings.TrimSpace(s) == "" {
			continue
		}
		return fmt.Sprintf("%d_%s", index, SafeFilename(s))
	}
	return fmt.Sprintf("row_%d", index)
}
