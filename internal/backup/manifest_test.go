package backup

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRecordsMarshalKeepsProcessingOrder(t *testing.T) {
	records := TableRecords{
		{Name: "zebra", Rows: 3},
		{Name: "alpha", Rows: 1},
		{Name: "middle", Rows: 0},
	}

	data, err := json.Marshal(records)
	require.NoError(t, err)
	assert.Equal(t, `{"zebra":{"rows":3},"alpha":{"rows":1},"middle":{"rows":0}}`, string(data))
}

func TestTableRecordsMarshalEmpty(t *testing.T) {
	data, err := json.Marshal(TableRecords(nil))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestTableRecordsRoundTrip(t *testing.T) {
	records := TableRecords{
		{Name: "b", Rows: 2},
		{Name: "a", Rows: 5},
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)

	var decoded TableRecords
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, records, decoded)
}

func TestManifestWriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	completed := time.Now().Round(time.Second)
	manifest := &Manifest{
		Label:       "grafana",
		Kind:        "sqlite",
		Connection:  "/var/lib/grafana/grafana.db",
		StartedAt:   completed.Add(-time.Minute),
		CompletedAt: &completed,
		Tables: TableRecords{
			{Name: "dashboard", Rows: 12},
			{Name: "alert", Rows: 0},
		},
		Status:      StatusSuccess,
		TotalTables: 2,
		TotalRows:   12,
	}

	require.NoError(t, manifest.Write(dir))

	var loaded Manifest
	require.NoError(t, loaded.Load(filepath.Join(dir, ManifestFilename)))
	assert.Equal(t, manifest.Label, loaded.Label)
	assert.Equal(t, StatusSuccess, loaded.Status)
	assert.Equal(t, manifest.Tables, loaded.Tables)
	assert.Equal(t, 12, loaded.TotalRows)
	require.NotNil(t, loaded.CompletedAt)
}

func TestManifestOmitsEmptyFailureFields(t *testing.T) {
	manifest := &Manifest{
		Label:     "db",
		Kind:      "mysql",
		StartedAt: time.Now(),
		Status:    StatusInProgress,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	require.NoError(t, err)

	s := string(data)
	assert.NotContains(t, s, "completed_at")
	assert.NotContains(t, s, `"error"`)
	assert.NotContains(t, s, "archive")
	assert.True(t, strings.Contains(s, `"status": "in_progress"`))
}

func TestManifestWritesExplicitZeroTotals(t *testing.T) {
	completed := time.Now()
	manifest := &Manifest{
		Label:       "empty-db",
		Kind:        "sqlite",
		StartedAt:   completed.Add(-time.Second),
		CompletedAt: &completed,
		Status:      StatusSuccess,
		TotalTables: 0,
		TotalRows:   0,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	require.NoError(t, err)

	// A successful backup of a zero-table database still records its totals.
	s := string(data)
	assert.Contains(t, s, `"total_tables": 0`)
	assert.Contains(t, s, `"total_rows": 0`)
}
