// Package backup runs full database backups: it drives the connector and the
// table exporter, tracks the run's manifest, and archives successful runs.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const ManifestFilename = "manifest.json"

// Status is the lifecycle state of one backup run. Transitions are
// in_progress -> success, in_progress -> connection_failed, and
// in_progress -> export_failed; the terminal value is written once.
type Status string

const (
	StatusInProgress       Status = "in_progress"
	StatusSuccess          Status = "success"
	StatusConnectionFailed Status = "connection_failed"
	StatusExportFailed     Status = "export_failed"
)

// TableRecord is the export outcome for one table.
type TableRecord struct {
	Name string `json:"-"`
	Rows int    `json:"rows"`
}

// TableRecords marshals as a JSON object keyed by table name, preserving the
// order tables were processed in. A plain map would lose that order since
// encoding/json sorts map keys.
type TableRecords []TableRecord

func (t TableRecords) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rec := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rec.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(struct {
			Rows int `json:"rows"`
		}{rec.Rows})
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *TableRecords) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("tables: expected JSON object, got %v", tok)
	}
	var records TableRecords
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name := tok.(string)
		var val struct {
			Rows int `json:"rows"`
		}
		if err := dec.Decode(&val); err != nil {
			return err
		}
		records = append(records, TableRecord{Name: name, Rows: val.Rows})
	}
	*t = records
	return nil
}

// Manifest is the status/result document for one backup run. It is created
// at run start, mutated only by the orchestrator, and persisted into the run
// directory on every terminal state, including failures. The connection
// descriptor never includes credentials.
type Manifest struct {
	Label       string       `json:"database_label"`
	Kind        string       `json:"type"`
	Connection  string       `json:"connection"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Tables      TableRecords `json:"tables"`
	Status      Status       `json:"status"`
	Error       string       `json:"error,omitempty"`
	TotalTables int          `json:"total_tables"`
	TotalRows   int          `json:"total_rows"`
	Archive     string       `json:"archive,omitempty"`
	BackupDir   string       `json:"backup_dir,omitempty"`
}

// Write persists the manifest as manifest.json inside dir.
func (m *Manifest) Write(dir string) error {
	path := filepath.Join(dir, ManifestFilename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest file %q: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest JSON: %w", err)
	}
	return nil
}

// Load reads a manifest back from path. An absent manifest, or one whose
// status is still in_progress, is evidence of an incomplete run.
func (m *Manifest) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open manifest file %q: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(m); err != nil {
		return fmt.Errorf("decode manifest JSON: %w", err)
	}
	return nil
}
