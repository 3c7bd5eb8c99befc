package backup

import (
	"os"
	"path/filepath"
	"time"

	"github.com/kebairia/tablesnap/internal/config"
	"github.com/kebairia/tablesnap/internal/connector"
	"github.com/kebairia/tablesnap/internal/export"
	"github.com/kebairia/tablesnap/internal/logger"
)

// Options are the process-wide backup settings shared by all targets.
type Options struct {
	OutputRoot      string
	Compress        bool
	TimestampFormat string
}

// Run executes a full backup for one target and returns its manifest. Run is
// the error boundary: no connector or exporter error escapes it, and every
// run produces a manifest regardless of outcome.
//
// The run directory name depends only on the current time, never on the
// target label, so two targets backed up at the same moment into the same
// output root would collide. Callers must serialize runs or use distinct
// roots.
func Run(target config.Target, opts Options) *Manifest {
	log := logger.Global()

	runDir := filepath.Join(opts.OutputRoot, time.Now().Format(opts.TimestampFormat))
	manifest := &Manifest{
		Label:      target.Name,
		Kind:       target.Kind,
		Connection: target.Describe(),
		StartedAt:  time.Now(),
		Status:     StatusInProgress,
	}

	log.Info("backup started",
		"database", target.Name,
		"kind", target.Kind,
		"connection", manifest.Connection,
	)

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		manifest.Status = StatusExportFailed
		manifest.Error = err.Error()
		log.Error("create run directory failed", "database", target.Name, "error", err.Error())
		persistManifest(runDir, manifest, log)
		return manifest
	}

	conn, err := connector.Open(target)
	if err != nil {
		manifest.Status = StatusConnectionFailed
		manifest.Error = err.Error()
		log.Error("connection failed", "database", target.Name, "error", err.Error())
		persistManifest(runDir, manifest, log)
		return manifest
	}
	defer func() {
		// Released exactly once on every path; a close failure does not
		// invalidate data already written.
		if err := conn.Close(); err != nil {
			log.Warn("close failed", "database", target.Name, "error", err.Error())
		}
	}()

	exportTables(conn, target, runDir, manifest, log)
	persistManifest(runDir, manifest, log)

	if opts.Compress && manifest.Status == StatusSuccess {
		archive, err := Archive(runDir)
		if err != nil {
			// The raw directory is intact and inspectable; keep the run
			// successful and record the directory instead.
			log.Error("archive failed", "database", target.Name, "error", err.Error())
			manifest.BackupDir = runDir
			return manifest
		}
		manifest.Archive = archive
		log.Info("archive written", "database", target.Name, "archive", archive)
	} else {
		manifest.BackupDir = runDir
		log.Info("backup directory kept", "database", target.Name, "directory", runDir)
	}

	return manifest
}

// exportTables walks the target's tables in catalog order, exporting each
// into its own subdirectory. The first failure stops the iteration; records
// for tables already completed are retained.
func exportTables(conn connector.Connector, target config.Target, runDir string, manifest *Manifest, log logger.Logger) {
	tables, err := conn.Tables()
	if err != nil {
		manifest.Status = StatusExportFailed
		manifest.Error = err.Error()
		log.Error("table discovery failed", "database", target.Name, "error", err.Error())
		return
	}
	log.Info("tables discovered", "database", target.Name, "count", len(tables))

	totalRows := 0
	for _, table := range tables {
		// Advisory only: the table may change between count and fetch.
		if count, err := conn.RowCount(table); err == nil {
			log.Info("exporting table", "table", table, "rows", count)
		} else {
			log.Warn("row count failed", "table", table, "error", err.Error())
		}

		exported, err := export.Table(conn, table, filepath.Join(runDir, table), target.BatchSize)
		if err != nil {
			manifest.Status = StatusExportFailed
			manifest.Error = err.Error()
			log.Error("export failed", "database", target.Name, "table", table, "error", err.Error())
			return
		}
		manifest.Tables = append(manifest.Tables, TableRecord{Name: table, Rows: exported})
		totalRows += exported
	}

	now := time.Now()
	manifest.Status = StatusSuccess
	manifest.CompletedAt = &now
	manifest.TotalTables = len(tables)
	manifest.TotalRows = totalRows
	log.Info("backup completed",
		"database", target.Name,
		"tables", len(tables),
		"rows", totalRows,
		"duration", now.Sub(manifest.StartedAt).String(),
	)
}

func persistManifest(runDir string, manifest *Manifest, log logger.Logger) {
	if err := manifest.Write(runDir); err != nil {
		log.Error("write manifest failed", "directory", runDir, "error", err.Error())
	}
}
