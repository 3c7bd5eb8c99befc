package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Load(filepath.Join(t.TempDir(), "absent.yaml")))

	assert.Equal(t, DefaultOutputDir, cfg.Backup.OutputDir)
	assert.True(t, cfg.Backup.Compress)
	assert.Equal(t, DefaultTimestampFormat, cfg.Backup.TimestampFormat)
	assert.Equal(t, DefaultBatchSize, cfg.Backup.BatchSize)
}

func TestLoadTargets(t *testing.T) {
	path := writeConfig(t, `
backup:
  output_dir: /mnt/backups
  compress: false
  batch_size: 250
databases:
  - name: grafana
    type: sqlite
    path: /var/lib/grafana/grafana.db
  - name: app
    type: mysql
    host: db.internal
    user: backup
    password: secret
    database: app
    batch_size: 50
`)
	var cfg Config
	require.NoError(t, cfg.Load(path))
	assert.Equal(t, "/mnt/backups", cfg.Backup.OutputDir)
	assert.False(t, cfg.Backup.Compress)

	targets, err := cfg.Targets()
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, "grafana", targets[0].Name)
	assert.Equal(t, KindSQLite, targets[0].Kind)
	assert.Equal(t, "/var/lib/grafana/grafana.db", targets[0].Path)
	assert.Equal(t, 250, targets[0].BatchSize, "global batch size applies when unset")

	assert.Equal(t, KindMySQL, targets[1].Kind)
	assert.Equal(t, DefaultMySQLPort, targets[1].Port, "port defaults to 3306")
	assert.Equal(t, 50, targets[1].BatchSize, "per-target batch size wins")
}

func TestLoadEnvInterpolation(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cr3t")
	path := writeConfig(t, `
databases:
  - name: app
    type: mysql
    host: localhost
    user: backup
    password: ${TEST_DB_PASSWORD}
    database: app
`)
	var cfg Config
	require.NoError(t, cfg.Load(path))

	targets, err := cfg.Targets()
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "s3cr3t", targets[0].Password)
}

func TestLoadUndefinedEnvVar(t *testing.T) {
	path := writeConfig(t, `
backup:
  output_dir: ${TABLESNAP_TEST_UNDEFINED_VAR}
`)
	var cfg Config
	err := cfg.Load(path)
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "TABLESNAP_TEST_UNDEFINED_VAR", cfgErr.Field)
}

func TestTargetsEnvFallback(t *testing.T) {
	t.Setenv("SQLITE_PATH", "/tmp/grafana.db")
	t.Setenv("MYSQL_HOST", "127.0.0.1")
	t.Setenv("MYSQL_USER", "root")
	t.Setenv("MYSQL_PASSWORD", "pw")
	t.Setenv("MYSQL_DATABASE", "app")

	var cfg Config
	require.NoError(t, cfg.Load(filepath.Join(t.TempDir(), "absent.yaml")))

	targets, err := cfg.Targets()
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "sqlite-default", targets[0].Name)
	assert.Equal(t, "/tmp/grafana.db", targets[0].Path)
	assert.Equal(t, "mysql-default", targets[1].Name)
	assert.Equal(t, DefaultMySQLPort, targets[1].Port)
}

func TestTargetsNoneConfigured(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Load(filepath.Join(t.TempDir(), "absent.yaml")))

	_, err := cfg.Targets()
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestTargetNameDefaults(t *testing.T) {
	path := writeConfig(t, `
databases:
  - type: mysql
    host: h
    user: u
    password: p
    database: appdb
  - type: sqlite
    path: /data/x.db
`)
	var cfg Config
	require.NoError(t, cfg.Load(path))

	targets, err := cfg.Targets()
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "appdb", targets[0].Name)
	assert.Equal(t, "/data/x.db", targets[1].Name)
}

func TestSelect(t *testing.T) {
	targets := []Target{
		{Name: "one"},
		{Name: "two"},
		{Name: "three"},
	}

	all, err := Select(targets, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	picked, err := Select(targets, []string{"three", "one"})
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "three", picked[0].Name)
	assert.Equal(t, "one", picked[1].Name)

	_, err = Select(targets, []string{"missing"})
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestDescribeNeverIncludesSecrets(t *testing.T) {
	mysql := Target{
		Kind: KindMySQL, Host: "db.internal", Port: 3306,
		User: "backup", Password: "hunter2", Database: "app",
	}
	assert.Equal(t, "app@db.internal:3306", mysql.Describe())
	assert.NotContains(t, mysql.Describe(), "hunter2")
	assert.NotContains(t, mysql.Describe(), "backup")

	sqlite := Target{Kind: KindSQLite, Path: "/var/lib/grafana/grafana.db"}
	assert.Equal(t, "/var/lib/grafana/grafana.db", sqlite.Describe())
}
