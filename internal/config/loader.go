package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the YAML configuration.
var ErrLoadConfig = errors.New("config load failed")

// Supported database kinds.
const (
	KindSQLite  = "sqlite"
	KindMySQL   = "mysql"
	KindMariaDB = "mariadb"
)

const (
	DefaultBatchSize       = 1000
	DefaultTimestampFormat = "02-01-2006"
	DefaultOutputDir       = "./backups"
	DefaultMySQLPort       = 3306
)

// ConfigError reports an unusable configuration: no targets, an unknown
// database kind, an undefined environment variable. It aborts the whole run
// before any backup starts.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %q: %s", e.Field, e.Message)
}

func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// Config represents the top-level YAML configuration file.
type Config struct {
	Backup    BackupConfig     `mapstructure:"backup"`
	Vault     VaultConfig      `mapstructure:"vault"`
	Databases []map[string]any `mapstructure:"databases"`
}

// BackupConfig contains global backup options.
type BackupConfig struct {
	OutputDir       string `mapstructure:"output_dir"`
	Compress        bool   `mapstructure:"compress"`
	TimestampFormat string `mapstructure:"timestamp_format"`
	BatchSize       int    `mapstructure:"batch_size"`
}

// VaultConfig holds connection settings for HashiCorp Vault. All fields are
// optional; Vault is only contacted when a target references a vault_role.
type VaultConfig struct {
	Address  string `mapstructure:"address"`
	RoleID   string `mapstructure:"role_id"`
	RoleName string `mapstructure:"role_name"`
}

// Target describes one database to back up. Immutable once built.
type Target struct {
	Name      string `mapstructure:"name"`
	Kind      string `mapstructure:"type"`
	BatchSize int    `mapstructure:"batch_size"`

	// SQLite targets.
	Path string `mapstructure:"path"`

	// MySQL / MariaDB targets.
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	VaultRole string `mapstructure:"vault_role"`
}

// Describe returns a display string for the target's connection. It never
// includes credentials; it is what ends up in the manifest.
func (t Target) Describe() string {
	if t.Kind == KindSQLite {
		return t.Path
	}
	return fmt.Sprintf("%s@%s:%d", t.Database, t.Host, t.Port)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateEnv replaces ${VAR} placeholders with environment variable
// values. A reference to an undefined variable is a configuration error, not
// an empty substitution.
func interpolateEnv(raw []byte) ([]byte, error) {
	var missing string
	out := envVarPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := string(envVarPattern.FindSubmatch(match)[1])
		val, ok := os.LookupEnv(name)
		if !ok && missing == "" {
			missing = name
		}
		return []byte(val)
	})
	if missing != "" {
		return nil, NewConfigError(missing, "config references undefined environment variable")
	}
	return out, nil
}

// Load reads the configuration from the given YAML file using Viper,
// interpolating ${VAR} references from the environment first. A missing file
// is not an error: env-var fallback targets may still provide a usable setup.
func (c *Config) Load(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("backup.output_dir", DefaultOutputDir)
	v.SetDefault("backup.compress", true)
	v.SetDefault("backup.timestamp_format", DefaultTimestampFormat)
	v.SetDefault("backup.batch_size", DefaultBatchSize)

	raw, err := os.ReadFile(path)
	if err == nil {
		interpolated, ierr := interpolateEnv(raw)
		if ierr != nil {
			return ierr
		}
		if err := v.ReadConfig(bytes.NewReader(interpolated)); err != nil {
			return fmt.Errorf("%w: read config %s: %v", ErrLoadConfig, path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: read config %s: %v", ErrLoadConfig, path, err)
	}

	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}
	return nil
}

// Targets normalizes the configured database entries into Target values,
// falling back to SQLITE_PATH / MYSQL_HOST environment variables when the
// file defines none. It fails when no usable target remains.
func (c *Config) Targets() ([]Target, error) {
	entries := c.Databases
	if len(entries) == 0 {
		entries = envFallbackEntries()
	}
	if len(entries) == 0 {
		return nil, NewConfigError("databases",
			"no database configuration found: add databases to the config file, "+
				"or set SQLITE_PATH, or set MYSQL_HOST/MYSQL_USER/MYSQL_PASSWORD/MYSQL_DATABASE")
	}

	targets := make([]Target, 0, len(entries))
	for i, entry := range entries {
		var t Target
		if err := mapstructure.WeakDecode(entry, &t); err != nil {
			return nil, fmt.Errorf("%w: decode database entry %d: %v", ErrLoadConfig, i, err)
		}
		if t.Kind == "" {
			t.Kind = KindMySQL
		}
		if t.Name == "" {
			switch {
			case t.Database != "":
				t.Name = t.Database
			case t.Path != "":
				t.Name = t.Path
			default:
				t.Name = "unnamed"
			}
		}
		if t.BatchSize <= 0 {
			t.BatchSize = c.Backup.BatchSize
		}
		if t.Kind != KindSQLite && t.Port == 0 {
			t.Port = DefaultMySQLPort
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// Select filters targets down to the given labels. An empty label list keeps
// everything; a label matching no target is a configuration error.
func Select(targets []Target, labels []string) ([]Target, error) {
	if len(labels) == 0 {
		return targets, nil
	}
	byName := make(map[string]Target, len(targets))
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		byName[t.Name] = t
		names = append(names, t.Name)
	}
	selected := make([]Target, 0, len(labels))
	for _, label := range labels {
		t, ok := byName[label]
		if !ok {
			return nil, NewConfigError("db",
				fmt.Sprintf("no database matching %q; available: %v", label, names))
		}
		selected = append(selected, t)
	}
	return selected, nil
}

func envFallbackEntries() []map[string]any {
	var entries []map[string]any
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		entries = append(entries, map[string]any{
			"name": envOr("SQLITE_NAME", "sqlite-default"),
			"type": KindSQLite,
			"path": path,
		})
	}
	if host := os.Getenv("MYSQL_HOST"); host != "" {
		port := DefaultMySQLPort
		if p, err := strconv.Atoi(os.Getenv("MYSQL_PORT")); err == nil {
			port = p
		}
		entries = append(entries, map[string]any{
			"name":     envOr("MYSQL_NAME", "mysql-default"),
			"type":     KindMySQL,
			"host":     host,
			"port":     port,
			"user":     os.Getenv("MYSQL_USER"),
			"password": os.Getenv("MYSQL_PASSWORD"),
			"database": os.Getenv("MYSQL_DATABASE"),
		})
	}
	return entries
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
