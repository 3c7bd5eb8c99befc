package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kebairia/tablesnap/internal/backup"
	"github.com/kebairia/tablesnap/internal/config"
	"github.com/kebairia/tablesnap/internal/logger"
	"github.com/kebairia/tablesnap/internal/vault"
)

var (
	dbLabels   []string
	outputDir  string
	noCompress bool
	batchSize  int
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up all configured databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.Init()
		if err != nil {
			return fmt.Errorf("logger init failed: %w", err)
		}

		var cfg config.Config
		if err := cfg.Load(configFile); err != nil {
			return err
		}

		targets, err := cfg.Targets()
		if err != nil {
			return err
		}
		targets, err = config.Select(targets, dbLabels)
		if err != nil {
			return err
		}

		// CLI flags override env, which overrides the config file.
		outputRoot := cfg.Backup.OutputDir
		if env := os.Getenv("BACKUP_OUTPUT_DIR"); env != "" {
			outputRoot = env
		}
		if outputDir != "" {
			outputRoot = outputDir
		}
		if batchSize > 0 {
			for i := range targets {
				targets[i].BatchSize = batchSize
			}
		}
		compress := cfg.Backup.Compress && !noCompress

		if err := resolveVaultCredentials(cmd.Context(), cfg, targets); err != nil {
			return err
		}

		if err := os.MkdirAll(outputRoot, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", outputRoot, err)
		}

		log.Info("starting backups",
			"output", outputRoot,
			"databases", len(targets),
			"compress", compress,
		)

		manifests, summary, err := backup.RunAll(targets, backup.Options{
			OutputRoot:      outputRoot,
			Compress:        compress,
			TimestampFormat: cfg.Backup.TimestampFormat,
		})
		if err != nil {
			return err
		}

		for _, m := range manifests {
			log.Info("result",
				"database", m.Label,
				"kind", m.Kind,
				"status", string(m.Status),
				"tables", m.TotalTables,
				"rows", m.TotalRows,
			)
		}
		log.Info("done", "succeeded", summary.Succeeded, "failed", summary.Failed)

		if summary.Failed > 0 {
			logger.Cleanup()
			os.Exit(1)
		}
		return nil
	},
}

// resolveVaultCredentials replaces the static credentials of every target
// that references a vault_role. Vault is never contacted when no target
// does.
func resolveVaultCredentials(ctx context.Context, cfg config.Config, targets []config.Target) error {
	needed := false
	for _, t := range targets {
		if t.VaultRole != "" {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := vault.NewClient(ctx,
		vault.WithAddress(cfg.Vault.Address),
		vault.WithAppRole(cfg.Vault.RoleID, cfg.Vault.RoleName),
	)
	if err != nil {
		return fmt.Errorf("vault client init: %w", err)
	}

	for i := range targets {
		if targets[i].VaultRole == "" {
			continue
		}
		creds, err := client.GetCredentials(ctx, targets[i].VaultRole)
		if err != nil {
			return fmt.Errorf("vault read for %q: %w", targets[i].Name, err)
		}
		targets[i].User = creds.Username
		targets[i].Password = creds.Password
	}
	return nil
}

func init() {
	backupCmd.Flags().
		StringSliceVar(&dbLabels, "db", nil, "back up only these database labels from config")
	backupCmd.Flags().
		StringVarP(&outputDir, "output", "o", "", "override output directory")
	backupCmd.Flags().
		BoolVar(&noCompress, "no-compress", false, "keep raw directories, skip .tar.gz compression")
	backupCmd.Flags().
		IntVar(&batchSize, "batch-size", 0, "rows per fetch batch (default from config)")
}
