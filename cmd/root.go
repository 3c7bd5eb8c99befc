package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kebairia/tablesnap/internal/logger"
)

var (
	// configFile is the path to the YAML configuration.
	configFile string

	rootCmd = &cobra.Command{
		Use:   "tablesnap",
		Short: "Schema-agnostic row-level backup for MySQL and SQLite",
		Long: `tablesnap discovers every table in the configured databases,
exports each row as an individual JSON document, and archives
the result as a .tar.gz bundle.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configFile, "config", "c", "./configs/config.yaml", "path to YAML config file")
	rootCmd.AddCommand(backupCmd)
}
