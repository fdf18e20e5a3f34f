/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/asakusafw/asakusafw-sub019/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file and data directories",
	Long: `Create a tsvio configuration file with a generated API key, and the data
and schema directories it points to.

Examples:
  tsvio init
  tsvio init --config ./tsvio.yaml --data-dir ./data --print-key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")
		path := configPath(cmd)

		if config.ConfigExists(path) && !force {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
			return nil
		}

		dataDir, _ := cmd.Flags().GetString("data-dir")
		schemaDir, _ := cmd.Flags().GetString("schema-dir")
		cfg, err := initializeConfig(path, dataDir, schemaDir)
		if err != nil {
			return err
		}

		cmd.Printf("Configuration created at %s\n", path)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		cmd.Printf("Schema directory: %s\n", cfg.SchemaDir)
		if printKey {
			cmd.Printf("API key: %s\n", cfg.Security.APIKey)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
	initCmd.Flags().String("schema-dir", "", "Schema directory (default: \"schemas\" next to the data directory)")
}

// initializeConfig writes a fresh configuration and creates its directories
func initializeConfig(path, dataDir, schemaDir string) (*config.Config, error) {
	cfg, err := config.BootstrapConfig(path, dataDir)
	if err != nil {
		return nil, err
	}
	if schemaDir == "" {
		schemaDir = filepath.Join(filepath.Dir(cfg.DataDir), "schemas")
	}
	if schemaDir != cfg.SchemaDir {
		cfg.SchemaDir = schemaDir
		if err := config.SaveConfig(cfg, path); err != nil {
			return nil, err
		}
	}
	for _, dir := range []string{cfg.DataDir, cfg.SchemaDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return cfg, nil
}
