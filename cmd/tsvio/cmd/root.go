/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/asakusafw/asakusafw-sub019/pkg/api"
	"github.com/asakusafw/asakusafw-sub019/pkg/config"
	"github.com/asakusafw/asakusafw-sub019/pkg/di"
	"github.com/asakusafw/asakusafw-sub019/pkg/logging"
	"github.com/asakusafw/asakusafw-sub019/pkg/postgres"
	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

var container *di.Container

// SetContainer sets the dependency injection container
func SetContainer(c *di.Container) {
	container = c
}

type contextKey int

const (
	configKey contextKey = iota
	loggerKey
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tsvio",
	Short: "tsvio - typed TSV record streams",
	Long: `tsvio reads, writes and validates tab separated record streams against
typed schemas, stages them as datasets and moves them in and out of PostgreSQL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		postgres.SetLogger(logger.Named("postgres"))

		ctx := context.WithValue(cmd.Context(), configKey, cfg)
		ctx = context.WithValue(ctx, loggerKey, logger)
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = loggerFrom(cmd).Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for staged datasets")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig reads the config file if present and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath := configPath(cmd)

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

func configPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	return config.GetDefaultConfigPath()
}

func configFrom(cmd *cobra.Command) *config.Config {
	if ctx := cmd.Context(); ctx != nil {
		if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
			return cfg
		}
	}
	return config.DefaultConfig()
}

func loggerFrom(cmd *cobra.Command) *zap.Logger {
	if ctx := cmd.Context(); ctx != nil {
		if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
			return logger
		}
	}
	return zap.NewNop()
}

// openStore opens the dataset store through the container
func openStore(cmd *cobra.Command) (api.DatasetStore, error) {
	if container == nil {
		return nil, errors.New("dependency container not initialized")
	}
	cfg := configFrom(cmd)
	store, err := container.GetStoreFactory().OpenStore(cfg.DataDir, loggerFrom(cmd).Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset store: %w", err)
	}
	return store, nil
}

// resolveSchema loads a schema file, or looks the name up in the schema
// directory
func resolveSchema(cfg *config.Config, nameOrPath string) (*schema.Schema, error) {
	if info, err := os.Stat(nameOrPath); err == nil && !info.IsDir() {
		return schema.Load(nameOrPath)
	}
	registry, err := schema.LoadDir(cfg.SchemaDir)
	if err != nil {
		return nil, err
	}
	s, ok := registry.Get(nameOrPath)
	if !ok {
		return nil, fmt.Errorf("schema %q not found in %s", nameOrPath, cfg.SchemaDir)
	}
	return s, nil
}

// addCharsetFlag registers the --charset flag on cmd
func addCharsetFlag(cmd *cobra.Command) {
	cmd.Flags().String("charset", "", "Stream charset, such as shift_jis (default: codec.charset from config)")
}

// streamCharset resolves --charset, falling back to the configured charset
func streamCharset(cmd *cobra.Command) (encoding.Encoding, error) {
	name, _ := cmd.Flags().GetString("charset")
	if name == "" {
		name = configFrom(cmd).Codec.Charset
	}
	return tsv.LookupCharset(name)
}

// openInput opens path for reading; "-" is standard input
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

// createOutput creates path for writing; "-" or "" is standard output
func createOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "-" || path == "" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
