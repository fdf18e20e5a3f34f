/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/asakusafw/asakusafw-sub019/pkg/api"
	"github.com/asakusafw/asakusafw-sub019/pkg/config"
	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the tsvio REST API server. Requests under /api/v1 must carry the
configured API key in the X-API-Key header. Schemas are loaded from the schema directory.

Examples:
  tsvio serve
  tsvio serve --port 9000 --bind 0.0.0.0 --api-key mysecretkey`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		logger := loggerFrom(cmd)

		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Bind, _ = cmd.Flags().GetString("bind")
		}
		if key, _ := cmd.Flags().GetString("api-key"); key != "" {
			cfg.Security.APIKey = key
		}
		if cfg.Security.APIKey == "" || cfg.Security.APIKey == "auto" {
			key, err := config.GenerateSecureKey(32)
			if err != nil {
				return err
			}
			cfg.Security.APIKey = key
			cmd.Printf("Generated API key for this session: %s\n", key)
		}

		charset, err := tsv.LookupCharset(cfg.Codec.Charset)
		if err != nil {
			return err
		}
		registry, err := schema.LoadDir(cfg.SchemaDir)
		if err != nil {
			return err
		}
		if container == nil {
			return errors.New("dependency container not initialized")
		}

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		starter := container.GetServerFactory().CreateServerStarter()
		return starter.StartServer(ctx, store, registry, api.ServerConfig{
			Bind:        cfg.Bind,
			Port:        cfg.Port,
			APIKey:      cfg.Security.APIKey,
			MaxBodySize: cfg.Security.MaxBodySize,
			Charset:     charset,
		}, logger.Named("api"))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	serveCmd.Flags().String("api-key", "", "API key for authentication (default: security.api_key from config)")
}
