package cmd

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asakusafw/asakusafw-sub019/pkg/config"
	"github.com/asakusafw/asakusafw-sub019/pkg/postgres"
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load <dataset-id> <table>",
	Short: "Bulk load a dataset into a PostgreSQL table",
	Long: `Copy every record of a staged dataset into a PostgreSQL table with COPY.
Schema field names are used as column names. The load is atomic.

Example:
  tsvio load 2Dk3NwAKyq1eVfcdYPCrGhtjbGN sales.orders --postgres-url postgres://localhost/sales`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, table := args[0], args[1]
		logger := loggerFrom(cmd)

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		ds, err := store.Get(id)
		if err != nil {
			return err
		}

		pool, err := postgres.Connect(cmd.Context(), postgresConfig(cmd))
		if err != nil {
			return err
		}
		defer pool.Close()

		pr, pw := io.Pipe()
		exported := make(chan error, 1)
		go func() {
			_, err := store.Export(id, pw, nil)
			pw.CloseWithError(err)
			exported <- err
		}()

		n, err := postgres.Load(cmd.Context(), pool, table, ds.Schema, pr, nil)
		// Unblock the exporter if the copy stopped early
		pr.CloseWithError(io.ErrClosedPipe)
		if exportErr := <-exported; err == nil && exportErr != nil {
			err = exportErr
		}
		if err != nil {
			return err
		}

		logger.Info("dataset loaded", zap.String("id", id), zap.String("table", table), zap.Int64("rows", n))
		cmd.Printf("Loaded %d rows into %s\n", n, table)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	addPostgresFlag(loadCmd)
}

// addPostgresFlag registers the --postgres-url flag on cmd
func addPostgresFlag(cmd *cobra.Command) {
	cmd.Flags().String("postgres-url", "", "PostgreSQL connection URL (default: postgres.url from config)")
}

// postgresConfig applies --postgres-url over the configured connection
func postgresConfig(cmd *cobra.Command) config.Postgres {
	cfg := configFrom(cmd).Postgres
	if url, _ := cmd.Flags().GetString("postgres-url"); url != "" {
		cfg.URL = url
	}
	return cfg
}
