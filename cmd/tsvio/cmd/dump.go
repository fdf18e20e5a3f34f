package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asakusafw/asakusafw-sub019/pkg/postgres"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <schema> <query> [file]",
	Short: "Write the result of a PostgreSQL query as TSV",
	Long: `Run a query and write its rows as TSV records of the given schema. The query
must return one column per schema field, in field order.

Example:
  tsvio dump orders "SELECT id, item, price FROM sales.orders" orders.tsv`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sch, err := resolveSchema(configFrom(cmd), args[0])
		if err != nil {
			return err
		}
		charset, err := streamCharset(cmd)
		if err != nil {
			return err
		}

		pool, err := postgres.Connect(cmd.Context(), postgresConfig(cmd))
		if err != nil {
			return err
		}
		defer pool.Close()

		path := ""
		if len(args) == 3 {
			path = args[2]
		}
		out, err := createOutput(cmd, path)
		if err != nil {
			return err
		}
		n, err := postgres.Dump(cmd.Context(), pool, args[1], sch, out, charset)
		if err := errors.Join(err, out.Close()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Dumped %d records\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	addPostgresFlag(dumpCmd)
	addCharsetFlag(dumpCmd)
}
