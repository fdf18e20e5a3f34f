package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <dataset-id> [file]",
	Short: "Write a dataset as TSV",
	Long: `Write every record of a staged dataset as TSV, to a file or standard output.

Example:
  tsvio export 2Dk3NwAKyq1eVfcdYPCrGhtjbGN orders.tsv`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		charset, err := streamCharset(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		// Check the dataset before creating the output file
		if _, err := store.Get(args[0]); err != nil {
			return err
		}

		path := ""
		if len(args) == 2 {
			path = args[1]
		}
		out, err := createOutput(cmd, path)
		if err != nil {
			return err
		}
		n, err := store.Export(args[0], out, charset)
		if err := errors.Join(err, out.Close()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addCharsetFlag(exportCmd)
}
