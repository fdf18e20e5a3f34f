package cmd

import (
	"github.com/spf13/cobra"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <dataset-id> <file>",
	Short: "Append TSV records to a dataset",
	Long: `Append every record of a TSV file to a staged dataset. The import is atomic:
a malformed record leaves the dataset unchanged. Use "-" for standard input.

Example:
  tsvio import 2Dk3NwAKyq1eVfcdYPCrGhtjbGN orders.tsv --charset shift_jis`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		charset, err := streamCharset(cmd)
		if err != nil {
			return err
		}
		in, err := openInput(cmd, args[1])
		if err != nil {
			return err
		}
		defer in.Close()

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		added, err := store.Import(args[0], in, charset)
		if err != nil {
			return err
		}
		cmd.Printf("Imported %d records into %s\n", added, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	addCharsetFlag(importCmd)
}
