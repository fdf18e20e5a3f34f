package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// datasetsCmd groups the dataset management commands
var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Manage staged datasets",
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List staged datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		datasets, err := store.List()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSCHEMA\tRECORDS\tCREATED")
		for _, ds := range datasets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
				ds.ID, ds.Name, ds.Schema.Name, ds.Records, ds.Created.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

var datasetsCreateCmd = &cobra.Command{
	Use:   "create <name> <schema>",
	Short: "Create an empty dataset",
	Long: `Create an empty dataset bound to a schema and print its id.

Example:
  tsvio datasets create daily-orders orders`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sch, err := resolveSchema(configFrom(cmd), args[1])
		if err != nil {
			return err
		}
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		ds, err := store.Create(args[0], sch)
		if err != nil {
			return err
		}
		cmd.Println(ds.ID)
		return nil
	},
}

var datasetsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a dataset and its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(args[0]); err != nil {
			return err
		}
		cmd.Printf("Deleted dataset %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
	datasetsCmd.AddCommand(datasetsListCmd, datasetsCreateCmd, datasetsDeleteCmd)
}
