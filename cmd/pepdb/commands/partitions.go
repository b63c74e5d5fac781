package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(partitionsCmd)
}

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "Print the mass partition boundary table",
	Long: "Print the mass partition boundaries derived from the configured " +
		"partition count and peptide length range. The table must stay the same " +
		"across all runs against the same store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := conf.PartitionTable()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PARTITION\tLOWER\tUPPER")
		for i, r := range table {
			fmt.Fprintf(w, "%d\t%s\t%s\n", i, r.Lower, r.Upper)
		}
		return w.Flush()
	},
}
