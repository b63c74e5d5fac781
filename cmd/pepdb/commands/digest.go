package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(digestCmd)
}

var digestCmd = &cobra.Command{
	Use:   "digest sequence...",
	Short: "Digest amino acid sequences and print the resulting peptides",
	Long: "Digest amino acid sequences with the configured enzyme and print " +
		"the peptides with their masses and partitions, without touching the store.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		digester, err := conf.Digester()
		if err != nil {
			return err
		}
		calc, err := conf.MassCalculator()
		if err != nil {
			return err
		}
		table := conf.PartitionTable()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PEPTIDE\tSTART\tMISSED\tMONO\tAVERAGE\tPARTITION")
		for _, seq := range args {
			cands, err := digester.Digest(seq)
			if err != nil {
				return fmt.Errorf("digest %q: %w", seq, err)
			}
			for _, c := range cands {
				mono, avg, err := calc.SequenceMass(c.Sequence)
				if err != nil {
					return err
				}
				part, err := table.Route(mono)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%d\n",
					c.Sequence, c.Start, c.MissedCleavages, mono, avg, part)
			}
		}
		return w.Flush()
	},
}
