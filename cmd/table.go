package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the Morse symbol table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range cw.Table {
			fmt.Fprintf(tw, "%c\t%s\n", e.Char, e.Code)
		}
		fmt.Fprintf(tw, "SPACE\t%s\n", "(word gap)")
		return tw.Flush()
	},
}
