package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Print the pending transactions of the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		var txs []struct {
			Formatted string `json:"formatted"`
		}
		if err := get("/v1/tx/uncommitted/list", &txs); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(txs) == 0 {
			fmt.Fprintln(out, "no pending transactions")
			return nil
		}

		for _, tx := range txs {
			fmt.Fprintln(out, tx.Formatted)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}
