package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print what the node is doing",
	RunE: func(cmd *cobra.Command, args []string) error {
		var st struct {
			Status      string `json:"status"`
			Blocks      int    `json:"blocks"`
			Pending     int    `json:"pending"`
			LatestBlock string `json:"latestBlock"`
		}
		if err := get("/v1/node/status", &st); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\nblocks[%d] pending[%d] latest[%s]\n", st.Status, st.Blocks, st.Pending, st.LatestBlock)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
