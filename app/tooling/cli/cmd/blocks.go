package cmd

import (
	"fmt"
	"time"

	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var verify bool

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Print the chain of the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		var blocks []database.Block
		if err := get("/v1/blocks/list", &blocks); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, block := range blocks {
			fmt.Fprintf(out, "#%d %s prev[%s] nonce[%d] time[%s]\n", i, block.Hash, block.PreviousHash, block.Nonce, time.UnixMilli(block.TimeStamp).UTC().Format(time.RFC3339))
			for _, tx := range block.Transactions {
				fmt.Fprintf(out, "\t%s → %s: $%v\n", tx.Sender, tx.Recipient, tx.Amount)
			}
		}

		if !verify {
			return nil
		}

		if err := database.VerifyChain(blocks); err != nil {
			return err
		}

		fmt.Fprintf(out, "chain verified: blocks[%d]\n", len(blocks))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blocksCmd)
	blocksCmd.Flags().BoolVarP(&verify, "verify", "v", false, "Verify the links and proof of work of every block.")
}
