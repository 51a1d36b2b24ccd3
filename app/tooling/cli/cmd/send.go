package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	from   string
	to     string
	amount float64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Add a transaction to the pending pool of the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		tx := struct {
			Sender    string  `json:"sender"`
			Recipient string  `json:"recipient"`
			Amount    float64 `json:"amount"`
		}{
			Sender:    from,
			Recipient: to,
			Amount:    amount,
		}

		var resp struct {
			Status string `json:"status"`
		}
		if err := post("/v1/tx/submit", tx, &resp); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&from, "from", "f", "", "Sender of the transaction.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Recipient of the transaction.")
	sendCmd.Flags().Float64VarP(&amount, "amount", "a", 0, "Amount to send.")
}
