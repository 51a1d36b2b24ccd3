package public

import (
	"fmt"

	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
	"github.com/ardanlabs/chainsync/foundation/blockchain/state"
)

// NewTx is what a user submits to add a transaction to the pending pool.
type NewTx struct {
	Sender    string  `json:"sender" validate:"required"`
	Recipient string  `json:"recipient" validate:"required"`
	Amount    float64 `json:"amount" validate:"gte=0"`
}

type tx struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
	Formatted string  `json:"formatted"`
}

func toTx(tran database.Tx) tx {
	return tx{
		Sender:    tran.Sender,
		Recipient: tran.Recipient,
		Amount:    tran.Amount,
		Formatted: fmt.Sprintf("%s → %s: $%v", tran.Sender, tran.Recipient, tran.Amount),
	}
}

func toTxs(trans []database.Tx) []tx {
	txs := make([]tx, len(trans))
	for i, tran := range trans {
		txs[i] = toTx(tran)
	}
	return txs
}

// Status is the snapshot of a node sent to viewers.
type Status struct {
	Status       string `json:"status"`
	ChainIsEmpty bool   `json:"chainIsEmpty"`
	IsMining     bool   `json:"isMining"`
	Blocks       int    `json:"blocks"`
	Pending      int    `json:"pending"`
	LatestBlock  string `json:"latestBlock,omitempty"`
}

func toStatus(st *state.State) Status {
	pending := len(st.PendingTransactions())

	status := st.Status()
	if status == state.StatusReady {
		status = fmt.Sprintf("%s (transactions: %d)", status, pending)
	}

	var latest string
	if block, exists := st.LatestBlock(); exists {
		latest = block.Hash
	}

	return Status{
		Status:       status,
		ChainIsEmpty: st.ChainIsEmpty(),
		IsMining:     st.IsMining(),
		Blocks:       len(st.Chain()),
		Pending:      pending,
		LatestBlock:  latest,
	}
}

// event is what the events websocket sends. Render events carry the status
// of the node, log events carry a line from the node's event handler.
type event struct {
	Kind    string  `json:"kind"`
	Message string  `json:"message,omitempty"`
	Status  *Status `json:"status,omitempty"`
}
