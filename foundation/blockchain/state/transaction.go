package state

import (
	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
)

// AddTransaction appends the transaction to the pending pool. Nothing
// about the sender or the amount is validated.
func (s *State) AddTransaction(tx database.Tx) {
	defer s.notify()

	n := s.mempool.Add(tx)

	s.evHandler("state: AddTransaction: tx[%s]: pending[%d]", tx, n)
}
