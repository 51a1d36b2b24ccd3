package state

import (
	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
)

// Status lines describing what a node is doing.
const (
	StatusInitializing = "Initializing the blockchain..."
	StatusMining       = "Mining a new block..."
	StatusNoPending    = "Add one or more transactions."
	StatusReady        = "Ready to mine a new block."
)

// Chain returns a copy of the local chain.
func (s *State) Chain() []database.Block {
	return s.storage.Blocks()
}

// LatestBlock returns the tip of the chain.
func (s *State) LatestBlock() (database.Block, bool) {
	return s.storage.LatestBlock()
}

// ChainIsEmpty reports if the chain has not been initialized yet.
func (s *State) ChainIsEmpty() bool {
	return s.storage.Len() == 0
}

// PendingTransactions returns a copy of the pending pool.
func (s *State) PendingTransactions() []database.Tx {
	return s.mempool.Copy()
}

// NoPendingTransactions reports if the pending pool is empty.
func (s *State) NoPendingTransactions() bool {
	return s.mempool.Count() == 0
}

// IsMining reports if a mining operation is in flight.
func (s *State) IsMining() bool {
	return s.mining.Load()
}

// Status describes the current activity of the node.
func (s *State) Status() string {
	switch {
	case s.ChainIsEmpty():
		return StatusInitializing
	case s.IsMining():
		return StatusMining
	case s.NoPendingTransactions():
		return StatusNoPending
	default:
		return StatusReady
	}
}
