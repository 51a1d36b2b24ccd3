package state

import (
	"context"

	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
)

// InitializeWithGenesisBlock mines the first block of a new chain. This is
// only used when no peer can supply an existing chain.
func (s *State) InitializeWithGenesisBlock(ctx context.Context) error {
	s.evHandler("state: InitializeWithGenesisBlock: started")
	defer s.evHandler("state: InitializeWithGenesisBlock: completed")

	block, err := s.MineBlock(ctx, database.NewGenesisCandidate())
	if err != nil {
		return err
	}

	defer s.notify()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.storage.Replace([]database.Block{block})
}

// MineBlockWith builds a candidate block on top of the current tip with the
// specified transactions and mines it.
func (s *State) MineBlockWith(ctx context.Context, trans []database.Tx) (database.Block, error) {
	latest, exists := s.storage.LatestBlock()
	if !exists {
		return database.Block{}, ErrEmptyChain
	}

	return s.MineBlock(ctx, database.NewCandidate(latest.Hash, trans))
}

// ReserveMining marks the node as mining before the proof of work starts.
// While the reservation is held IsMining reports true, so no transaction can
// be accepted between taking the snapshot of the pending pool and clearing
// it. The reservation is released by MineReserved or ReleaseMining.
func (s *State) ReserveMining() error {
	if !s.mining.CompareAndSwap(false, true) {
		return ErrMiningInProgress
	}
	s.notify()

	return nil
}

// ReleaseMining gives up a reservation that will not be mined.
func (s *State) ReleaseMining() {
	if s.mining.CompareAndSwap(true, false) {
		s.notify()
	}
}

// MineReserved builds a candidate block on top of the current tip with the
// specified transactions and mines it under a reservation taken earlier with
// ReserveMining. The reservation is always released on return.
func (s *State) MineReserved(ctx context.Context, trans []database.Tx) (database.Block, error) {
	latest, exists := s.storage.LatestBlock()
	if !exists {
		s.ReleaseMining()
		return database.Block{}, ErrEmptyChain
	}

	return s.mine(ctx, database.NewCandidate(latest.Hash, trans))
}

// MineBlock performs the proof of work for the specified candidate. Only
// one mining operation can run per node; a second call while one is in
// flight fails with ErrMiningInProgress. On success the pending pool is
// cleared. The block is not added to the chain, that is up to the caller.
func (s *State) MineBlock(ctx context.Context, candidate database.Candidate) (database.Block, error) {
	if err := s.ReserveMining(); err != nil {
		return database.Block{}, err
	}

	return s.mine(ctx, candidate)
}

// mine runs the proof of work while the caller holds the reservation.
func (s *State) mine(ctx context.Context, candidate database.Candidate) (database.Block, error) {
	defer s.ReleaseMining()

	s.evHandler("state: MineBlock: MINING: perform POW: prevBlk[%s]: numTrans[%d]", candidate.PreviousHash, len(candidate.Transactions))

	block, err := database.POW(ctx, candidate, s.evHandler)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineBlock: MINING: clear mempool")

	s.mempool.Truncate()

	return block, nil
}
