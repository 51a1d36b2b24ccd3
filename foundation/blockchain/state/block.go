package state

import (
	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
)

// AddBlock takes a block mined locally or received from a peer, validates
// it and if that passes, appends the block to the chain. Only a block that
// extends the current tip is accepted. On failure a *BlockError is returned
// and the chain is left unchanged.
func (s *State) AddBlock(block database.Block) error {
	defer s.notify()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: AddBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.PreviousHash, block.Hash, len(block.Transactions))

	if err := s.validateBlock(block); err != nil {
		s.evHandler("state: AddBlock: REJECTED: %s", err)
		return err
	}

	s.evHandler("state: AddBlock: append block: newBlk[%s]", block.Hash)

	return s.storage.Write(block)
}

// validateBlock checks the block against the tip of the chain.
func (s *State) validateBlock(block database.Block) error {
	s.evHandler("state: validateBlock: check: parent exists in the chain")

	parentIndex, exists := s.storage.Index(block.PreviousHash)
	if !exists {
		return &BlockError{Hash: block.ShortHash(), Err: ErrUnknownParent}
	}

	s.evHandler("state: validateBlock: check: parent is the tip of the chain")

	if parentIndex != s.storage.Len()-1 {
		return &BlockError{Hash: block.ShortHash(), Err: ErrStaleParent}
	}

	s.evHandler("state: validateBlock: check: block hash has been solved")

	parent, _ := s.storage.LatestBlock()

	hash, err := block.Digest()
	if err != nil {
		return &BlockError{Hash: block.ShortHash(), Err: err}
	}

	valid := database.IsHashSolved(hash) &&
		block.PreviousHash == parent.Hash &&
		block.Hash == hash

	if !valid {
		return &BlockError{Hash: block.ShortHash(), Err: ErrHashVerificationFailed}
	}

	return nil
}
