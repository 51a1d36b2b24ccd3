// Package database handles the data model of the blockchain: transactions,
// blocks, the proof of work and the storage abstraction for a chain.
package database

import (
	"errors"
	"fmt"
)

// ErrChainBroken is returned by VerifyChain when a block does not link to
// the block before it.
var ErrChainBroken = errors.New("chain is broken")

// Storage interface represents the behavior required to be implemented by any
// package providing support for keeping the chain.
type Storage interface {
	Write(block Block) error
	Replace(blocks []Block) error
	Blocks() []Block
	LatestBlock() (Block, bool)
	Index(hash string) (int, bool)
	Len() int
	Reset() error
}

// VerifyChain walks the specified blocks checking the genesis marker, the
// parent links and every proof of work.
func VerifyChain(blocks []Block) error {
	for i, block := range blocks {
		switch i {
		case 0:
			if !block.IsGenesis() {
				return fmt.Errorf("block[0] %q: previous hash %q: %w", block.ShortHash(), short(block.PreviousHash), ErrChainBroken)
			}

		default:
			if block.PreviousHash != blocks[i-1].Hash {
				return fmt.Errorf("block[%d] %q: parent mismatch: %w", i, block.ShortHash(), ErrChainBroken)
			}
		}

		hash, err := block.Digest()
		if err != nil {
			return err
		}

		if hash != block.Hash || !IsHashSolved(hash) {
			return fmt.Errorf("block[%d] %q: invalid hash: %w", i, block.ShortHash(), ErrChainBroken)
		}
	}

	return nil
}
