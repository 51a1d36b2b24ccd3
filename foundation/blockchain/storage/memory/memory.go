// Package memory implements the ability to read and write blocks to memory
// using a slice. The chain is never persisted across restarts; a restarted
// node rebuilds it from its peers.
package memory

import (
	"errors"
	"sync"

	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
)

// ErrOutOfOrder is returned when a written block does not extend the
// latest block in memory.
var ErrOutOfOrder = errors.New("block is out of order")

// Memory represents the storage implementation for reading and storing
// blocks in memory using a slice. This implements the database.Storage
// interface.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.Block
	index  map[string]int
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		index: make(map[string]int),
	}
}

// Write appends the specified block to the chain in memory.
func (m *Memory) Write(block database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := len(m.blocks)
	switch {
	case l == 0 && !block.IsGenesis():
		return ErrOutOfOrder
	case l > 0 && m.blocks[l-1].Hash != block.PreviousHash:
		return ErrOutOfOrder
	}

	m.blocks = append(m.blocks, block)
	m.index[block.Hash] = l

	return nil
}

// Replace swaps the whole chain in memory for the specified blocks.
func (m *Memory) Replace(blocks []database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = make([]database.Block, len(blocks))
	copy(m.blocks, blocks)

	m.index = make(map[string]int, len(blocks))
	for i, block := range m.blocks {
		if _, exists := m.index[block.Hash]; !exists {
			m.index[block.Hash] = i
		}
	}

	return nil
}

// Blocks returns a copy of the chain.
func (m *Memory) Blocks() []database.Block {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]database.Block, len(m.blocks))
	copy(blocks, m.blocks)

	return blocks
}

// LatestBlock returns the tip of the chain.
func (m *Memory) LatestBlock() (database.Block, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.blocks) == 0 {
		return database.Block{}, false
	}

	return m.blocks[len(m.blocks)-1], true
}

// Index locates the position of the block with the specified hash.
func (m *Memory) Index(hash string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, exists := m.index[hash]
	return i, exists
}

// Len returns the number of blocks in the chain.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.blocks)
}

// Reset will clear out the blockchain in memory.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = nil
	m.index = make(map[string]int)

	return nil
}
