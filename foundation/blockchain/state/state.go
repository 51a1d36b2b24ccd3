// Package state is the core API for the blockchain node and implements all
// the business rules for mining, validating and extending the local chain.
package state

import (
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
	"github.com/ardanlabs/chainsync/foundation/blockchain/mempool"
	"github.com/ardanlabs/chainsync/foundation/blockchain/storage/memory"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// NotifyHandler defines a function that is called after every mutating
// operation, successful or not, so a presentation layer can re-render.
type NotifyHandler func()

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Storage   database.Storage
	EvHandler EventHandler
	Notify    NotifyHandler
}

// State manages one peer's local chain and pending transactions.
type State struct {
	evHandler EventHandler
	notify    NotifyHandler

	// mu serializes the check-then-append sequence of adding a block.
	mu     sync.Mutex
	mining atomic.Bool

	storage database.Storage
	mempool *mempool.Mempool
}

// New constructs a new node with an empty chain. The chain is filled by
// either InitializeWith or InitializeWithGenesisBlock.
func New(cfg Config) *State {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Build a safe notify function for use.
	notify := func() {
		if cfg.Notify != nil {
			cfg.Notify()
		}
	}

	strg := cfg.Storage
	if strg == nil {
		strg = memory.New()
	}

	state := State{
		evHandler: ev,
		notify:    notify,
		storage:   strg,
		mempool:   mempool.New(),
	}

	return &state
}

// InitializeWith replaces the local chain wholesale with the blocks supplied
// by a peer. The blocks are trusted as they are.
func (s *State) InitializeWith(blocks []database.Block) {
	defer s.notify()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: InitializeWith: blocks[%d]", len(blocks))

	if err := s.storage.Replace(blocks); err != nil {
		s.evHandler("state: InitializeWith: ERROR: %s", err)
	}
}
