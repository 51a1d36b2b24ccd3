// Package worker implements mining and the handling of peer requests for a
// blockchain node connected to a hub.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/chainsync/foundation/blockchain/client"
	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
	"github.com/ardanlabs/chainsync/foundation/blockchain/state"
)

// defaultSyncTimeout is how long Sync waits for the longest chain when no
// timeout is configured.
const defaultSyncTimeout = 10 * time.Second

// Client interface represents the behavior required to be implemented by any
// package providing the connection to the hub.
type Client interface {
	Run(ctx context.Context, handler client.Handler) error
	RequestLongestChain(ctx context.Context) ([]database.Block, error)
	RequestNewBlock(trans []database.Tx) error
	AnnounceNewBlock(block database.Block) error
	RespondLongestChain(id string, chain []database.Block) error
}

// Config represents the configuration required to start the worker.
type Config struct {
	State       *state.State
	Client      Client
	SyncTimeout time.Duration
	EvHandler   state.EventHandler
}

// =============================================================================

// Worker manages the mining and peer workflows for a node.
type Worker struct {
	state       *state.State
	client      Client
	syncTimeout time.Duration
	evHandler   state.EventHandler

	ctx    context.Context
	cancel context.CancelFunc

	wg          sync.WaitGroup
	shut        chan struct{}
	startMining chan job
	busy        atomic.Bool
}

// job is one request to mine a block with a set of transactions. A queued
// job always holds the mining reservation of the state.
type job struct {
	trans  []database.Tx
	origin string
}

// Run creates a worker, starts up all the background processes and syncs
// the local chain with the peers before returning.
func Run(ctx context.Context, cfg Config) (*Worker, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	syncTimeout := cfg.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = defaultSyncTimeout
	}

	wctx, cancel := context.WithCancel(ctx)

	w := Worker{
		state:       cfg.State,
		client:      cfg.Client,
		syncTimeout: syncTimeout,
		evHandler:   ev,
		ctx:         wctx,
		cancel:      cancel,
		shut:        make(chan struct{}),
		startMining: make(chan job, 1),
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.peerOperations,
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	// The peer G must be reading before the longest chain can be requested.
	if err := w.Sync(ctx); err != nil {
		w.Shutdown()
		return nil, err
	}

	return &w, nil
}

// Shutdown terminates the goroutines performing work. A mining operation
// in flight is cancelled.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: cancel mining and peer operations")
	w.cancel()

	w.evHandler("worker: shutdown: terminate goroutines")
	select {
	case <-w.shut:
	default:
		close(w.shut)
	}
	w.wg.Wait()
}

// SignalMine asks the peers to mine the pending transactions and starts
// mining them locally. It fails if there is nothing to mine or a mining
// operation is already in flight. The node reports as mining from the
// moment this returns, so no transaction is accepted into a pool that is
// about to be cleared.
func (w *Worker) SignalMine() error {
	if err := w.state.ReserveMining(); err != nil {
		return err
	}

	trans := w.state.PendingTransactions()
	if len(trans) == 0 {
		w.state.ReleaseMining()
		return state.ErrNoTransactions
	}

	if !w.signalStartMining(job{trans: trans, origin: "local"}) {
		w.state.ReleaseMining()
		return state.ErrMiningInProgress
	}

	if err := w.client.RequestNewBlock(trans); err != nil {
		w.evHandler("worker: SignalMine: RequestNewBlock: WARNING: %s", err)
	}

	return nil
}

// =============================================================================

// signalStartMining hands the job to the mining G. The caller must hold the
// mining reservation. Only one job is accepted until the mining G takes it.
func (w *Worker) signalStartMining(j job) bool {
	if !w.busy.CompareAndSwap(false, true) {
		w.evHandler("worker: signalStartMining: origin[%s]: MINING: busy", j.origin)
		return false
	}

	w.startMining <- j
	w.evHandler("worker: signalStartMining: origin[%s]: mining signaled: numTrans[%d]", j.origin, len(j.trans))

	return true
}

// addBlock adds the block to the local chain and, if asked, announces it to
// the peers. A rejected block is logged and dropped.
func (w *Worker) addBlock(block database.Block, announce bool) {
	if err := w.state.AddBlock(block); err != nil {
		var be *state.BlockError
		switch {
		case errors.As(err, &be):
			w.evHandler("worker: addBlock: WARNING: block %q is rejected: %s", be.Hash, be.Err)
		default:
			w.evHandler("worker: addBlock: ERROR: %s", err)
		}
		return
	}

	if !announce {
		return
	}

	if err := w.client.AnnounceNewBlock(block); err != nil {
		w.evHandler("worker: addBlock: AnnounceNewBlock: WARNING: %s", err)
	}
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
