package worker

import (
	"errors"
	"time"

	"github.com/ardanlabs/chainsync/foundation/blockchain/state"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case j := <-w.startMining:
			w.busy.Store(false)
			if w.isShutdown() {
				w.state.ReleaseMining()
				continue
			}
			w.runMiningOperation(j)

		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines a block on top of the current tip with the
// transactions of the job, adds it to the chain and announces it.
func (w *Worker) runMiningOperation(j job) {
	w.evHandler("worker: runMiningOperation: MINING: started: origin[%s]", j.origin)
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	t := time.Now()
	block, err := w.state.MineReserved(w.ctx, j.trans)
	duration := time.Since(t)

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, state.ErrEmptyChain):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: no chain to extend")
		case w.ctx.Err() != nil:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return
	}

	// WOW, we mined a block. Add it and tell the network.
	w.addBlock(block, true)
}
