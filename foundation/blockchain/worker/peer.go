package worker

import (
	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
)

// peerOperations reads the requests sent by peers through the hub until
// the connection goes away or the worker is shut down.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	if err := w.client.Run(w.ctx, w); err != nil {
		w.evHandler("worker: peerOperations: ERROR: %s", err)
	}
}

// =============================================================================
// These methods implement the client.Handler interface.

// GetLongestChainRequest answers a peer with the local chain.
func (w *Worker) GetLongestChainRequest(id string) {
	chain := w.state.Chain()

	w.evHandler("worker: GetLongestChainRequest: id[%s]: respond blocks[%d]", id, len(chain))

	if err := w.client.RespondLongestChain(id, chain); err != nil {
		w.evHandler("worker: GetLongestChainRequest: id[%s]: WARNING: %s", id, err)
	}
}

// NewBlockRequest competes with the peer that asked by mining the same
// transactions.
func (w *Worker) NewBlockRequest(id string, trans []database.Tx) {
	w.evHandler("worker: NewBlockRequest: id[%s]: numTrans[%d]", id, len(trans))

	if err := w.state.ReserveMining(); err != nil {
		w.evHandler("worker: NewBlockRequest: id[%s]: WARNING: request dropped: %s", id, err)
		return
	}

	if !w.signalStartMining(job{trans: trans, origin: "peer"}) {
		w.state.ReleaseMining()
		w.evHandler("worker: NewBlockRequest: id[%s]: WARNING: request dropped", id)
	}
}

// NewBlockAnnouncement adds a block mined by a peer. It is not announced
// again.
func (w *Worker) NewBlockAnnouncement(id string, block database.Block) {
	w.evHandler("worker: NewBlockAnnouncement: id[%s]: blk[%s]", id, block.ShortHash())

	w.addBlock(block, false)
}
