package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
)

// Sync initializes the local chain. The longest chain held by the peers is
// used when there is one, otherwise a genesis block is mined. A request
// that times out is treated as having no peers with a chain.
func (w *Worker) Sync(ctx context.Context) error {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	rctx, cancel := context.WithTimeout(ctx, w.syncTimeout)
	defer cancel()

	blocks, err := w.client.RequestLongestChain(rctx)
	switch {
	case err == nil:

	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		w.evHandler("worker: sync: WARNING: no answer after %v: start a new chain", w.syncTimeout)

	default:
		return fmt.Errorf("sync: %w", err)
	}

	if len(blocks) == 0 {
		w.evHandler("worker: sync: no chain held by peers: mine genesis block")

		if err := w.state.InitializeWithGenesisBlock(ctx); err != nil {
			return fmt.Errorf("sync: genesis: %w", err)
		}
		return nil
	}

	if err := database.VerifyChain(blocks); err != nil {
		w.evHandler("worker: sync: WARNING: peer chain does not verify: %s", err)
	}

	w.state.InitializeWith(blocks)

	return nil
}
