package state

import (
	"errors"
	"fmt"
)

// Set of errors returned when a block is rejected.
var (
	ErrUnknownParent          = errors.New("there is no block in the chain with the specified previous hash")
	ErrStaleParent            = errors.New("the longer tail of the current node takes precedence over the new block")
	ErrHashVerificationFailed = errors.New("hash verification has failed")
)

// Set of errors returned by the mining operations.
var (
	ErrMiningInProgress = errors.New("a mining operation is already in progress")
	ErrNoTransactions   = errors.New("no transactions in mempool")
	ErrEmptyChain       = errors.New("chain is not initialized")
)

// BlockError is returned by AddBlock and identifies the rejected block
// along with the reason. Hash holds the first eight characters of the
// rejected block's hash.
type BlockError struct {
	Hash string
	Err  error
}

// Error implements the error interface.
func (be *BlockError) Error() string {
	return fmt.Sprintf("block %q is rejected: %s", be.Hash, be.Err)
}

// Unwrap gives errors.Is access to the reason.
func (be *BlockError) Unwrap() error {
	return be.Err
}

// IsBlockError checks if an error of type BlockError exists.
func IsBlockError(err error) bool {
	var be *BlockError
	return errors.As(err, &be)
}
