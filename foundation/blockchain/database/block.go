package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// HashRequirement is the prefix the hex digest of every sealed block must
// start with. The difficulty is fixed.
const HashRequirement = "0000"

// GenesisPreviousHash is the previous hash recorded by the first block
// of every chain.
const GenesisPreviousHash = "0"

// =============================================================================

// Block represents a sealed group of transactions. Once constructed a
// block is never modified.
type Block struct {
	Hash         string `json:"hash" validate:"required"`
	Nonce        uint64 `json:"nonce"`
	PreviousHash string `json:"previousHash" validate:"required"`
	TimeStamp    int64  `json:"timestamp"` // Unix epoch in milliseconds.
	Transactions []Tx   `json:"transactions" validate:"dive"`
}

// Candidate is a block that still needs its nonce to be found.
type Candidate struct {
	PreviousHash string
	TimeStamp    int64
	Transactions []Tx
}

// NewCandidate constructs a candidate block that extends the specified
// previous hash with the current time.
func NewCandidate(previousHash string, trans []Tx) Candidate {
	return Candidate{
		PreviousHash: previousHash,
		TimeStamp:    time.Now().UnixMilli(),
		Transactions: copyTrans(trans),
	}
}

// NewGenesisCandidate constructs the candidate for the first block.
func NewGenesisCandidate() Candidate {
	return NewCandidate(GenesisPreviousHash, []Tx{})
}

// Digest recomputes the hash of the block from its stored fields. This is
// what a block's claimed hash is validated against.
func (b Block) Digest() (string, error) {
	trans, err := canonicalTrans(b.Transactions)
	if err != nil {
		return "", err
	}

	return digest(b.PreviousHash, b.TimeStamp, trans, b.Nonce), nil
}

// ShortHash returns the first eight characters of the block hash for
// use in logs and error messages.
func (b Block) ShortHash() string {
	return short(b.Hash)
}

// IsGenesis reports whether the block starts a chain.
func (b Block) IsGenesis() bool {
	return b.PreviousHash == GenesisPreviousHash
}

// =============================================================================

// POW performs the work of mining to find a nonce that produces a digest
// with the required prefix. The nonce starts at 1 and is incremented by
// 1 until a solution is found. There is no cap on the number of attempts;
// the context is only checked so a process shutdown can stop the work.
func POW(ctx context.Context, candidate Candidate, evHandler func(v string, args ...any)) (Block, error) {
	evHandler("database: POW: MINING: started: prevBlk[%s]: numTrans[%d]", short(candidate.PreviousHash), len(candidate.Transactions))
	defer evHandler("database: POW: MINING: completed")

	// Log the transactions that are a part of this potential block.
	for _, tx := range candidate.Transactions {
		evHandler("database: POW: MINING: tx[%s]", tx)
	}

	// The transactions never change during the search so serialize once.
	trans, err := canonicalTrans(candidate.Transactions)
	if err != nil {
		return Block{}, err
	}

	var attempts uint64
	for nonce := uint64(1); ; nonce++ {
		attempts++
		if attempts%1_000_000 == 0 {
			evHandler("database: POW: MINING: attempts[%d]", attempts)
		}

		if attempts%10_000 == 0 && ctx.Err() != nil {
			evHandler("database: POW: MINING: CANCELLED")
			return Block{}, ctx.Err()
		}

		hash := digest(candidate.PreviousHash, candidate.TimeStamp, trans, nonce)
		if !IsHashSolved(hash) {
			continue
		}

		evHandler("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", short(candidate.PreviousHash), short(hash), attempts)

		block := Block{
			Hash:         hash,
			Nonce:        nonce,
			PreviousHash: candidate.PreviousHash,
			TimeStamp:    candidate.TimeStamp,
			Transactions: copyTrans(candidate.Transactions),
		}

		return block, nil
	}
}

// IsHashSolved checks the hash to make sure it complies with
// the POW rules.
func IsHashSolved(hash string) bool {
	return strings.HasPrefix(hash, HashRequirement)
}

// =============================================================================

// digest is the hash over the previous hash, the decimal timestamp, the
// canonical transactions and the decimal nonce, in that order.
func digest(previousHash string, timeStamp int64, trans string, nonce uint64) string {
	var b strings.Builder
	b.WriteString(previousHash)
	b.WriteString(strconv.FormatInt(timeStamp, 10))
	b.WriteString(trans)
	b.WriteString(strconv.FormatUint(nonce, 10))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func short(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8]
}

func copyTrans(trans []Tx) []Tx {
	cp := make([]Tx, len(trans))
	copy(cp, trans)
	return cp
}
