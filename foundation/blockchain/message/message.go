// Package message defines the messages exchanged between peers and the
// relay. The set of messages is closed: every kind implements Message and
// is handled through a Visitor, so adding a kind breaks every handler at
// compile time until it is covered.
package message

import (
	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
)

// Type is the wire tag for a kind of message.
type Type string

// Set of message types known on the wire.
const (
	TypeGetLongestChainRequest  Type = "GET_LONGEST_CHAIN_REQUEST"
	TypeGetLongestChainResponse Type = "GET_LONGEST_CHAIN_RESPONSE"
	TypeNewBlockRequest         Type = "NEW_BLOCK_REQUEST"
	TypeNewBlockAnnouncement    Type = "NEW_BLOCK_ANNOUNCEMENT"
)

// Message is implemented by the four kinds of messages and nothing else.
type Message interface {
	CorrelationID() string
	Type() Type
	Accept(v Visitor) error
	sealed()
}

// Visitor handles every kind of message.
type Visitor interface {
	GetLongestChainRequest(msg GetLongestChainRequest) error
	GetLongestChainResponse(msg GetLongestChainResponse) error
	NewBlockRequest(msg NewBlockRequest) error
	NewBlockAnnouncement(msg NewBlockAnnouncement) error
}

// =============================================================================

// GetLongestChainRequest asks every other peer for its chain.
type GetLongestChainRequest struct {
	ID string
}

// CorrelationID implements the Message interface.
func (m GetLongestChainRequest) CorrelationID() string { return m.ID }

// Type implements the Message interface.
func (m GetLongestChainRequest) Type() Type { return TypeGetLongestChainRequest }

// Accept implements the Message interface.
func (m GetLongestChainRequest) Accept(v Visitor) error { return v.GetLongestChainRequest(m) }

func (GetLongestChainRequest) sealed() {}

// GetLongestChainResponse carries the full chain of the responding peer.
type GetLongestChainResponse struct {
	ID    string
	Chain []database.Block
}

// CorrelationID implements the Message interface.
func (m GetLongestChainResponse) CorrelationID() string { return m.ID }

// Type implements the Message interface.
func (m GetLongestChainResponse) Type() Type { return TypeGetLongestChainResponse }

// Accept implements the Message interface.
func (m GetLongestChainResponse) Accept(v Visitor) error { return v.GetLongestChainResponse(m) }

func (GetLongestChainResponse) sealed() {}

// NewBlockRequest announces the intent to mine the specified transactions.
type NewBlockRequest struct {
	ID           string
	Transactions []database.Tx
}

// CorrelationID implements the Message interface.
func (m NewBlockRequest) CorrelationID() string { return m.ID }

// Type implements the Message interface.
func (m NewBlockRequest) Type() Type { return TypeNewBlockRequest }

// Accept implements the Message interface.
func (m NewBlockRequest) Accept(v Visitor) error { return v.NewBlockRequest(m) }

func (NewBlockRequest) sealed() {}

// NewBlockAnnouncement announces a freshly mined block.
type NewBlockAnnouncement struct {
	ID    string
	Block database.Block
}

// CorrelationID implements the Message interface.
func (m NewBlockAnnouncement) CorrelationID() string { return m.ID }

// Type implements the Message interface.
func (m NewBlockAnnouncement) Type() Type { return TypeNewBlockAnnouncement }

// Accept implements the Message interface.
func (m NewBlockAnnouncement) Accept(v Visitor) error { return v.NewBlockAnnouncement(m) }

func (NewBlockAnnouncement) sealed() {}
