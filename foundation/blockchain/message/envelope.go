package message

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
	"github.com/ardanlabs/chainsync/foundation/validate"
	"github.com/google/uuid"
)

// ErrUnknownType is returned when a decoded envelope carries a type that
// is not one of the known message kinds.
var ErrUnknownType = errors.New("unknown message type")

// Envelope is the form every message takes on the wire.
type Envelope struct {
	CorrelationID string          `json:"correlationId" validate:"required"`
	Type          Type            `json:"type" validate:"required"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// NewCorrelationID generates a random, globally unique correlation id.
func NewCorrelationID() string {
	return uuid.NewString()
}

// Encode serializes the message into its envelope.
func Encode(msg Message) ([]byte, error) {
	var p payloadEncoder
	if err := msg.Accept(&p); err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", msg.Type(), err)
	}

	env := Envelope{
		CorrelationID: msg.CorrelationID(),
		Type:          msg.Type(),
		Payload:       p.data,
	}

	return json.Marshal(env)
}

// Decode parses an envelope and its type dependent payload.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	if err := validate.Check(env); err != nil {
		return nil, fmt.Errorf("validating envelope: %w", err)
	}

	switch env.Type {
	case TypeGetLongestChainRequest:
		return GetLongestChainRequest{ID: env.CorrelationID}, nil

	case TypeGetLongestChainResponse:
		var chain []database.Block
		if err := decodePayload(env, &chain); err != nil {
			return nil, err
		}
		if err := checkPayload(env, chain); err != nil {
			return nil, err
		}
		return GetLongestChainResponse{ID: env.CorrelationID, Chain: nonNilBlocks(chain)}, nil

	case TypeNewBlockRequest:
		var trans []database.Tx
		if err := decodePayload(env, &trans); err != nil {
			return nil, err
		}
		if err := checkPayload(env, trans); err != nil {
			return nil, err
		}
		return NewBlockRequest{ID: env.CorrelationID, Transactions: nonNilTrans(trans)}, nil

	case TypeNewBlockAnnouncement:
		if len(env.Payload) == 0 {
			return nil, fmt.Errorf("decoding %s: missing payload", env.Type)
		}
		var block database.Block
		if err := decodePayload(env, &block); err != nil {
			return nil, err
		}
		if err := validate.Check(block); err != nil {
			return nil, fmt.Errorf("validating %s payload: %w", env.Type, err)
		}
		return NewBlockAnnouncement{ID: env.CorrelationID, Block: block}, nil
	}

	return nil, fmt.Errorf("%q: %w", env.Type, ErrUnknownType)
}

// =============================================================================

func decodePayload(env Envelope, v any) error {
	if len(env.Payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", env.Type, err)
	}

	return nil
}

// checkPayload validates every transaction or block carried by a payload.
func checkPayload[T database.Tx | database.Block](env Envelope, vals []T) error {
	for i, v := range vals {
		if err := validate.Check(v); err != nil {
			return fmt.Errorf("validating %s payload[%d]: %w", env.Type, i, err)
		}
	}

	return nil
}

func nonNilBlocks(blocks []database.Block) []database.Block {
	if blocks == nil {
		return []database.Block{}
	}
	return blocks
}

func nonNilTrans(trans []database.Tx) []database.Tx {
	if trans == nil {
		return []database.Tx{}
	}
	return trans
}

// =============================================================================

// payloadEncoder marshals the type dependent payload of a message.
type payloadEncoder struct {
	data json.RawMessage
}

var _ Visitor = (*payloadEncoder)(nil)

// GetLongestChainRequest carries no payload.
func (p *payloadEncoder) GetLongestChainRequest(msg GetLongestChainRequest) error {
	return nil
}

// GetLongestChainResponse always sends an array, even for an empty chain.
func (p *payloadEncoder) GetLongestChainResponse(msg GetLongestChainResponse) error {
	return p.marshal(nonNilBlocks(msg.Chain))
}

func (p *payloadEncoder) NewBlockRequest(msg NewBlockRequest) error {
	return p.marshal(nonNilTrans(msg.Transactions))
}

func (p *payloadEncoder) NewBlockAnnouncement(msg NewBlockAnnouncement) error {
	return p.marshal(msg.Block)
}

func (p *payloadEncoder) marshal(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	p.data = data
	return nil
}
