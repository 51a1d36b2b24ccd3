package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Tx is the transactional information between two parties. A Tx has no
// identity beyond its values.
type Tx struct {
	Sender    string  `json:"sender" validate:"required"`
	Recipient string  `json:"recipient" validate:"required"`
	Amount    float64 `json:"amount" validate:"gte=0"`
}

// NewTx constructs a new transaction.
func NewTx(sender string, recipient string, amount float64) Tx {
	return Tx{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	}
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s->%s:%v", tx.Sender, tx.Recipient, tx.Amount)
}

// =============================================================================

// canonicalTrans produces the serialized form of the transactions that is
// fed into the block digest. It is the compact JSON array of the transactions
// in order, without HTML escaping, so every peer computes the same bytes.
// U+2028 and U+2029 are written as raw characters, which encoding/json
// would otherwise escape.
func canonicalTrans(trans []Tx) (string, error) {
	if trans == nil {
		trans = []Tx{}
	}

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(trans); err != nil {
		return "", err
	}

	// The encoder terminates every value with a newline.
	return unescapeLineSeparators(bytes.TrimRight(b.Bytes(), "\n")), nil
}

// unescapeLineSeparators replaces the \u2028 and \u2029 escapes in encoded
// JSON with the characters themselves. An escaped backslash is copied as is
// so a literal `\\u2028` in a string is left alone.
func unescapeLineSeparators(data []byte) string {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return string(data)
	}

	var b strings.Builder
	b.Grow(len(data))

	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			b.WriteByte(data[i])
			continue
		}

		if i+5 < len(data) && string(data[i+1:i+5]) == "u202" {
			switch data[i+5] {
			case '8':
				b.WriteRune('\u2028')
				i += 5
				continue
			case '9':
				b.WriteRune('\u2029')
				i += 5
				continue
			}
		}

		b.WriteByte(data[i])
		b.WriteByte(data[i+1])
		i++
	}

	return b.String()
}
