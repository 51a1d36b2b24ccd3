package consensus

import (
	"github.com/ardanlabs/chainsync/foundation/blockchain/message"
	"github.com/ardanlabs/chainsync/foundation/blockchain/peer"
)

// session is the state kept for one longest chain request.
type session struct {
	requestor peer.Conn
	replies   []reply
	done      bool
}

// reply is a response recorded for a session, kept in arrival order.
type reply struct {
	from peer.Conn
	msg  message.GetLongestChainResponse
}

func newSession(requestor peer.Conn) *session {
	return &session{
		requestor: requestor,
	}
}

// record stores the reply from the connection. A second reply from the same
// connection replaces the first one and keeps its place in the order.
func (s *session) record(from peer.Conn, msg message.GetLongestChainResponse) {
	for i := range s.replies {
		if s.replies[i].from == from {
			s.replies[i].msg = msg
			return
		}
	}

	s.replies = append(s.replies, reply{from: from, msg: msg})
}

// replied reports whether the connection has replied.
func (s *session) replied(conn peer.Conn) bool {
	for _, r := range s.replies {
		if r.from == conn {
			return true
		}
	}
	return false
}

// responses returns the recorded responses in arrival order.
func (s *session) responses() []message.GetLongestChainResponse {
	msgs := make([]message.GetLongestChainResponse, len(s.replies))
	for i, r := range s.replies {
		msgs[i] = r.msg
	}
	return msgs
}

// =============================================================================

// SelectLongestChain reduces the replies to the one carrying the longest
// chain. The first reply is the seed and is only replaced by a reply with a
// strictly longer chain, so on a tie the earliest reply wins.
func SelectLongestChain(replies []message.GetLongestChainResponse) message.GetLongestChainResponse {
	if len(replies) == 0 {
		return message.GetLongestChainResponse{}
	}

	longest := replies[0]
	for _, current := range replies[1:] {
		if len(current.Chain) > len(longest.Chain) {
			longest = current
		}
	}

	return longest
}
