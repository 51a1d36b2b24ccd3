package consensus_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/chainsync/foundation/blockchain/consensus"
	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
	"github.com/ardanlabs/chainsync/foundation/blockchain/message"
	"github.com/ardanlabs/chainsync/foundation/blockchain/peer"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

type conn struct {
	id string
}

func (c *conn) ID() string          { return c.id }
func (c *conn) Send(_ []byte) error { return nil }
func (c *conn) Closed() bool        { return false }
func (c *conn) Close() error        { return nil }

// fakeRelay records what the coordinator sends to each connection.
type fakeRelay struct {
	mu    sync.Mutex
	conns []peer.Conn
	sent  map[peer.Conn][]message.Message
}

func newFakeRelay(conns ...peer.Conn) *fakeRelay {
	return &fakeRelay{
		conns: conns,
		sent:  make(map[peer.Conn][]message.Message),
	}
}

func (r *fakeRelay) BroadcastExcept(excluded peer.Conn, msg message.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.conns {
		if c != excluded {
			r.sent[c] = append(r.sent[c], msg)
		}
	}
}

func (r *fakeRelay) ReplyTo(c peer.Conn, msg message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sent[c] = append(r.sent[c], msg)
	return nil
}

func (r *fakeRelay) Clients() []peer.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]peer.Conn, len(r.conns))
	copy(conns, r.conns)
	return conns
}

func (r *fakeRelay) remove(c peer.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.conns {
		if r.conns[i] == c {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			return
		}
	}
}

func (r *fakeRelay) received(c peer.Conn) []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := make([]message.Message, len(r.sent[c]))
	copy(msgs, r.sent[c])
	return msgs
}

// =============================================================================

func chainOf(n int, tag string) []database.Block {
	blocks := make([]database.Block, n)
	for i := range blocks {
		blocks[i] = database.Block{Hash: fmt.Sprintf("%s-%d", tag, i)}
	}
	return blocks
}

func response(id string, n int, tag string) message.GetLongestChainResponse {
	return message.GetLongestChainResponse{ID: id, Chain: chainOf(n, tag)}
}

func newCoordinator(t *testing.T, rly consensus.Relay, ttl time.Duration) *consensus.Coordinator {
	c := consensus.New(consensus.Config{
		Relay:      rly,
		SessionTTL: ttl,
		EvHandler:  func(v string, args ...any) { t.Logf(v, args...) },
	})
	t.Cleanup(c.Shutdown)

	return c
}

func waitFor(t *testing.T, f func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// =============================================================================

func TestSelectLongestChain(t *testing.T) {
	type table struct {
		name    string
		replies []message.GetLongestChainResponse
		exp     string
	}

	tt := []table{
		{
			name:    "longer-later",
			replies: []message.GetLongestChainResponse{response("c", 2, "a"), response("c", 2, "b"), response("c", 5, "c")},
			exp:     "c-0",
		},
		{
			name:    "seed-kept-on-tie",
			replies: []message.GetLongestChainResponse{response("c", 5, "a"), response("c", 5, "b"), response("c", 3, "c")},
			exp:     "a-0",
		},
		{
			name:    "empty-seed",
			replies: []message.GetLongestChainResponse{response("c", 0, "a"), response("c", 1, "b")},
			exp:     "b-0",
		},
	}

	t.Log("Given the need to select the longest chain from the replies.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				got := consensus.SelectLongestChain(tst.replies)
				if len(got.Chain) == 0 || got.Chain[0].Hash != tst.exp {
					t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, got.Chain)
					t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould select the right reply.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould select the right reply.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func TestSoloPeer(t *testing.T) {
	t.Log("Given the need to answer a peer with no other peers.")
	{
		a := &conn{id: "a"}
		rly := newFakeRelay(a)
		c := newCoordinator(t, rly, 0)

		c.HandleMessage(a, message.GetLongestChainRequest{ID: "c1"})

		msgs := rly.received(a)
		if len(msgs) != 1 {
			t.Fatalf("\t%s\tShould reply immediately: %d", failed, len(msgs))
		}

		resp, ok := msgs[0].(message.GetLongestChainResponse)
		if !ok || resp.ID != "c1" || len(resp.Chain) != 0 {
			t.Fatalf("\t%s\tShould reply with an empty chain: %#v", failed, msgs[0])
		}
		t.Logf("\t%s\tShould reply with an empty chain.", success)

		if c.OpenSessions() != 0 {
			t.Fatalf("\t%s\tShould not open a session.", failed)
		}
		t.Logf("\t%s\tShould not open a session.", success)
	}
}

func TestTwoPeers(t *testing.T) {
	t.Log("Given the need to resolve the chain between two peers.")
	{
		a := &conn{id: "a"}
		b := &conn{id: "b"}
		rly := newFakeRelay(a, b)
		c := newCoordinator(t, rly, 0)

		c.HandleMessage(a, message.GetLongestChainRequest{ID: "c1"})

		toB := rly.received(b)
		if len(toB) != 1 || toB[0].Type() != message.TypeGetLongestChainRequest {
			t.Fatalf("\t%s\tShould fan the request out to b: %v", failed, toB)
		}
		if len(rly.received(a)) != 0 {
			t.Fatalf("\t%s\tShould not send the request back to a.", failed)
		}
		t.Logf("\t%s\tShould fan the request out to b only.", success)

		if c.OpenSessions() != 1 {
			t.Fatalf("\t%s\tShould open a session: %d", failed, c.OpenSessions())
		}
		t.Logf("\t%s\tShould open a session.", success)

		c.HandleMessage(b, response("c1", 3, "b"))

		toA := rly.received(a)
		if len(toA) != 1 {
			t.Fatalf("\t%s\tShould reply to a once: %d", failed, len(toA))
		}
		resp := toA[0].(message.GetLongestChainResponse)
		if resp.ID != "c1" || len(resp.Chain) != 3 || resp.Chain[0].Hash != "b-0" {
			t.Fatalf("\t%s\tShould reply with b's chain: %#v", failed, resp)
		}
		t.Logf("\t%s\tShould reply with b's chain.", success)

		if c.OpenSessions() != 0 {
			t.Fatalf("\t%s\tShould close the session: %d", failed, c.OpenSessions())
		}
		t.Logf("\t%s\tShould close the session.", success)
	}
}

func TestManyPeers(t *testing.T) {
	t.Log("Given the need to wait for every peer before answering.")
	{
		a := &conn{id: "a"}
		b := &conn{id: "b"}
		d := &conn{id: "d"}
		rly := newFakeRelay(a, b, d)
		c := newCoordinator(t, rly, 0)

		c.HandleMessage(a, message.GetLongestChainRequest{ID: "c1"})

		t.Log("\tTest 0:\tWhen one of two peers replied.")
		{
			c.HandleMessage(b, response("c1", 2, "b"))
			c.HandleMessage(b, response("c1", 2, "b"))

			if n := len(rly.received(a)); n != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould keep waiting: %d", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould keep waiting.", success)
		}

		t.Log("\tTest 1:\tWhen an unsolicited reply arrives.")
		{
			c.HandleMessage(d, response("other", 9, "x"))

			if n := len(rly.received(a)); n != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould ignore the reply: %d", failed, n)
			}
			t.Logf("\t%s\tTest 1:\tShould ignore the reply.", success)
		}

		t.Log("\tTest 2:\tWhen every peer replied.")
		{
			c.HandleMessage(d, response("c1", 5, "d"))

			toA := rly.received(a)
			if len(toA) != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould reply to a once: %d", failed, len(toA))
			}
			resp := toA[0].(message.GetLongestChainResponse)
			if len(resp.Chain) != 5 || resp.Chain[0].Hash != "d-0" {
				t.Fatalf("\t%s\tTest 2:\tShould reply with the longest chain: %#v", failed, resp)
			}
			t.Logf("\t%s\tTest 2:\tShould reply with the longest chain.", success)
		}

		t.Log("\tTest 3:\tWhen a late reply arrives.")
		{
			c.HandleMessage(b, response("c1", 7, "late"))

			if n := len(rly.received(a)); n != 1 {
				t.Fatalf("\t%s\tTest 3:\tShould ignore the late reply: %d", failed, n)
			}
			t.Logf("\t%s\tTest 3:\tShould ignore the late reply.", success)
		}
	}
}

func TestRelayAnnouncements(t *testing.T) {
	t.Log("Given the need to relay block requests and announcements.")
	{
		a := &conn{id: "a"}
		b := &conn{id: "b"}
		d := &conn{id: "d"}
		rly := newFakeRelay(a, b, d)
		c := newCoordinator(t, rly, 0)

		c.HandleMessage(a, message.NewBlockRequest{ID: "r1", Transactions: []database.Tx{database.NewTx("bill", "ed", 1)}})
		c.HandleMessage(b, message.NewBlockAnnouncement{ID: "r2", Block: database.Block{Hash: "0000aa"}})

		if n := len(rly.received(a)); n != 1 {
			t.Fatalf("\t%s\tShould send a only b's announcement: %d", failed, n)
		}
		if n := len(rly.received(b)); n != 1 {
			t.Fatalf("\t%s\tShould send b only a's request: %d", failed, n)
		}
		if n := len(rly.received(d)); n != 2 {
			t.Fatalf("\t%s\tShould send d both messages: %d", failed, n)
		}
		t.Logf("\t%s\tShould relay to everyone but the sender.", success)

		if c.OpenSessions() != 0 {
			t.Fatalf("\t%s\tShould not open sessions for relayed messages.", failed)
		}
		t.Logf("\t%s\tShould not open sessions for relayed messages.", success)
	}
}

func TestPeerDisconnects(t *testing.T) {
	t.Log("Given the need to finish a session when a peer leaves.")
	{
		t.Log("\tTest 0:\tWhen a peer that has not replied disconnects.")
		{
			a := &conn{id: "a"}
			b := &conn{id: "b"}
			d := &conn{id: "d"}
			rly := newFakeRelay(a, b, d)
			c := newCoordinator(t, rly, 0)

			c.HandleMessage(a, message.GetLongestChainRequest{ID: "c1"})
			c.HandleMessage(b, response("c1", 4, "b"))

			rly.remove(d)
			c.ConnectionClosed(d)

			toA := rly.received(a)
			if len(toA) != 1 || len(toA[0].(message.GetLongestChainResponse).Chain) != 4 {
				t.Fatalf("\t%s\tTest 0:\tShould reply with b's chain: %v", failed, toA)
			}
			t.Logf("\t%s\tTest 0:\tShould reply with b's chain.", success)
		}

		t.Log("\tTest 1:\tWhen the requestor disconnects.")
		{
			a := &conn{id: "a"}
			b := &conn{id: "b"}
			rly := newFakeRelay(a, b)
			c := newCoordinator(t, rly, 0)

			c.HandleMessage(a, message.GetLongestChainRequest{ID: "c1"})

			rly.remove(a)
			c.ConnectionClosed(a)

			if c.OpenSessions() != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould drop the session: %d", failed, c.OpenSessions())
			}
			t.Logf("\t%s\tTest 1:\tShould drop the session.", success)

			c.HandleMessage(b, response("c1", 2, "b"))
			if n := len(rly.received(a)); n != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould not reply to a gone requestor: %d", failed, n)
			}
			t.Logf("\t%s\tTest 1:\tShould not reply to a gone requestor.", success)
		}
	}
}

func TestSessionExpires(t *testing.T) {
	t.Log("Given the need to bound how long a session waits.")
	{
		a := &conn{id: "a"}
		b := &conn{id: "b"}
		d := &conn{id: "d"}
		rly := newFakeRelay(a, b, d)
		c := newCoordinator(t, rly, 50*time.Millisecond)

		c.HandleMessage(a, message.GetLongestChainRequest{ID: "c1"})
		c.HandleMessage(b, response("c1", 3, "b"))

		ok := waitFor(t, func() bool { return len(rly.received(a)) == 1 })
		if !ok {
			t.Fatalf("\t%s\tShould reply with the partial result on expiry.", failed)
		}

		resp := rly.received(a)[0].(message.GetLongestChainResponse)
		if len(resp.Chain) != 3 {
			t.Fatalf("\t%s\tShould reply with b's chain: %d", failed, len(resp.Chain))
		}
		t.Logf("\t%s\tShould reply with the partial result on expiry.", success)

		if c.OpenSessions() != 0 {
			t.Fatalf("\t%s\tShould evict the session: %d", failed, c.OpenSessions())
		}
		t.Logf("\t%s\tShould evict the session.", success)
	}
}
