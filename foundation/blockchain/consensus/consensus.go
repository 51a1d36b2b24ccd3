// Package consensus implements the longest chain query protocol. A peer asks
// for the current chain, the request is fanned out to every other peer, their
// replies are collected by correlation id and the longest chain is returned
// to the peer that asked. Block requests and announcements are relayed.
package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/chainsync/foundation/blockchain/message"
	"github.com/ardanlabs/chainsync/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsync/foundation/relay"
	"github.com/jellydator/ttlcache/v3"
)

// DefaultSessionTTL is how long a session waits for replies when no TTL
// is configured.
const DefaultSessionTTL = 30 * time.Second

// EventHandler defines a function that is called when events
// occur in the processing of messages.
type EventHandler func(v string, args ...any)

// Relay interface represents the behavior required to be implemented by any
// package providing the transport for the coordinator.
type Relay interface {
	BroadcastExcept(excluded peer.Conn, msg message.Message)
	ReplyTo(conn peer.Conn, msg message.Message) error
	Clients() []peer.Conn
}

// =============================================================================

// Config represents the configuration required to start the coordinator.
type Config struct {
	Relay      Relay
	SessionTTL time.Duration
	EvHandler  EventHandler
}

// Coordinator aggregates the replies to longest chain requests.
type Coordinator struct {
	relay     Relay
	evHandler EventHandler

	// mu serializes every read and write of a session's replies.
	mu       sync.Mutex
	sessions *ttlcache.Cache[string, *session]
}

// New constructs a coordinator and starts the expiration of sessions. If
// the relay is a *relay.Relay the coordinator registers itself as its handler.
func New(cfg Config) *Coordinator {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	sessions := ttlcache.New(
		ttlcache.WithTTL[string, *session](ttl),
		ttlcache.WithDisableTouchOnHit[string, *session](),
	)

	c := Coordinator{
		relay:     cfg.Relay,
		evHandler: ev,
		sessions:  sessions,
	}

	// The eviction callback can run while the cache holds its own lock, so
	// the expired session is handled on a separate G.
	sessions.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *session]) {
		if reason == ttlcache.EvictionReasonExpired {
			go c.expire(item.Key(), item.Value())
		}
	})

	go sessions.Start()

	if rly, ok := cfg.Relay.(*relay.Relay); ok {
		rly.Handler = &c
	}

	return &c
}

// Shutdown stops the expiration of sessions.
func (c *Coordinator) Shutdown() {
	c.sessions.Stop()
}

// OpenSessions returns the number of sessions waiting for replies.
func (c *Coordinator) OpenSessions() int {
	return c.sessions.Len()
}

// =============================================================================
// These methods implement the relay.Handler interface.

// HandleMessage dispatches a message received from the specified connection.
func (c *Coordinator) HandleMessage(from peer.Conn, msg message.Message) {
	if err := msg.Accept(dispatch{c: c, from: from}); err != nil {
		c.evHandler("consensus: HandleMessage: type[%s]: id[%s]: ERROR: %s", msg.Type(), msg.CorrelationID(), err)
	}
}

// ConnectionClosed drops the sessions requested by the closed connection
// and re-evaluates the others since one less reply is now expected.
func (c *Coordinator) ConnectionClosed(conn peer.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, item := range c.sessions.Items() {
		s := item.Value()

		if s.requestor == conn {
			c.evHandler("consensus: ConnectionClosed: id[%s]: requestor gone: drop session", id)
			s.done = true
			c.sessions.Delete(id)
			continue
		}

		c.resolveIfComplete(id, s)
	}
}

// =============================================================================

// dispatch binds a message to the connection it was received from.
type dispatch struct {
	c    *Coordinator
	from peer.Conn
}

// GetLongestChainRequest fans the request out to every other connection. A
// requestor with no peers is told so with an empty chain.
func (d dispatch) GetLongestChainRequest(msg message.GetLongestChainRequest) error {
	c := d.c

	if len(c.relay.Clients()) == 1 {
		c.evHandler("consensus: GetLongestChainRequest: id[%s]: no peers: reply empty chain", msg.ID)

		return c.relay.ReplyTo(d.from, message.GetLongestChainResponse{
			ID:    msg.ID,
			Chain: nil,
		})
	}

	c.mu.Lock()
	c.sessions.Set(msg.ID, newSession(d.from), ttlcache.DefaultTTL)
	c.mu.Unlock()

	c.evHandler("consensus: GetLongestChainRequest: id[%s]: fan out to peers[%d]", msg.ID, len(c.relay.Clients())-1)

	c.relay.BroadcastExcept(d.from, msg)

	return nil
}

// GetLongestChainResponse records a reply and answers the requestor once
// every live peer has replied.
func (d dispatch) GetLongestChainResponse(msg message.GetLongestChainResponse) error {
	c := d.c

	c.mu.Lock()
	defer c.mu.Unlock()

	item := c.sessions.Get(msg.ID)
	if item == nil {
		c.evHandler("consensus: GetLongestChainResponse: id[%s]: no session: ignored", msg.ID)
		return nil
	}

	s := item.Value()
	s.record(d.from, msg)

	c.evHandler("consensus: GetLongestChainResponse: id[%s]: recorded: replies[%d]: blocks[%d]", msg.ID, len(s.replies), len(msg.Chain))

	c.resolveIfComplete(msg.ID, s)

	return nil
}

// NewBlockRequest is relayed as is.
func (d dispatch) NewBlockRequest(msg message.NewBlockRequest) error {
	d.c.evHandler("consensus: NewBlockRequest: id[%s]: relay: numTrans[%d]", msg.ID, len(msg.Transactions))

	d.c.relay.BroadcastExcept(d.from, msg)
	return nil
}

// NewBlockAnnouncement is relayed as is.
func (d dispatch) NewBlockAnnouncement(msg message.NewBlockAnnouncement) error {
	d.c.evHandler("consensus: NewBlockAnnouncement: id[%s]: relay: blk[%s]", msg.ID, msg.Block.ShortHash())

	d.c.relay.BroadcastExcept(d.from, msg)
	return nil
}

// =============================================================================

// resolveIfComplete replies to the requestor when the only live connection
// that has not replied is the requestor itself. When the peers that were
// asked have all gone without replying, the requestor is alone and gets the
// empty chain. The caller must hold mu.
func (c *Coordinator) resolveIfComplete(id string, s *session) {
	if s.done {
		return
	}

	var awaiting int
	for _, conn := range c.relay.Clients() {
		if !s.replied(conn) {
			awaiting++
		}
	}

	if awaiting != 1 {
		return
	}

	c.resolve(id, s)
	c.sessions.Delete(id)
}

// resolve sends the longest recorded chain to the requestor. The caller
// must hold mu.
func (c *Coordinator) resolve(id string, s *session) {
	s.done = true

	winner := message.GetLongestChainResponse{ID: id}
	if len(s.replies) > 0 {
		winner = SelectLongestChain(s.responses())
	}

	c.evHandler("consensus: resolve: id[%s]: replies[%d]: winner blocks[%d]", id, len(s.replies), len(winner.Chain))

	if err := c.relay.ReplyTo(s.requestor, winner); err != nil {
		c.evHandler("consensus: resolve: id[%s]: WARNING: %s", id, err)
	}
}

// expire handles a session that ran out of time. Whatever was recorded is
// sent to the requestor; a session with no replies is dropped.
func (c *Coordinator) expire(id string, s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.done {
		return
	}

	if len(s.replies) == 0 {
		s.done = true
		c.evHandler("consensus: expire: id[%s]: no replies: session dropped", id)
		return
	}

	c.evHandler("consensus: expire: id[%s]: resolve with partial replies[%d]", id, len(s.replies))
	c.resolve(id, s)
}
