// Package client is the node side of the hub protocol. It keeps one
// websocket connection to the hub, correlates longest chain responses with
// the requests that asked for them and hands inbound requests to a Handler.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
	"github.com/ardanlabs/chainsync/foundation/blockchain/message"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned for requests that can't complete because the
// connection to the hub is gone.
var ErrClosed = errors.New("connection to hub is closed")

// writeWait is the time allowed to write a frame to the hub.
const writeWait = 10 * time.Second

// EventHandler defines a function that is called when events
// occur in the client.
type EventHandler func(v string, args ...any)

// Handler interface represents the behavior required to be implemented by
// any package answering the requests a peer sends through the hub.
type Handler interface {
	GetLongestChainRequest(id string)
	NewBlockRequest(id string, trans []database.Tx)
	NewBlockAnnouncement(id string, block database.Block)
}

// =============================================================================

// Client manages the connection to the hub.
type Client struct {
	evHandler EventHandler
	ws        *websocket.Conn

	// wmu serializes writes, the websocket supports one writer at a time.
	wmu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan []database.Block

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects to the hub at the specified url.
func Dial(ctx context.Context, url string, evHandler EventHandler) (*Client, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial hub %s: %w", url, err)
	}

	ev("client: Dial: connected: url[%s]", url)

	c := Client{
		evHandler: ev,
		ws:        ws,
		pending:   make(map[string]chan []database.Block),
		closed:    make(chan struct{}),
	}

	return &c, nil
}

// Run reads messages from the hub until the connection fails, the context
// is cancelled or Close is called. Inbound requests are handed to the
// handler in arrival order.
func (c *Client) Run(ctx context.Context, handler Handler) error {
	c.evHandler("client: Run: G started")
	defer c.evHandler("client: Run: G completed")

	defer c.Close()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.closed:
		}
	}()

	d := dispatch{c: c, handler: handler}

	for {
		frameType, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				return nil
			default:
				return fmt.Errorf("read: %w", err)
			}
		}

		if frameType != websocket.TextMessage {
			c.evHandler("client: Run: WARNING: dropped frame[%d]", frameType)
			continue
		}

		msg, err := message.Decode(data)
		if err != nil {
			c.evHandler("client: Run: WARNING: %s", err)
			continue
		}

		c.evHandler("client: Run: received: type[%s]: id[%s]", msg.Type(), msg.CorrelationID())

		if err := msg.Accept(d); err != nil {
			c.evHandler("client: Run: type[%s]: id[%s]: ERROR: %s", msg.Type(), msg.CorrelationID(), err)
		}
	}
}

// Close closes the connection to the hub. Requests waiting on a response
// fail with ErrClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.ws.Close()
		c.evHandler("client: Close: connection closed")
	})
	return err
}

// =============================================================================

// RequestLongestChain asks every peer for its chain and waits for the hub to
// answer with the longest one. An empty chain means no peer had one. The
// context bounds the wait.
func (c *Client) RequestLongestChain(ctx context.Context) ([]database.Block, error) {
	id := message.NewCorrelationID()
	ch := make(chan []database.Block, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(message.GetLongestChainRequest{ID: id}); err != nil {
		return nil, err
	}

	c.evHandler("client: RequestLongestChain: id[%s]: waiting", id)

	select {
	case chain := <-ch:
		c.evHandler("client: RequestLongestChain: id[%s]: blocks[%d]", id, len(chain))
		return chain, nil

	case <-ctx.Done():
		return nil, fmt.Errorf("request longest chain id[%s]: %w", id, ctx.Err())

	case <-c.closed:
		return nil, ErrClosed
	}
}

// RequestNewBlock asks every peer to mine a block with the transactions.
func (c *Client) RequestNewBlock(trans []database.Tx) error {
	return c.send(message.NewBlockRequest{
		ID:           message.NewCorrelationID(),
		Transactions: trans,
	})
}

// AnnounceNewBlock tells every peer about a block added to the local chain.
func (c *Client) AnnounceNewBlock(block database.Block) error {
	return c.send(message.NewBlockAnnouncement{
		ID:    message.NewCorrelationID(),
		Block: block,
	})
}

// RespondLongestChain answers a longest chain request with the local chain.
func (c *Client) RespondLongestChain(id string, chain []database.Block) error {
	return c.send(message.GetLongestChainResponse{
		ID:    id,
		Chain: chain,
	})
}

// Pending returns the number of requests waiting on a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

// =============================================================================

func (c *Client) send(msg message.Message) error {
	data, err := message.Encode(msg)
	if err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s id[%s]: %w", msg.Type(), msg.CorrelationID(), err)
	}

	return nil
}

// deliver hands a response to the request waiting on it. Responses nobody
// is waiting for are dropped.
func (c *Client) deliver(id string, chain []database.Block) {
	c.mu.Lock()
	ch, exists := c.pending[id]
	c.mu.Unlock()

	if !exists {
		c.evHandler("client: deliver: id[%s]: no pending request: dropped", id)
		return
	}

	select {
	case ch <- chain:
	default:
	}
}
