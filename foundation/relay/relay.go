// Package relay provides a protocol agnostic publish/subscribe layer over a
// set of websocket connections. Messages decoded from a connection are handed
// to the registered Handler; the handler answers through BroadcastExcept and
// ReplyTo.
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/chainsync/foundation/blockchain/message"
	"github.com/ardanlabs/chainsync/foundation/blockchain/peer"
	"github.com/gorilla/websocket"
)

// ErrUnsupportedFrame is logged when a connection sends a frame that is not
// a decodable text message. The frame is dropped.
var ErrUnsupportedFrame = errors.New("received data of unsupported type")

// EventHandler defines a function that is called when events
// occur in the relay.
type EventHandler func(v string, args ...any)

// Handler interface represents the behavior required to be implemented by
// any package consuming the messages received by the relay.
type Handler interface {
	HandleMessage(from peer.Conn, msg message.Message)
	ConnectionClosed(conn peer.Conn)
}

// =============================================================================

// Relay manages the set of live connections.
type Relay struct {
	evHandler EventHandler
	conns     *peer.Set

	// Handler is not set here. The consumer of the messages registers
	// itself when it is constructed.
	Handler Handler
}

// New constructs a relay with no connections.
func New(evHandler EventHandler) *Relay {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Relay{
		evHandler: ev,
		conns:     peer.NewSet(),
	}
}

// Serve subscribes the websocket connection to the relay and reads frames
// until the connection fails or the context is cancelled. Frames from a
// single connection are handled in arrival order. The websocket is closed
// when Serve returns.
func (r *Relay) Serve(ctx context.Context, ws *websocket.Conn) error {
	conn := NewWSConn(ws)
	defer conn.Close()

	r.Subscribe(conn)
	r.evHandler("relay: Serve: subscribed: conn[%s]: clients[%d]", conn.ID(), r.conns.Len())

	// Close the connection when the context is cancelled so the read
	// below returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		frameType, data, err := ws.ReadMessage()
		if err != nil {
			conn.markClosed()
			r.evHandler("relay: Serve: conn[%s]: read: %s", conn.ID(), err)
			r.pruneDead()
			return nil
		}

		r.Receive(conn, frameType, data)
	}
}

// Subscribe adds the connection to the live set.
func (r *Relay) Subscribe(conn peer.Conn) {
	r.conns.Add(conn)
}

// Receive decodes a frame from the specified connection and hands it to
// the handler. Frames that are not decodable text messages are dropped.
func (r *Relay) Receive(from peer.Conn, frameType int, data []byte) {
	if frameType != websocket.TextMessage {
		r.evHandler("relay: Receive: conn[%s]: WARNING: %s: frame[%d]", from.ID(), ErrUnsupportedFrame, frameType)
		return
	}

	msg, err := message.Decode(data)
	if err != nil {
		r.evHandler("relay: Receive: conn[%s]: WARNING: %s: %s", from.ID(), ErrUnsupportedFrame, err)
		return
	}

	r.evHandler("relay: Receive: conn[%s]: type[%s]: id[%s]", from.ID(), msg.Type(), msg.CorrelationID())

	if r.Handler == nil {
		r.evHandler("relay: Receive: WARNING: no handler registered")
		return
	}

	r.Handler.HandleMessage(from, msg)
}

// BroadcastExcept sends the message to every live connection other than
// the excluded one. Delivery is fire and forget.
func (r *Relay) BroadcastExcept(excluded peer.Conn, msg message.Message) {
	data, err := message.Encode(msg)
	if err != nil {
		r.evHandler("relay: BroadcastExcept: ERROR: %s", err)
		return
	}

	var failed bool
	for _, conn := range r.conns.Copy() {
		if conn == excluded || conn.Closed() {
			continue
		}

		if err := conn.Send(data); err != nil {
			r.evHandler("relay: BroadcastExcept: conn[%s]: WARNING: %s", conn.ID(), err)
			failed = true
		}
	}

	if failed {
		r.pruneDead()
	}
}

// ReplyTo sends the message to exactly one connection.
func (r *Relay) ReplyTo(conn peer.Conn, msg message.Message) error {
	data, err := message.Encode(msg)
	if err != nil {
		return err
	}

	if err := conn.Send(data); err != nil {

		// The handler may be replying while holding its own lock.
		go r.pruneDead()
		return fmt.Errorf("reply to conn[%s]: %w", conn.ID(), err)
	}

	return nil
}

// Clients returns a snapshot of the live connections.
func (r *Relay) Clients() []peer.Conn {
	return r.conns.Copy()
}

// Shutdown closes every live connection.
func (r *Relay) Shutdown() {
	for _, conn := range r.conns.Copy() {
		conn.Close()
	}
	r.pruneDead()
}

// =============================================================================

// pruneDead removes the connections whose state is closing or closed and
// tells the handler about each one of them.
func (r *Relay) pruneDead() {
	for _, conn := range r.conns.Prune() {
		r.evHandler("relay: pruneDead: conn[%s]: removed: clients[%d]", conn.ID(), r.conns.Len())

		if r.Handler != nil {
			r.Handler.ConnectionClosed(conn)
		}
	}
}
