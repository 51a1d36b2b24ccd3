package relay

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrConnClosed is returned when sending on a connection that is closing
// or closed.
var ErrConnClosed = errors.New("connection is closed")

// writeWait is the time allowed to write a frame to the peer.
const writeWait = 10 * time.Second

// WSConn adapts a gorilla websocket connection to the peer.Conn interface.
// Writes are serialized since the websocket package supports only one
// concurrent writer.
type WSConn struct {
	id     string
	ws     *websocket.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

// NewWSConn constructs a connection value for the specified websocket.
func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{
		id: uuid.NewString(),
		ws: ws,
	}
}

// ID returns the unique id given to this connection.
func (c *WSConn) ID() string {
	return c.id
}

// Send writes the data as a single text frame.
func (c *WSConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrConnClosed
	}

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.closed.Store(true)
		return err
	}

	return nil
}

// Closed reports whether the connection is closing or closed.
func (c *WSConn) Closed() bool {
	return c.closed.Load()
}

// Close closes the underlying websocket.
func (c *WSConn) Close() error {
	c.closed.Store(true)
	return c.ws.Close()
}

func (c *WSConn) markClosed() {
	c.closed.Store(true)
}
