// Package peer maintains the set of live connections to peers.
package peer

import (
	"sync"
)

// Conn represents a bidirectional connection to a peer.
type Conn interface {
	ID() string
	Send(data []byte) error
	Closed() bool
	Close() error
}

// =============================================================================

// Set represents the data representation to maintain a set of live
// connections.
type Set struct {
	mu  sync.RWMutex
	set map[Conn]struct{}
}

// NewSet constructs a new set to manage peer connections.
func NewSet() *Set {
	return &Set{
		set: make(map[Conn]struct{}),
	}
}

// Add adds a new connection to the set.
func (ps *Set) Add(conn Conn) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[conn]
	if !exists {
		ps.set[conn] = struct{}{}
		return true
	}

	return false
}

// Remove removes a connection from the set.
func (ps *Set) Remove(conn Conn) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, conn)
}

// Contains reports whether the connection is in the set.
func (ps *Set) Contains(conn Conn) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	_, exists := ps.set[conn]
	return exists
}

// Len returns the number of connections in the set.
func (ps *Set) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.set)
}

// Copy returns a list of the connections in the set.
func (ps *Set) Copy() []Conn {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	conns := make([]Conn, 0, len(ps.set))
	for conn := range ps.set {
		conns = append(conns, conn)
	}

	return conns
}

// Prune removes the connections that report they are closing or closed
// and returns them.
func (ps *Set) Prune() []Conn {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var dead []Conn
	for conn := range ps.set {
		if conn.Closed() {
			delete(ps.set, conn)
			dead = append(dead, conn)
		}
	}

	return dead
}
