package core

import (
	"sync"

	"github.com/vovakirdan/voxroom-server/internal/utils"
)

// ConnID identifies a live transport connection.
type ConnID string

// Close reasons reported through Conn.CloseReason.
const (
	CloseDisconnected = "disconnected"
	CloseKicked       = "kicked"
	CloseBanned       = "banned"
	CloseSlowConsumer = "slow consumer"
)

// Conn is a live client connection as seen by the core layer.
// The transport drains Events and closes the socket once Done is closed.
type Conn struct {
	ID ConnID

	events      chan *Event
	done        chan struct{}
	closeOnce   sync.Once
	closeReason string
	onSlow      func(ConnID)

	// guarded by Registry.mu
	session  *Session
	room     *Room
	remoteID string
}

func newConn(id ConnID, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 64
	}
	return &Conn{
		ID:     id,
		events: make(chan *Event, buffer),
		done:   make(chan struct{}),
	}
}

// Events returns the outbound event queue.
func (c *Conn) Events() <-chan *Event { return c.events }

// Done is closed when the core wants the transport connection gone.
func (c *Conn) Done() <-chan struct{} { return c.done }

// CloseReason is valid once Done is closed.
func (c *Conn) CloseReason() string {
	select {
	case <-c.done:
		return c.closeReason
	default:
		return ""
	}
}

// terminate closes Done once. Reports whether this call closed it.
func (c *Conn) terminate(reason string) bool {
	closed := false
	c.closeOnce.Do(func() {
		c.closeReason = reason
		close(c.done)
		closed = true
	})
	return closed
}

// send enqueues an event without blocking. A full queue means the client cannot
// keep up; the connection is terminated rather than silently losing events.
func (c *Conn) send(ev *Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	default:
		if c.terminate(CloseSlowConsumer) && c.onSlow != nil {
			c.onSlow(c.ID)
		}
		return false
	}
}

// Registry tracks every live connection. Its lock also guards session, room and
// remote-id fields of each Conn. Lock order: registry, directory, room, then leaf locks.
type Registry struct {
	mu     sync.RWMutex
	conns  map[ConnID]*Conn
	buffer int
	newID  func() string
	onSlow func(ConnID)
}

// NewRegistry creates an empty registry with the given per-connection event buffer.
func NewRegistry(buffer int) *Registry {
	return &Registry{
		conns:  make(map[ConnID]*Conn),
		buffer: buffer,
		newID:  utils.NewConnID,
	}
}

// caller holds mu for writing
func (r *Registry) add() *Conn {
	id := ConnID(r.newID())
	for r.conns[id] != nil {
		id = ConnID(r.newID())
	}
	conn := newConn(id, r.buffer)
	conn.onSlow = r.onSlow
	r.conns[id] = conn
	return conn
}

// caller holds mu for writing
func (r *Registry) remove(id ConnID) *Conn {
	conn := r.conns[id]
	if conn != nil {
		delete(r.conns, id)
	}
	return conn
}

// caller holds mu
func (r *Registry) get(id ConnID) *Conn {
	return r.conns[id]
}

// caller holds mu
func (r *Registry) live(conn *Conn) bool {
	return conn != nil && r.conns[conn.ID] == conn
}

// caller holds mu
func (r *Registry) each(fn func(*Conn)) {
	for _, conn := range r.conns {
		fn(conn)
	}
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
