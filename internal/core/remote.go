package core

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vovakirdan/voxroom-server/internal/utils"
)

// ControlSession is an accepted remote-control relationship.
type ControlSession struct {
	ID         string
	Controller ConnID
	Controlled ConnID
	StartedAt  time.Time
	LastSeen   time.Time
}

// ControlRequest is a pending request awaiting the target's answer.
type ControlRequest struct {
	Requester ConnID
	Target    ConnID
	CreatedAt time.Time
}

type requestKey struct {
	requester ConnID
	target    ConnID
}

// RemoteBroker maps remote-control identifiers to live connections and tracks
// pending requests and active control sessions. Its lock is a leaf lock.
type RemoteBroker struct {
	mu       sync.Mutex
	byID     map[string]ConnID
	byConn   map[ConnID]string
	pending  map[requestKey]*ControlRequest
	sessions map[string]*ControlSession

	requestTimeout time.Duration
	idleTimeout    time.Duration
	newID          func() string
}

// NewRemoteBroker creates a broker with the given expiry policy. Zero timeouts disable expiry.
func NewRemoteBroker(requestTimeout, idleTimeout time.Duration) *RemoteBroker {
	return &RemoteBroker{
		byID:           make(map[string]ConnID),
		byConn:         make(map[ConnID]string),
		pending:        make(map[requestKey]*ControlRequest),
		sessions:       make(map[string]*ControlSession),
		requestTimeout: requestTimeout,
		idleTimeout:    idleTimeout,
		newID:          utils.NewRemoteID,
	}
}

// claim assigns a remote id to conn. The claimed id is honored when it is well formed
// and no other live connection holds it; otherwise a fresh id is issued.
func (b *RemoteBroker) claim(conn ConnID, claimed string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if current, ok := b.byConn[conn]; ok {
		if claimed == "" || claimed == current {
			return current
		}
	}

	assigned := claimed
	if holder, taken := b.byID[claimed]; !utils.ValidRemoteID(claimed) || (taken && holder != conn) {
		assigned = b.freshLocked()
	}

	if current, ok := b.byConn[conn]; ok && current != assigned {
		delete(b.byID, current)
	}
	b.byID[assigned] = conn
	b.byConn[conn] = assigned
	return assigned
}

func (b *RemoteBroker) freshLocked() string {
	for {
		id := b.newID()
		if _, taken := b.byID[id]; !taken && utils.ValidRemoteID(id) {
			return id
		}
	}
}

// resolve returns the connection holding remoteID.
func (b *RemoteBroker) resolve(remoteID string) (ConnID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	conn, ok := b.byID[remoteID]
	return conn, ok
}

func (b *RemoteBroker) request(requester, target ConnID, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[requestKey{requester, target}] = &ControlRequest{
		Requester: requester,
		Target:    target,
		CreatedAt: now,
	}
}

// takeRequest removes and reports a pending request from requester to target.
func (b *RemoteBroker) takeRequest(requester, target ConnID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := requestKey{requester, target}
	if _, ok := b.pending[key]; !ok {
		return false
	}
	delete(b.pending, key)
	return true
}

// start opens a control session, reusing an existing one for the same pair.
func (b *RemoteBroker) start(controller, controlled ConnID, now time.Time) *ControlSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sessions {
		if s.Controller == controller && s.Controlled == controlled {
			s.LastSeen = now
			return s
		}
	}
	s := &ControlSession{
		ID:         ulid.Make().String(),
		Controller: controller,
		Controlled: controlled,
		StartedAt:  now,
		LastSeen:   now,
	}
	b.sessions[s.ID] = s
	return s
}

// authorize reports whether controller holds an active session over controlled,
// refreshing its liveness.
func (b *RemoteBroker) authorize(controller, controlled ConnID, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sessions {
		if s.Controller == controller && s.Controlled == controlled {
			s.LastSeen = now
			return true
		}
	}
	return false
}

// heartbeat refreshes every session conn takes part in. Returns the number refreshed.
func (b *RemoteBroker) heartbeat(conn ConnID, now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.sessions {
		if s.Controller == conn || s.Controlled == conn {
			s.LastSeen = now
			n++
		}
	}
	return n
}

// end removes the sessions conn takes part in, optionally only those with peer.
func (b *RemoteBroker) end(conn, peer ConnID) []*ControlSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*ControlSession
	for id, s := range b.sessions {
		if s.Controller != conn && s.Controlled != conn {
			continue
		}
		if peer != "" && s.Controller != peer && s.Controlled != peer {
			continue
		}
		delete(b.sessions, id)
		out = append(out, s)
	}
	return out
}

// release drops everything held by a departing connection: its remote id,
// the pending requests it is part of and its control sessions.
func (b *RemoteBroker) release(conn ConnID) ([]*ControlRequest, []*ControlSession) {
	b.mu.Lock()
	if id, ok := b.byConn[conn]; ok {
		delete(b.byConn, conn)
		if b.byID[id] == conn {
			delete(b.byID, id)
		}
	}
	var requests []*ControlRequest
	for key, req := range b.pending {
		if key.requester == conn || key.target == conn {
			delete(b.pending, key)
			requests = append(requests, req)
		}
	}
	b.mu.Unlock()

	return requests, b.end(conn, "")
}

// expire removes requests and sessions older than the configured timeouts.
func (b *RemoteBroker) expire(now time.Time) ([]*ControlRequest, []*ControlSession) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var requests []*ControlRequest
	if b.requestTimeout > 0 {
		for key, req := range b.pending {
			if now.Sub(req.CreatedAt) >= b.requestTimeout {
				delete(b.pending, key)
				requests = append(requests, req)
			}
		}
	}

	var sessions []*ControlSession
	if b.idleTimeout > 0 {
		for id, s := range b.sessions {
			if now.Sub(s.LastSeen) >= b.idleTimeout {
				delete(b.sessions, id)
				sessions = append(sessions, s)
			}
		}
	}
	return requests, sessions
}

// ActiveSessions returns the number of active control sessions.
func (b *RemoteBroker) ActiveSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}
