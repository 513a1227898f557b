package core

import "sync"

// Room groups connections subscribed to the same voice channel.
// Membership changes happen with the registry lock held for writing, so a reader
// holding the registry lock always sees membership consistent with Conn.room.
type Room struct {
	mu sync.Mutex

	// guarded by Directory.mu for writes, readable under the registry lock
	name         string
	passwordHash string
	hidden       bool
	isDefault    bool
	adhoc        bool

	members []*Conn
}

func newRoom(name string, isDefault bool) *Room {
	return &Room{name: name, isDefault: isDefault, adhoc: !isDefault}
}

// Name returns the current room name.
func (r *Room) Name() string { return r.name }

// add inserts a connection. Returns true if newly added.
func (r *Room) add(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m == c {
			return false
		}
	}
	r.members = append(r.members, c)
	return true
}

// remove deletes a connection. Returns true if removed.
func (r *Room) remove(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) contains(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m == c {
			return true
		}
	}
	return false
}

func (r *Room) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0
}

// occupants must be called with the registry lock held, since it reads sessions.
func (r *Room) occupants() []Occupant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Occupant, 0, len(r.members))
	for _, m := range r.members {
		if m.session == nil {
			continue
		}
		out = append(out, m.session.occupant(m.ID))
	}
	return out
}

// broadcast delivers events, in order, to every member except skip.
// Holding the room lock for the whole call keeps all members seeing the same order.
func (r *Room) broadcast(skip *Conn, events ...*Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m == skip {
			continue
		}
		for _, ev := range events {
			m.send(ev)
		}
	}
}

func (r *Room) configView() RoomConfigView {
	return RoomConfigView{
		Name:    r.name,
		Locked:  r.passwordHash != "",
		Hidden:  r.hidden,
		Default: r.isDefault,
	}
}
