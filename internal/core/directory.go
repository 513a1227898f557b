package core

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

const maxRoomNameLength = 64

// PasswordHasher hashes and verifies room passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Directory owns room definitions. Default rooms persist regardless of occupancy;
// ad hoc rooms are removed when their last member leaves.
type Directory struct {
	mu         sync.RWMutex
	rooms      map[string]*Room
	defaults   []string
	allowAdhoc bool
	hasher     PasswordHasher
}

// NewDirectory creates a directory seeded with the default rooms, in priority order.
func NewDirectory(defaults []string, allowAdhoc bool, hasher PasswordHasher) *Directory {
	d := &Directory{
		rooms:      make(map[string]*Room),
		allowAdhoc: allowAdhoc,
		hasher:     hasher,
	}
	for _, name := range defaults {
		name = strings.TrimSpace(name)
		if name == "" || d.rooms[name] != nil {
			continue
		}
		d.defaults = append(d.defaults, name)
		d.rooms[name] = newRoom(name, true)
	}
	return d
}

func normalizeRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", badRequest("room name is required")
	}
	if utf8.RuneCountInString(name) > maxRoomNameLength {
		return "", badRequest("room name is too long")
	}
	return name, nil
}

func (d *Directory) get(name string) *Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rooms[name]
}

// resolve returns the named room, creating an ad hoc room when allowed.
func (d *Directory) resolve(name string) (*Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if room := d.rooms[name]; room != nil {
		return room, nil
	}
	if !d.allowAdhoc {
		return nil, ErrRoomNotFound
	}
	room := newRoom(name, false)
	d.rooms[name] = room
	return room, nil
}

// passwordHash returns the stored hash of the named room, if the room exists.
func (d *Directory) passwordHash(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room := d.rooms[name]
	if room == nil {
		return "", false
	}
	return room.passwordHash, true
}

// checkPassword verifies password against the room's current hash.
// An unprotected or unknown room always passes.
func (d *Directory) checkPassword(name, password string) (string, bool) {
	hash, ok := d.passwordHash(name)
	if !ok || hash == "" {
		return hash, true
	}
	if password == "" || d.hasher == nil {
		return hash, false
	}
	return hash, d.hasher.Compare(hash, password)
}

// collect drops an ad hoc room once nobody is in it. Caller holds the registry lock for writing.
func (d *Directory) collect(room *Room) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !room.adhoc || !room.empty() {
		return
	}
	if d.rooms[room.name] == room {
		delete(d.rooms, room.name)
	}
}

// ordered returns rooms with default rooms first in priority order, then the rest by name.
func (d *Directory) ordered() []*Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*Room, 0, len(d.rooms))
	seen := make(map[*Room]struct{}, len(d.rooms))
	for _, name := range d.defaults {
		if room := d.rooms[name]; room != nil {
			out = append(out, room)
			seen[room] = struct{}{}
		}
	}

	rest := make([]*Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		if _, ok := seen[room]; !ok {
			rest = append(rest, room)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].name < rest[j].name })
	return append(out, rest...)
}

// publicState lists occupants of every non-hidden room. Caller holds the registry lock.
func (d *Directory) publicState() []RoomState {
	rooms := d.ordered()
	out := make([]RoomState, 0, len(rooms))
	for _, room := range rooms {
		if room.hidden {
			continue
		}
		out = append(out, RoomState{Name: room.name, Occupants: room.occupants()})
	}
	return out
}

// configs returns the config view; hidden rooms are included only when includeHidden is set.
func (d *Directory) configs(includeHidden bool) []RoomConfigView {
	rooms := d.ordered()
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RoomConfigView, 0, len(rooms))
	for _, room := range rooms {
		if room.hidden && !includeHidden {
			continue
		}
		out = append(out, room.configView())
	}
	return out
}

// UpdateConfig renames and/or reconfigures a room on behalf of executorRole.
// passwordHash follows RoomConfigUpdate.Password semantics, already hashed.
// Renaming a default room fails with ErrImmutableRoom whatever the role.
// Caller holds the registry lock for writing so members never observe a half-renamed room.
func (d *Directory) UpdateConfig(executorRole Role, name, newName string, passwordHash *string, hidden *bool) (*Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room := d.rooms[name]
	if room == nil {
		return nil, ErrRoomNotFound
	}

	newName = strings.TrimSpace(newName)
	rename := newName != "" && newName != room.name
	if rename && room.isDefault {
		return nil, ErrImmutableRoom
	}
	if executorRole != RoleAdmin {
		return nil, ErrForbidden
	}
	if rename {
		if _, err := normalizeRoomName(newName); err != nil {
			return nil, err
		}
		if d.rooms[newName] != nil {
			return nil, ErrRoomExists
		}
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if rename {
		delete(d.rooms, room.name)
		room.name = newName
		d.rooms[newName] = room
	}
	if passwordHash != nil {
		room.passwordHash = *passwordHash
	}
	if hidden != nil {
		room.hidden = *hidden
	}
	// a room an admin configured is kept even when it empties
	room.adhoc = false
	return room, nil
}
