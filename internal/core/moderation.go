package core

import (
	"sort"
	"strings"
	"sync"
)

// Moderation holds the ban list. Bans are keyed by display name, compared
// case-insensitively after trimming, and last for the process lifetime.
type Moderation struct {
	mu   sync.RWMutex
	bans map[string]string
}

// NewModeration creates an empty ban list.
func NewModeration() *Moderation {
	return &Moderation{bans: make(map[string]string)}
}

func banKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Ban adds a display name. Returns false if it was already banned or empty.
func (m *Moderation) Ban(name string) bool {
	key := banKey(name)
	if key == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bans[key]; ok {
		return false
	}
	m.bans[key] = strings.TrimSpace(name)
	return true
}

// Unban removes a display name. Returns false if it was not banned.
func (m *Moderation) Unban(name string) bool {
	key := banKey(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bans[key]; !ok {
		return false
	}
	delete(m.bans, key)
	return true
}

// IsBanned reports whether a display name is banned.
func (m *Moderation) IsBanned(name string) bool {
	key := banKey(name)
	if key == "" {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.bans[key]
	return ok
}

// List returns banned display names sorted alphabetically.
func (m *Moderation) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.bans))
	for _, name := range m.bans {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
