package core

import (
	"strings"
	"unicode/utf8"
)

// Role is the privilege level of a session.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const maxDisplayNameLength = 32

// Session is the identity attached to a connection after login.
// Fields are guarded by the registry lock.
type Session struct {
	DisplayName string
	Avatar      string
	Color       string
	Role        Role
}

// Identity is what a client claims about itself on login or join.
type Identity struct {
	DisplayName string
	Avatar      string
	Color       string
	AdminKey    string
}

// Occupant describes a room member in presence broadcasts.
type Occupant struct {
	ID          ConnID
	DisplayName string
	Avatar      string
	Color       string
	Role        Role
}

func normalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", badRequest("display name is required")
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		return "", badRequest("display name is too long")
	}
	return name, nil
}

func (s *Session) occupant(id ConnID) Occupant {
	return Occupant{
		ID:          id,
		DisplayName: s.DisplayName,
		Avatar:      s.Avatar,
		Color:       s.Color,
		Role:        s.Role,
	}
}

// promote raises the role; roles never go down within a session.
func (s *Session) promote(role Role) {
	if role == RoleAdmin {
		s.Role = RoleAdmin
	}
}
