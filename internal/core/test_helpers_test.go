package core

import (
	"testing"
	"time"
)

const testAdminKey = "test-admin-key"

type staticAdmins string

func (s staticAdmins) IsAdminKey(key string) bool { return key == string(s) }

// plainHasher keeps tests fast; the bcrypt implementation is tested in auth.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Compare(hash, password string) bool { return hash == "plain:"+password }

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	return NewCoordinator(Options{
		DefaultRooms:          []string{"Lobby", "Games"},
		AllowAdhocRooms:       true,
		EventBuffer:           256,
		ControlRequestTimeout: time.Minute,
		ControlIdleTimeout:    time.Minute,
	}, Deps{
		Admins: staticAdmins(testAdminKey),
		Hasher: plainHasher{},
	})
}

func login(t *testing.T, c *Coordinator, name string) *Conn {
	t.Helper()
	conn := c.Connect()
	if _, err := c.Login(conn, Identity{DisplayName: name}); err != nil {
		t.Fatalf("login %s: %v", name, err)
	}
	drain(conn)
	return conn
}

func loginAdmin(t *testing.T, c *Coordinator, name string) *Conn {
	t.Helper()
	conn := c.Connect()
	role, err := c.Login(conn, Identity{DisplayName: name, AdminKey: testAdminKey})
	if err != nil {
		t.Fatalf("login %s: %v", name, err)
	}
	if role != RoleAdmin {
		t.Fatalf("expected admin role, got %s", role)
	}
	drain(conn)
	return conn
}

func join(t *testing.T, c *Coordinator, conn *Conn, room string) {
	t.Helper()
	if _, err := c.JoinRoom(conn, room, "", Identity{}); err != nil {
		t.Fatalf("join %s: %v", room, err)
	}
}

func drain(conn *Conn) {
	for {
		select {
		case <-conn.Events():
		default:
			return
		}
	}
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNotEvent fails if an event of kind is already queued on ch.
func mustNotEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v", kind)
			}
		default:
			return
		}
	}
}

func occupantIDs(occ []Occupant) map[ConnID]bool {
	out := make(map[ConnID]bool, len(occ))
	for _, o := range occ {
		out[o.ID] = true
	}
	return out
}
