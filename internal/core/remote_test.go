package core

import (
	"testing"
	"time"
)

func TestRemoteBrokerClaim(t *testing.T) {
	b := NewRemoteBroker(0, 0)
	seq := []string{"bad", "22222222", "33333333"}
	b.newID = func() string {
		id := seq[0]
		seq = seq[1:]
		return id
	}

	if got := b.claim("a", "11111111"); got != "11111111" {
		t.Fatalf("expected claimed id, got %s", got)
	}
	if got := b.claim("a", ""); got != "11111111" {
		t.Fatalf("empty claim keeps current id, got %s", got)
	}
	if got := b.claim("b", "11111111"); got != "22222222" {
		t.Fatalf("collision should skip invalid ids and issue fresh one, got %s", got)
	}
	if got := b.claim("c", "12ab"); got != "33333333" {
		t.Fatalf("malformed claim should issue fresh id, got %s", got)
	}
	if conn, ok := b.resolve("22222222"); !ok || conn != "b" {
		t.Fatalf("resolve: %s %v", conn, ok)
	}

	b.release("a")
	if _, ok := b.resolve("11111111"); ok {
		t.Fatal("released id must not resolve")
	}

	// a reconnecting client gets its old id back once the previous socket let go
	if got := b.claim("d", "11111111"); got != "11111111" {
		t.Fatalf("expected released id to be reclaimed, got %s", got)
	}
	if conn, ok := b.resolve("11111111"); !ok || conn != "d" {
		t.Fatalf("reclaimed id resolves to %s %v", conn, ok)
	}
}

func TestRemoteBrokerSessions(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewRemoteBroker(time.Second, time.Minute)

	b.request("viewer", "host", now)
	if !b.takeRequest("viewer", "host") || b.takeRequest("viewer", "host") {
		t.Fatal("a request is taken exactly once")
	}

	s := b.start("viewer", "host", now)
	if again := b.start("viewer", "host", now); again.ID != s.ID {
		t.Fatal("the same pair reuses its session")
	}
	if !b.authorize("viewer", "host", now) || b.authorize("host", "viewer", now) {
		t.Fatal("authorization is directional")
	}
	if b.ActiveSessions() != 1 {
		t.Fatalf("expected 1 session, got %d", b.ActiveSessions())
	}

	b.request("other", "host", now)
	reqs, sessions := b.release("host")
	if len(reqs) != 1 || len(sessions) != 1 {
		t.Fatalf("release should drop request and session, got %d %d", len(reqs), len(sessions))
	}
	if b.ActiveSessions() != 0 {
		t.Fatal("no sessions should remain")
	}
}
