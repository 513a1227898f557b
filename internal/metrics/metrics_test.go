package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	m.ConnectionOpened()
	m.Relayed("offer")
	m.Moderation("kick")
	m.SetControlSessions(3)
}

func TestCountersRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.Relayed("offer")
	m.Relayed("offer")
	m.RelayDropped("answer")
	m.Moderation("ban")

	if got := testutil.ToFloat64(m.connections); got != 1 {
		t.Fatalf("connections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.relayed.WithLabelValues("offer")); got != 2 {
		t.Fatalf("relayed offer = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.relayDropped.WithLabelValues("answer")); got != 1 {
		t.Fatalf("dropped answer = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.moderation.WithLabelValues("ban")); got != 1 {
		t.Fatalf("moderation ban = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected registered metric families")
	}
}
