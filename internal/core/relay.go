package core

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/voxroom-server/internal/metrics"
)

// SignalKind is the kind of a relayed payload.
type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
	SignalInput        SignalKind = "input-event"
)

// Valid reports whether k is a known signal kind.
func (k SignalKind) Valid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalICECandidate, SignalInput:
		return true
	}
	return false
}

// Relay forwards opaque payloads between two specific connections.
// Delivery is best effort and at most once: unknown targets are dropped.
// Payloads from one sender reach a target in send order because each sender's
// reader goroutine forwards sequentially into the target's FIFO queue.
type Relay struct {
	registry *Registry
	metrics  *metrics.Metrics
	log      *zerolog.Logger
}

// NewRelay builds a relay over the registry.
func NewRelay(registry *Registry, m *metrics.Metrics, logger *zerolog.Logger) *Relay {
	return &Relay{registry: registry, metrics: m, log: logger}
}

// Forward delivers payload verbatim to target. Returns false when dropped.
func (r *Relay) Forward(kind SignalKind, from, to ConnID, payload json.RawMessage) bool {
	return r.deliver(&Signal{Kind: kind, From: from, To: to, Payload: payload})
}

// ForwardInput delivers a validated input event to the controlled peer.
func (r *Relay) ForwardInput(from, to ConnID, in InputEvent) bool {
	return r.deliver(&Signal{Kind: SignalInput, From: from, To: to, Input: &in})
}

func (r *Relay) deliver(sig *Signal) bool {
	r.registry.mu.RLock()
	defer r.registry.mu.RUnlock()

	kind := string(sig.Kind)
	target := r.registry.get(sig.To)
	if target == nil || r.registry.get(sig.From) == nil {
		r.metrics.RelayDropped(kind)
		r.log.Debug().Str("kind", kind).Str("from", string(sig.From)).Str("to", string(sig.To)).Msg("relay target gone, dropping")
		return false
	}

	ok := target.send(&Event{Kind: EventSignal, Signal: sig})
	if ok {
		r.metrics.Relayed(kind)
	} else {
		r.metrics.RelayDropped(kind)
	}
	return ok
}
