// Package control implements the two-variant control strategy (orchestrated,
// monitored) that drives the pipeline, and the layered fallback policy that
// degrades a run one tier at a time when the current tier cannot proceed.
package control

import (
	"sync"
	"time"
)

// Tier is one level of the control-strategy/fallback hierarchy, ordered from
// most to least capable.
type Tier int

const (
	TierOrchestrated Tier = iota
	TierMonitored
	TierOffline
	TierDegradedStage
)

func (t Tier) String() string {
	switch t {
	case TierOrchestrated:
		return "orchestrated"
	case TierMonitored:
		return "monitored"
	case TierOffline:
		return "offline"
	case TierDegradedStage:
		return "degraded_stage"
	default:
		return "unknown"
	}
}

// Transition records one tier downgrade.
type Transition struct {
	From      Tier      `json:"from"`
	To        Tier      `json:"to"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// FallbackState tracks the current tier of a single request. Transitions
// are one-directional: a run may only move to a lower-capability tier for
// the remainder of the request.
type FallbackState struct {
	mu          sync.Mutex
	tier        Tier
	transitions []Transition
}

// NewFallbackState starts a request at the given tier.
func NewFallbackState(initial Tier) *FallbackState {
	return &FallbackState{tier: initial}
}

// Tier returns the current tier.
func (s *FallbackState) Tier() Tier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tier
}

// Downgrade moves to a lower-capability tier and records why. Attempts to
// move up (or sideways) are ignored and return false.
func (s *FallbackState) Downgrade(to Tier, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to <= s.tier {
		return false
	}
	s.transitions = append(s.transitions, Transition{
		From:      s.tier,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
	s.tier = to
	return true
}

// Degraded reports whether any downgrade happened.
func (s *FallbackState) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transitions) > 0
}

// Transitions returns the downgrade history in order.
func (s *FallbackState) Transitions() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transition, len(s.transitions))
	copy(out, s.transitions)
	return out
}
