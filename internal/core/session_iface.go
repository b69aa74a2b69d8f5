package core

import (
	"time"

	"github.com/dkeye/Vision/internal/domain"
)

// SessionState tracks where a client is in its lifecycle. It is fed by the
// negotiator and by engine state-change events.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateNegotiating
	StateConnected
	StateClosed
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ClientSession binds a client's identity, role and its two transport
// endpoints. This is what the registry stores and the orchestrator fans
// out to.
type ClientSession interface {
	ID() domain.ClientID
	Role() domain.Role
	State() SessionState
	SetState(SessionState)
	Signal() SignalConnection
	Media() MediaConnection

	// Subscribe merges publisher ids into the subscription set.
	Subscribe(ids ...domain.ClientID)
	SubscribedTo(id domain.ClientID) bool
	Subscriptions() []domain.ClientID

	// ArmAnswerTimeout marks a relay-sent offer as outstanding and, for d > 0,
	// schedules onExpire unless AnswerReceived is called first.
	ArmAnswerTimeout(d time.Duration, onExpire func())
	// AnswerReceived clears the outstanding-offer mark and stops a pending
	// timer; it reports whether an offer was actually outstanding.
	AnswerReceived() bool
}
