package orch

import (
	"context"
	"time"

	"github.com/dkeye/Vision/internal/app"
	"github.com/dkeye/Vision/internal/app/sfu"
	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/rs/zerolog/log"
)

// MediaFactory builds the engine-side connection handle for a new client.
type MediaFactory func(id domain.ClientID) (core.MediaConnection, error)

type Orchestrator struct {
	Registry  *app.Registry
	Cache     *app.PublicationCache
	Forwarder *sfu.Forwarder
	Policy    app.Policy
	NewMedia  MediaFactory

	// NegotiationTimeout bounds the wait for an answer after a relay-sent
	// offer; 0 disables the bound.
	NegotiationTimeout time.Duration
}

// Connect creates the session and its media handle, wires engine events and
// installs it in the registry. A prior session with the same id is replaced.
func (o *Orchestrator) Connect(ctx context.Context, id domain.ClientID, role domain.Role, sig core.SignalConnection, cancel context.CancelFunc) (core.ClientSession, error) {
	mc, err := o.NewMedia(id)
	if err != nil {
		return nil, err
	}
	sess := core.NewClientSession(id, role, sig, mc)

	mc.OnICECandidate(func(ci *core.CandidateInit) {
		o.sendLocalCandidate(sess, ci)
	})
	mc.OnStateChange(func(state string) {
		o.onEngineState(sess, state)
	})
	mc.OnClosed(func() {
		sess.SetState(core.StateClosed)
	})
	if role == domain.RolePublisher {
		mc.OnTrack(func(trackCtx context.Context, src core.TrackSource) {
			o.OnTrack(trackCtx, id, src)
		})
	}

	if err := mc.Start(ctx); err != nil {
		mc.Close()
		return nil, err
	}

	o.Registry.Register(sess, cancel)
	return sess, nil
}

// OnDisconnect tears one client down: relay legs, registry entry, handles.
// Cached publications are deliberately left in place for late joiners. The
// teardown is keyed by session, not id: when the id was re-registered in the
// meantime the stale pump's disconnect must leave the replacement alone.
func (o *Orchestrator) OnDisconnect(sess core.ClientSession) {
	id := sess.ID()
	cur, ok := o.Registry.Lookup(id)
	if !ok || cur != sess {
		log.Info().Str("module", "orch").Str("id", string(id)).Msg("stale disconnect, id re-registered")
		return
	}
	if sess.Role() == domain.RolePublisher {
		o.Forwarder.StopRelay(id)
	} else {
		o.Forwarder.Detach(id)
	}
	o.Registry.UnregisterSession(sess)
	log.Info().Str("module", "orch").Str("id", string(id)).Msg("session torn down")
}

func (o *Orchestrator) onEngineState(sess core.ClientSession, state string) {
	log.Info().
		Str("module", "orch").
		Str("id", string(sess.ID())).
		Str("peer_connection_state", state).
		Msg("engine state")
	switch state {
	case "connected":
		sess.SetState(core.StateConnected)
	case "connecting":
		sess.SetState(core.StateNegotiating)
	case "failed":
		sess.SetState(core.StateFailed)
	case "closed":
		sess.SetState(core.StateClosed)
	}
}

func (o *Orchestrator) sendLocalCandidate(sess core.ClientSession, ci *core.CandidateInit) {
	if ci == nil {
		o.send(sess, core.Envelope{Type: core.TypeICEComplete, From: core.SenderRelay})
		return
	}
	o.send(sess, core.Envelope{Type: core.TypeICE, From: core.SenderRelay, Candidate: ci})
}

// send delivers one envelope to a session's signaling transport. Delivery
// failures are contained; the policy decides whether the client is kicked.
func (o *Orchestrator) send(sess core.ClientSession, env core.Envelope) bool {
	frame, err := env.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("type", env.Type).Msg("encode envelope")
		return false
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Warn().
			Err(err).
			Str("module", "orch").
			Str("id", string(sess.ID())).
			Str("type", env.Type).
			Msg("delivery failed")
		if o.Policy != nil && o.Policy.OnDeliveryFailure(sess.Role()) == app.KickClient {
			o.Forwarder.Detach(sess.ID())
			o.Registry.UnregisterSession(sess)
		}
		return false
	}
	return true
}
