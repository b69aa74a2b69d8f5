package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// OnTrack is called when a publisher's remote track arrives. It caches the
// source, starts the fan-out loop and attaches every currently-subscribed
// viewer. A failure on one leg removes that viewer and never blocks the rest.
func (o *Orchestrator) OnTrack(ctx context.Context, pub domain.ClientID, src core.TrackSource) {
	o.Cache.SetSource(pub, src)
	o.Forwarder.StartRelay(ctx, pub, src, o.onForwardDead)

	for _, sub := range o.Registry.SnapshotByRole(domain.RoleSubscriber) {
		if !sub.SubscribedTo(pub) {
			continue
		}
		if err := o.attach(pub, sub, src); err != nil {
			log.Error().
				Err(err).
				Str("module", "orch").
				Str("publisher", string(pub)).
				Str("subscriber", string(sub.ID())).
				Msg("fan-out attach failed, removing subscriber")
			o.Forwarder.Detach(sub.ID())
			o.Registry.UnregisterSession(sub)
		}
	}
}

// attach wires one subscriber leg: local out track on the subscriber's
// handle, sink into the relay loop, then a relay-side renegotiation offer.
func (o *Orchestrator) attach(pub domain.ClientID, sub core.ClientSession, src core.TrackSource) error {
	sink, err := sub.Media().AddOutTrack(uuid.NewString(), "vision-"+string(pub), src.Codec())
	if err != nil {
		return fmt.Errorf("add out track: %w", err)
	}
	o.Forwarder.Attach(pub, sub.ID(), sink)
	return o.renegotiate(sub)
}

// renegotiate sends a fresh relay-created offer to the subscriber. For this
// exchange the relay is the offering side.
func (o *Orchestrator) renegotiate(sub core.ClientSession) error {
	offerSDP, err := sub.Media().CreateAndSetOffer()
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}

	sub.SetState(core.StateNegotiating)
	sub.ArmAnswerTimeout(o.NegotiationTimeout, func() {
		o.onAnswerTimeout(sub)
	})

	o.send(sub, core.Envelope{
		Type: core.TypeOffer,
		From: core.SenderRelay,
		To:   string(sub.ID()),
		SDP:  offerSDP,
	})
	return nil
}

func (o *Orchestrator) onAnswerTimeout(sub core.ClientSession) {
	log.Warn().
		Str("module", "orch").
		Str("id", string(sub.ID())).
		Dur("timeout", o.NegotiationTimeout).
		Msg("no answer within negotiation window")
	sub.SetState(core.StateFailed)
	o.send(sub, core.Envelope{
		Type:  core.TypeError,
		From:  core.SenderRelay,
		To:    string(sub.ID()),
		Error: "negotiation timed out",
	})
}

// onForwardDead runs from a relay loop when an RTP write to a subscriber
// fails; the subscriber is removed so the next fan-out skips it.
func (o *Orchestrator) onForwardDead(dst domain.ClientID) {
	log.Warn().Str("module", "orch").Str("id", string(dst)).Msg("forwarding leg dead, removing subscriber")
	o.Registry.Unregister(dst)
}
