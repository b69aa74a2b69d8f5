package orch

import (
	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/rs/zerolog/log"
)

// HandleOffer terminates a client-initiated negotiation at the relay: the
// relay is the negotiation peer, not a pass-through. Publisher offers are
// cached first so late subscribers can replay them.
func (o *Orchestrator) HandleOffer(id domain.ClientID, sdp string) {
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		log.Warn().Str("module", "orch").Str("id", string(id)).Msg("offer from unregistered client")
		return
	}

	if sess.Role() == domain.RolePublisher {
		o.Cache.SetOffer(id, sdp)
	}

	sess.SetState(core.StateNegotiating)
	answer, err := sess.Media().ApplyOfferAndCreateAnswer(sdp)
	if err != nil {
		// The sender may retry; the connection stays open.
		log.Error().Err(err).Str("module", "orch").Str("id", string(id)).Msg("offer rejected by engine")
		return
	}

	o.send(sess, core.Envelope{
		Type: core.TypeAnswer,
		From: core.SenderRelay,
		To:   string(id),
		SDP:  answer,
	})
}

// HandleAnswer completes a relay-initiated renegotiation. An explicit `to`
// naming another registered session is honored; otherwise the answer applies
// to the sender's own handle.
func (o *Orchestrator) HandleAnswer(id domain.ClientID, to domain.ClientID, sdp string) {
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		log.Warn().Str("module", "orch").Str("id", string(id)).Msg("answer from unregistered client")
		return
	}

	target := sess
	if to != "" && string(to) != core.SenderRelay {
		t, ok := o.Registry.Lookup(to)
		if !ok {
			log.Warn().Str("module", "orch").Str("id", string(id)).Str("to", string(to)).Msg("answer target not registered, dropped")
			return
		}
		target = t
	}

	if !target.AnswerReceived() {
		log.Warn().Str("module", "orch").Str("id", string(target.ID())).Msg("answer without outstanding offer, dropped")
		return
	}

	if err := target.Media().ApplyAnswer(sdp); err != nil {
		// Logged only; the connection remains usable.
		log.Error().Err(err).Str("module", "orch").Str("id", string(target.ID())).Msg("answer rejected by engine")
	}
}

// HandleCandidate applies a remote candidate to the sender's own handle.
// ICE is always between a client and the relay, never client-to-client; a
// `to` naming an unregistered client is a routing error and drops the
// message. A nil candidate is the end-of-gathering marker.
func (o *Orchestrator) HandleCandidate(id domain.ClientID, to domain.ClientID, ci *core.CandidateInit) {
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		log.Warn().Str("module", "orch").Str("id", string(id)).Msg("candidate from unregistered client")
		return
	}

	if to != "" && to != id && string(to) != core.SenderRelay {
		if _, ok := o.Registry.Lookup(to); !ok {
			log.Warn().Str("module", "orch").Str("id", string(id)).Str("to", string(to)).Msg("candidate target not registered, dropped")
			return
		}
	}

	if ci == nil || ci.Candidate == "" {
		sess.Media().EndOfCandidates()
		log.Info().Str("module", "orch").Str("id", string(id)).Msg("remote ICE gathering complete")
		return
	}

	if err := sess.Media().AddICECandidate(*ci); err != nil {
		// Skip the candidate, keep the loop alive.
		log.Error().Err(err).Str("module", "orch").Str("id", string(id)).Msg("add ice candidate")
	}
}

// HandleSubscribe merges camera ids into the subscriber's set and replays
// cached publications so a late joiner does not need the publisher to
// re-offer.
func (o *Orchestrator) HandleSubscribe(id domain.ClientID, cameras []string) {
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		log.Warn().Str("module", "orch").Str("id", string(id)).Msg("subscribe from unregistered client")
		return
	}
	if sess.Role() != domain.RoleSubscriber {
		log.Warn().Str("module", "orch").Str("id", string(id)).Msg("subscribe from non-subscriber, dropped")
		return
	}

	ids := make([]domain.ClientID, 0, len(cameras))
	for _, cam := range cameras {
		ids = append(ids, domain.ClientID(cam))
	}
	sess.Subscribe(ids...)
	log.Info().Str("module", "orch").Str("id", string(id)).Strs("cameras", cameras).Msg("subscribed")

	for _, cam := range ids {
		pub, ok := o.Cache.Get(cam)
		if !ok {
			continue
		}
		if pub.OfferSDP != "" {
			o.send(sess, core.Envelope{
				Type: core.TypeOffer,
				From: string(cam),
				To:   string(id),
				SDP:  pub.OfferSDP,
			})
		}
		if pub.Source != nil {
			if err := o.attach(cam, sess, pub.Source); err != nil {
				// One bad camera must not break the rest of the set.
				log.Error().Err(err).Str("module", "orch").Str("id", string(id)).Str("camera", string(cam)).Msg("late-join attach failed")
			}
		}
	}
}
