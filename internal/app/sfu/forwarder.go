package sfu

import (
	"context"
	"sync"

	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/rs/zerolog/log"
)

// Forwarder owns one Relay per publisher and fans each publisher's track out
// to subscriber sinks.
type Forwarder struct {
	mu     sync.RWMutex
	relays map[domain.ClientID]*Relay
}

func NewForwarder() *Forwarder {
	return &Forwarder{
		relays: make(map[domain.ClientID]*Relay),
	}
}

// StartRelay creates a new Relay for the given publisher and starts its loop.
// An existing relay for the same publisher is stopped and replaced. onDead is
// invoked from the relay loop when a subscriber leg fails mid-stream.
func (f *Forwarder) StartRelay(ctx context.Context, pub domain.ClientID, src core.TrackSource, onDead func(domain.ClientID)) {
	logger := log.With().
		Str("module", "sfu").
		Str("publisher", string(pub)).
		Logger()

	relayCtx, cancel := context.WithCancel(ctx)
	relay := NewRelay(src, cancel, onDead)

	f.mu.Lock()
	if old, ok := f.relays[pub]; ok {
		logger.Info().Msg("replacing existing relay for publisher")
		old.markAllDead()
		if old.cancel != nil {
			old.cancel()
		}
	}
	f.relays[pub] = relay
	f.mu.Unlock()

	logger.Info().Str("kind", src.Kind()).Str("track_id", src.ID()).Msg("starting relay loop")

	go relay.loop(relayCtx, &logger)
}

// Attach wires a subscriber sink into the publisher's relay. Reports whether
// a live relay existed; without one the sink will only carry media after the
// publisher re-offers.
func (f *Forwarder) Attach(pub, dst domain.ClientID, sink core.TrackSink) bool {
	f.mu.RLock()
	relay, ok := f.relays[pub]
	f.mu.RUnlock()
	if !ok {
		return false
	}
	relay.AddOutTrack(dst, NewOutTrack(sink))
	return true
}

// Detach marks every out track belonging to dst dead, across all relays.
// Used on subscriber disconnect.
func (f *Forwarder) Detach(dst domain.ClientID) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, relay := range f.relays {
		relay.mu.RLock()
		ot, ok := relay.outTracks[dst]
		relay.mu.RUnlock()
		if ok {
			ot.MarkDead()
		}
	}
}

// StopRelay stops a publisher's relay and removes it from the forwarder.
func (f *Forwarder) StopRelay(pub domain.ClientID) {
	f.mu.Lock()
	relay, ok := f.relays[pub]
	if ok {
		delete(f.relays, pub)
	}
	f.mu.Unlock()
	if !ok {
		return
	}
	relay.markAllDead()
	if relay.cancel != nil {
		relay.cancel()
	}
}

// HasRelay reports whether a live relay exists for the publisher.
func (f *Forwarder) HasRelay(pub domain.ClientID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.relays[pub]
	return ok
}
