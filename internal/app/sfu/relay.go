package sfu

import (
	"context"
	"maps"
	"sync"

	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

// Relay pumps one publisher's track into any number of subscriber sinks.
// A write failure kills only the failing leg, never the loop.
type Relay struct {
	Src core.TrackSource

	mu        sync.RWMutex
	outTracks map[domain.ClientID]*OutTrack

	cancel context.CancelFunc
	onDead func(domain.ClientID)
}

func NewRelay(src core.TrackSource, cancel context.CancelFunc, onDead func(domain.ClientID)) *Relay {
	return &Relay{
		Src:       src,
		outTracks: make(map[domain.ClientID]*OutTrack),
		cancel:    cancel,
		onDead:    onDead,
	}
}

// loop reads RTP packets from the source track and forwards them to all OutTracks.
func (r *Relay) loop(ctx context.Context, logger *zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done, marking all out tracks dead")
			r.markAllDead()
			return
		default:
		}
		pkt, err := r.Src.ReadRTP()
		if err != nil {
			logger.Error().Err(err).Msg("relay read RTP error, stopping")
			r.markAllDead()
			return
		}
		r.forward(pkt, logger)
	}
}

func (r *Relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	snapshot := make(map[domain.ClientID]*OutTrack, len(r.outTracks))
	r.mu.RLock()
	maps.Copy(snapshot, r.outTracks)
	r.mu.RUnlock()

	dirty := make([]domain.ClientID, 0, len(snapshot))
	for dstID, ot := range snapshot {
		if ot.GetState() == TrackStateDead {
			dirty = append(dirty, dstID)
			continue
		}
		if err := ot.Sink.WriteRTP(pkt); err != nil {
			logger.Error().
				Err(err).
				Str("dst_id", string(dstID)).
				Msg("relay write RTP error, marking out track dead")
			ot.MarkDead()
			dirty = append(dirty, dstID)
			if r.onDead != nil {
				r.onDead(dstID)
			}
		}
	}

	// Cleanup is done outside the RLock.
	if len(dirty) > 0 {
		r.cleanupDead(dirty)
	}
}

func (r *Relay) cleanupDead(dirty []domain.ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range dirty {
		delete(r.outTracks, id)
	}
}

func (r *Relay) markAllDead() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ot := range r.outTracks {
		ot.MarkDead()
	}
}

func (r *Relay) AddOutTrack(dst domain.ClientID, ot *OutTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outTracks[dst] = ot
}
