package sfu

import (
	"sync/atomic"

	"github.com/dkeye/Vision/internal/core"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateDead
)

// OutTrack represents a single outgoing leg of a forwarded track.
type OutTrack struct {
	Sink  core.TrackSink
	state atomic.Int32 // Zero by default (TrackStateOk)
}

func NewOutTrack(sink core.TrackSink) *OutTrack {
	return &OutTrack{Sink: sink}
}

func (ot *OutTrack) GetState() TrackState {
	return TrackState(ot.state.Load())
}

func (ot *OutTrack) MarkDead() {
	ot.state.Store(int32(TrackStateDead))
}
