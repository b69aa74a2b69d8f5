package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// MediaConnection is the relay-side handle for one client's media session.
// The relay never touches the engine directly; everything goes through here.
type MediaConnection interface {
	// Start configures internal callbacks and binds the connection lifetime to ctx.
	Start(ctx context.Context) error
	// Close should stop all underlying media resources.
	Close()
	// ApplyOfferAndCreateAnswer runs the client-initiated half of negotiation:
	// remote offer in, local answer out.
	ApplyOfferAndCreateAnswer(offerSDP string) (answerSDP string, err error)
	// CreateAndSetOffer starts a relay-initiated renegotiation.
	CreateAndSetOffer() (offerSDP string, err error)
	// ApplyAnswer completes a relay-initiated renegotiation.
	ApplyAnswer(answerSDP string) error
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(CandidateInit) error
	// EndOfCandidates records the peer's end-of-gathering marker.
	EndOfCandidates()
	// AddOutTrack attaches a local track feeding this client and returns the
	// sink the fan-out loop writes into.
	AddOutTrack(id, streamID string, codec webrtc.RTPCodecCapability) (TrackSink, error)
	// OnICECandidate sets a callback for newly gathered local ICE candidates;
	// a nil candidate means gathering is complete.
	OnICECandidate(func(*CandidateInit))
	// OnTrack sets a callback that will be invoked when a new remote track arrives.
	OnTrack(func(ctx context.Context, src TrackSource))
	// OnStateChange sets a callback for engine connection-state transitions.
	OnStateChange(func(state string))
	// OnClosed sets a callback for cleanup of the media session.
	OnClosed(func())
}
