package core

import (
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// TrackSource is a publisher's inbound track as seen by the fan-out loop.
// Implemented by the rtc adapter over a remote track; faked in tests.
type TrackSource interface {
	ID() string
	StreamID() string
	Kind() string
	Codec() webrtc.RTPCodecCapability
	// ReadRTP blocks until the next packet or a terminal error.
	ReadRTP() (*rtp.Packet, error)
}

// TrackSink is one subscriber's outbound leg of a forwarded track.
// *webrtc.TrackLocalStaticRTP satisfies it directly.
type TrackSink interface {
	WriteRTP(*rtp.Packet) error
}
