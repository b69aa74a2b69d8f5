package rtc

import (
	"github.com/dkeye/Vision/internal/core"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// remoteSource adapts a pion remote track to core.TrackSource.
type remoteSource struct {
	track *webrtc.TrackRemote
}

var _ core.TrackSource = (*remoteSource)(nil)

func (s *remoteSource) ID() string       { return s.track.ID() }
func (s *remoteSource) StreamID() string { return s.track.StreamID() }
func (s *remoteSource) Kind() string     { return s.track.Kind().String() }

func (s *remoteSource) Codec() webrtc.RTPCodecCapability {
	return s.track.Codec().RTPCodecCapability
}

func (s *remoteSource) ReadRTP() (*rtp.Packet, error) {
	pkt, _, err := s.track.ReadRTP()
	return pkt, err
}
