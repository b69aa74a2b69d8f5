package rtc

import (
	"context"

	"github.com/dkeye/Vision/internal/config"
	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Connection wraps a pion PeerConnection behind core.MediaConnection.
type Connection struct {
	pc     *webrtc.PeerConnection
	id     domain.ClientID
	cancel context.CancelFunc

	onICE    func(*core.CandidateInit)
	onTrack  func(ctx context.Context, src core.TrackSource)
	onState  func(string)
	onClosed func()
}

var _ core.MediaConnection = (*Connection)(nil)

// Configuration builds the engine config from settings, TURN first when
// credentials are present so relayed paths win candidate pairing.
func Configuration(cfg *config.Config) webrtc.Configuration {
	var servers []webrtc.ICEServer
	if cfg.TURNURL != "" && cfg.TURNUsername != "" {
		servers = append(servers,
			webrtc.ICEServer{
				URLs:       []string{"turn:" + cfg.TURNURL + "?transport=udp"},
				Username:   cfg.TURNUsername,
				Credential: cfg.TURNPassword,
			},
			webrtc.ICEServer{
				URLs:       []string{"turn:" + cfg.TURNURL + "?transport=tcp"},
				Username:   cfg.TURNUsername,
				Credential: cfg.TURNPassword,
			},
		)
	}
	stun := cfg.STUNURLs
	if len(stun) == 0 {
		stun = []string{"stun:stun.l.google.com:19302"}
	}
	servers = append(servers, webrtc.ICEServer{URLs: stun})
	return webrtc.Configuration{ICEServers: servers}
}

// NewConnection builds a PeerConnection with default codecs plus an interval
// PLI interceptor so late-joining viewers get keyframes.
func NewConnection(cfg webrtc.Configuration, id domain.ClientID) (*Connection, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	reg := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, reg); err != nil {
		return nil, err
	}
	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, err
	}
	reg.Add(pli)

	api := webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(reg))
	pc, err := api.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &Connection{pc: pc, id: id}, nil
}

func (c *Connection) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "webrtc").Str("id", string(c.id)).Str("ice_state", s.String()).Msg("ICE state")
		if s == webrtc.ICEConnectionStateDisconnected ||
			s == webrtc.ICEConnectionStateFailed ||
			s == webrtc.ICEConnectionStateClosed {
			cancel()
		}
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("id", string(c.id)).Str("peer_connection_state", s.String()).Msg("Peer state")
		if c.onState != nil {
			c.onState(s.String())
		}
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			if c.onClosed != nil {
				c.onClosed()
			}
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if c.onICE == nil {
			return
		}
		if cand == nil {
			c.onICE(nil)
			return
		}
		ci := cand.ToJSON()
		c.onICE(&core.CandidateInit{
			Candidate:     ci.Candidate,
			SDPMid:        ci.SDPMid,
			SDPMLineIndex: ci.SDPMLineIndex,
		})
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("id", string(c.id)).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		if c.onTrack != nil {
			c.onTrack(ctx, &remoteSource{track: track})
		}
	})

	return nil
}

func (c *Connection) ApplyOfferAndCreateAnswer(offerSDP string) (string, error) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return "", err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	// Trickle ICE: the answer goes out immediately, candidates follow as
	// separate messages.
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	return answer.SDP, nil
}

func (c *Connection) CreateAndSetOffer() (string, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	return offer.SDP, nil
}

func (c *Connection) ApplyAnswer(answerSDP string) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answerSDP,
	})
}

func (c *Connection) AddICECandidate(ci core.CandidateInit) error {
	return c.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     ci.Candidate,
		SDPMid:        ci.SDPMid,
		SDPMLineIndex: ci.SDPMLineIndex,
	})
}

func (c *Connection) EndOfCandidates() {
	// Empty candidate is pion's end-of-candidates marker.
	if err := c.pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: ""}); err != nil {
		log.Warn().Err(err).Str("module", "webrtc").Str("id", string(c.id)).Msg("end of candidates")
	}
}

// AddOutTrack attaches a local static RTP track and returns it as the sink
// the fan-out loop writes into. The sender's RTCP is drained so interceptors
// keep working.
func (c *Connection) AddOutTrack(id, streamID string, codec webrtc.RTPCodecCapability) (core.TrackSink, error) {
	track, err := webrtc.NewTrackLocalStaticRTP(codec, id, streamID)
	if err != nil {
		return nil, err
	}
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return track, nil
}

func (c *Connection) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.pc != nil {
		if err := c.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "webrtc").Str("id", string(c.id)).Msg("close error")
		} else {
			log.Info().Str("module", "webrtc").Str("id", string(c.id)).Msg("closed")
		}
	}
	if c.onClosed != nil {
		c.onClosed()
	}
}

func (c *Connection) OnICECandidate(fn func(*core.CandidateInit)) { c.onICE = fn }

// OnTrack sets application-level callback for remote tracks.
func (c *Connection) OnTrack(fn func(ctx context.Context, src core.TrackSource)) { c.onTrack = fn }

func (c *Connection) OnStateChange(fn func(state string)) { c.onState = fn }

// OnClosed sets application-level callback for cleanup.
func (c *Connection) OnClosed(fn func()) { c.onClosed = fn }
