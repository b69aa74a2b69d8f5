package sfu

import (
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/Vision/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

type fakeSource struct {
	packets chan *rtp.Packet
}

func (s *fakeSource) ID() string       { return "track-1" }
func (s *fakeSource) StreamID() string { return "stream-1" }
func (s *fakeSource) Kind() string     { return "video" }
func (s *fakeSource) Codec() webrtc.RTPCodecCapability {
	return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}
}
func (s *fakeSource) ReadRTP() (*rtp.Packet, error) {
	pkt, ok := <-s.packets
	if !ok {
		return nil, errors.New("source closed")
	}
	return pkt, nil
}

type fakeSink struct {
	mu      sync.Mutex
	written []uint16
	err     error
}

func (s *fakeSink) WriteRTP(pkt *rtp.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.written = append(s.written, pkt.SequenceNumber)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.written)
}

func pkt(seq uint16) *rtp.Packet {
	return &rtp.Packet{Header: rtp.Header{SequenceNumber: seq}}
}

func TestRelay_ForwardDeliversToAllOkSinks(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRelay(&fakeSource{}, nil, nil)

	a, b := &fakeSink{}, &fakeSink{}
	r.AddOutTrack("viewer1", NewOutTrack(a))
	r.AddOutTrack("viewer2", NewOutTrack(b))

	r.forward(pkt(1), &logger)
	r.forward(pkt(2), &logger)

	if a.count() != 2 || b.count() != 2 {
		t.Fatalf("delivery counts=%d/%d, want 2/2", a.count(), b.count())
	}
}

func TestRelay_FailingSinkIsIsolatedAndReported(t *testing.T) {
	logger := zerolog.Nop()

	var deadMu sync.Mutex
	var dead []domain.ClientID
	r := NewRelay(&fakeSource{}, nil, func(id domain.ClientID) {
		deadMu.Lock()
		dead = append(dead, id)
		deadMu.Unlock()
	})

	good1, bad, good2 := &fakeSink{}, &fakeSink{err: errors.New("pipe broken")}, &fakeSink{}
	r.AddOutTrack("viewer1", NewOutTrack(good1))
	r.AddOutTrack("viewerX", NewOutTrack(bad))
	r.AddOutTrack("viewer2", NewOutTrack(good2))

	r.forward(pkt(1), &logger)

	if good1.count() != 1 || good2.count() != 1 {
		t.Fatalf("healthy sinks got %d/%d, want 1/1", good1.count(), good2.count())
	}
	deadMu.Lock()
	if len(dead) != 1 || dead[0] != "viewerX" {
		t.Fatalf("dead=%v, want [viewerX]", dead)
	}
	deadMu.Unlock()

	// The dead leg is gone; the next packet reaches only the healthy sinks.
	r.forward(pkt(2), &logger)
	if good1.count() != 2 || good2.count() != 2 {
		t.Fatalf("healthy sinks got %d/%d after cleanup, want 2/2", good1.count(), good2.count())
	}

	r.mu.RLock()
	_, stillThere := r.outTracks["viewerX"]
	r.mu.RUnlock()
	if stillThere {
		t.Fatal("failed out track should be removed")
	}
}

func TestRelay_DetachedSinkIsSkippedAndRemoved(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRelay(&fakeSource{}, nil, nil)

	s := &fakeSink{}
	ot := NewOutTrack(s)
	r.AddOutTrack("viewer1", ot)
	ot.MarkDead()

	r.forward(pkt(1), &logger)
	if s.count() != 0 {
		t.Fatal("dead sink should not receive packets")
	}

	r.mu.RLock()
	_, stillThere := r.outTracks["viewer1"]
	r.mu.RUnlock()
	if stillThere {
		t.Fatal("dead out track should be cleaned up")
	}
}

func TestForwarder_AttachRequiresRelay(t *testing.T) {
	f := NewForwarder()
	if f.Attach("camera1", "viewer1", &fakeSink{}) {
		t.Fatal("attach without relay should report false")
	}
	if f.HasRelay("camera1") {
		t.Fatal("no relay expected")
	}
}

func TestForwarder_StartRelayAndStop(t *testing.T) {
	f := NewForwarder()
	src := &fakeSource{packets: make(chan *rtp.Packet)}
	f.StartRelay(t.Context(), "camera1", src, nil)
	t.Cleanup(func() { close(src.packets) })

	if !f.HasRelay("camera1") {
		t.Fatal("relay expected")
	}
	if !f.Attach("camera1", "viewer1", &fakeSink{}) {
		t.Fatal("attach should succeed with live relay")
	}

	f.StopRelay("camera1")
	if f.HasRelay("camera1") {
		t.Fatal("relay should be removed")
	}
}
