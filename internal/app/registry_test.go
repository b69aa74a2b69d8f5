package app

import (
	"context"
	"sync"
	"testing"

	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/pion/webrtc/v4"
)

type nopSignal struct {
	mu     sync.Mutex
	closed int
}

func (s *nopSignal) TrySend(core.Frame) error { return nil }
func (s *nopSignal) Close() {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
}

type nopMedia struct {
	mu     sync.Mutex
	closed int
}

func (m *nopMedia) Start(context.Context) error { return nil }
func (m *nopMedia) ApplyOfferAndCreateAnswer(string) (string, error) { return "", nil }
func (m *nopMedia) CreateAndSetOffer() (string, error) { return "", nil }
func (m *nopMedia) ApplyAnswer(string) error { return nil }
func (m *nopMedia) AddICECandidate(core.CandidateInit) error { return nil }
func (m *nopMedia) EndOfCandidates() {}
func (m *nopMedia) AddOutTrack(string, string, webrtc.RTPCodecCapability) (core.TrackSink, error) {
	return nil, nil
}
func (m *nopMedia) OnICECandidate(func(*core.CandidateInit)) {}
func (m *nopMedia) OnTrack(func(context.Context, core.TrackSource)) {}
func (m *nopMedia) OnStateChange(func(string)) {}
func (m *nopMedia) OnClosed(func()) {}
func (m *nopMedia) Close() {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
}

func (m *nopMedia) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func newSession(id domain.ClientID, role domain.Role) (core.ClientSession, *nopMedia) {
	m := &nopMedia{}
	return core.NewClientSession(id, role, &nopSignal{}, m), m
}

func TestRegistry_RegisterThenUnregister(t *testing.T) {
	r := NewRegistry()
	sess, _ := newSession("camera1", domain.RolePublisher)
	r.Register(sess, nil)

	if _, ok := r.Lookup("camera1"); !ok {
		t.Fatal("camera1 should be registered")
	}
	if !r.Unregister("camera1") {
		t.Fatal("Unregister should report removal")
	}
	if _, ok := r.Lookup("camera1"); ok {
		t.Fatal("camera1 should be gone")
	}
	if r.Unregister("camera1") {
		t.Fatal("second Unregister should be a no-op")
	}
}

func TestRegistry_ReregisterReplacesAndClosesOldOnce(t *testing.T) {
	r := NewRegistry()
	old, oldMedia := newSession("camera1", domain.RolePublisher)
	cancelled := 0
	r.Register(old, func() { cancelled++ })

	next, _ := newSession("camera1", domain.RolePublisher)
	if replaced := r.Register(next, nil); !replaced {
		t.Fatal("Register should report replacement")
	}

	got, ok := r.Lookup("camera1")
	if !ok || got != next {
		t.Fatal("lookup should return the new session")
	}
	if oldMedia.closeCount() != 1 {
		t.Fatalf("old media closed %d times, want 1", oldMedia.closeCount())
	}
	if cancelled != 1 {
		t.Fatalf("old cancel called %d times, want 1", cancelled)
	}
	if old.State() != core.StateClosed {
		t.Fatalf("old session state=%v, want closed", old.State())
	}

	// Removing the id later must not close the old handle again.
	r.Unregister("camera1")
	if oldMedia.closeCount() != 1 {
		t.Fatalf("old media closed %d times after unregister, want 1", oldMedia.closeCount())
	}
}

func TestRegistry_UnregisterSessionIgnoresStale(t *testing.T) {
	r := NewRegistry()
	stale, _ := newSession("camera1", domain.RolePublisher)
	r.Register(stale, nil)
	next, nextMedia := newSession("camera1", domain.RolePublisher)
	r.Register(next, nil)

	if r.UnregisterSession(stale) {
		t.Fatal("stale session must not remove the replacement")
	}
	got, ok := r.Lookup("camera1")
	if !ok || got != next {
		t.Fatal("replacement should still be registered")
	}
	if nextMedia.closeCount() != 0 {
		t.Fatal("replacement media must not be closed")
	}

	if !r.UnregisterSession(next) {
		t.Fatal("current session should be removable")
	}
	if _, ok := r.Lookup("camera1"); ok {
		t.Fatal("camera1 should be gone")
	}
}

func TestRegistry_SnapshotByRoleIsOrdered(t *testing.T) {
	r := NewRegistry()
	for _, id := range []domain.ClientID{"viewer3", "viewer1", "viewer2"} {
		sess, _ := newSession(id, domain.RoleSubscriber)
		r.Register(sess, nil)
	}
	pub, _ := newSession("camera1", domain.RolePublisher)
	r.Register(pub, nil)

	snap := r.SnapshotByRole(domain.RoleSubscriber)
	if len(snap) != 3 {
		t.Fatalf("snapshot len=%d, want 3", len(snap))
	}
	for i, want := range []domain.ClientID{"viewer1", "viewer2", "viewer3"} {
		if snap[i].ID() != want {
			t.Fatalf("snap[%d]=%s, want %s", i, snap[i].ID(), want)
		}
	}

	publishers, subscribers := r.Counts()
	if publishers != 1 || subscribers != 3 {
		t.Fatalf("counts=%d/%d, want 1/3", publishers, subscribers)
	}
}
