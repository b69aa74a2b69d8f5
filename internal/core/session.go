package core

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Vision/internal/domain"
)

// clientSession implements ClientSession by pairing identity + transports.
type clientSession struct {
	id     domain.ClientID
	role   domain.Role
	signal SignalConnection
	media  MediaConnection

	mu       sync.Mutex
	state    SessionState
	subs     map[domain.ClientID]struct{}
	awaiting bool
	timer    *time.Timer
}

func NewClientSession(id domain.ClientID, role domain.Role, signal SignalConnection, media MediaConnection) ClientSession {
	return &clientSession{
		id:     id,
		role:   role,
		signal: signal,
		media:  media,
		state:  StateConnecting,
		subs:   make(map[domain.ClientID]struct{}),
	}
}

func (s *clientSession) ID() domain.ClientID      { return s.id }
func (s *clientSession) Role() domain.Role        { return s.role }
func (s *clientSession) Signal() SignalConnection { return s.signal }
func (s *clientSession) Media() MediaConnection   { return s.media }

func (s *clientSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *clientSession) SetState(st SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Terminal states stick; a late engine event must not resurrect a session.
	if s.state == StateClosed || s.state == StateFailed {
		return
	}
	s.state = st
}

func (s *clientSession) Subscribe(ids ...domain.ClientID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.subs[id] = struct{}{}
	}
}

func (s *clientSession) SubscribedTo(id domain.ClientID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[id]
	return ok
}

func (s *clientSession) Subscriptions() []domain.ClientID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ClientID, 0, len(s.subs))
	for id := range s.subs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *clientSession) ArmAnswerTimeout(d time.Duration, onExpire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.awaiting = true
	if d <= 0 || onExpire == nil {
		return
	}
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		expired := s.awaiting
		s.awaiting = false
		s.timer = nil
		s.mu.Unlock()
		if expired {
			onExpire()
		}
	})
}

func (s *clientSession) AnswerReceived() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.awaiting
	s.awaiting = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return was
}
