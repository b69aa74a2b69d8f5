package app

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/rs/zerolog/log"
)

type regEntry struct {
	Session core.ClientSession
	Cancel  context.CancelFunc
	once    sync.Once
}

// close tears the session down exactly once: cancel its context, close the
// media handle, close the signaling transport.
func (e *regEntry) close() {
	e.once.Do(func() {
		if e.Cancel != nil {
			e.Cancel()
		}
		e.Session.SetState(core.StateClosed)
		if mc := e.Session.Media(); mc != nil {
			mc.Close()
		}
		if sc := e.Session.Signal(); sc != nil {
			sc.Close()
		}
	})
}

// Registry is the single source of truth for who is connected and in what
// role. All access goes through its methods; the lock is held only around
// map mutation and snapshotting, never around downstream sends.
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.ClientID]*regEntry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[domain.ClientID]*regEntry),
	}
}

// Register installs a session under its id. A prior session with the same id
// is closed and replaced; there are never two live sessions per id.
func (r *Registry) Register(sess core.ClientSession, cancel context.CancelFunc) (replaced bool) {
	id := sess.ID()

	r.mu.Lock()
	old := r.entries[id]
	r.entries[id] = &regEntry{Session: sess, Cancel: cancel}
	r.mu.Unlock()

	if old != nil {
		old.close()
		log.Info().Str("module", "app.registry").Str("id", string(id)).Msg("replaced existing session")
	}
	log.Info().Str("module", "app.registry").Str("id", string(id)).Str("role", sess.Role().String()).Msg("registered")
	return old != nil
}

// Unregister removes the entry and closes its session. No-op when absent.
func (r *Registry) Unregister(id domain.ClientID) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	e.close()
	log.Info().Str("module", "app.registry").Str("id", string(id)).Msg("unregistered")
	return true
}

// UnregisterSession removes sess only if it is still the registered session
// for its id. A stale pump tearing down after its id was re-registered must
// not remove the replacement.
func (r *Registry) UnregisterSession(sess core.ClientSession) bool {
	id := sess.ID()
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || e.Session != sess {
		r.mu.Unlock()
		return false
	}
	delete(r.entries, id)
	r.mu.Unlock()
	e.close()
	log.Info().Str("module", "app.registry").Str("id", string(id)).Msg("unregistered")
	return true
}

func (r *Registry) Lookup(id domain.ClientID) (core.ClientSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return e.Session, true
	}
	return nil, false
}

// SnapshotByRole returns a point-in-time, id-ordered copy safe to iterate
// while other goroutines mutate the registry.
func (r *Registry) SnapshotByRole(role domain.Role) []core.ClientSession {
	r.mu.RLock()
	out := make([]core.ClientSession, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Session.Role() == role {
			out = append(out, e.Session)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Snapshot returns all sessions, id-ordered.
func (r *Registry) Snapshot() []core.ClientSession {
	r.mu.RLock()
	out := make([]core.ClientSession, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Session)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Counts reports connected publishers and subscribers.
func (r *Registry) Counts() (publishers, subscribers int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Session.Role() == domain.RolePublisher {
			publishers++
		} else {
			subscribers++
		}
	}
	return publishers, subscribers
}
