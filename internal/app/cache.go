package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/rs/zerolog/log"
)

// Clock lets tests control time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Publication is the cached state of one publisher: its latest offer and its
// latest track source. Either field may lag the other during negotiation.
type Publication struct {
	OfferSDP  string
	Source    core.TrackSource
	UpdatedAt time.Time
}

// PublicationCache lets late subscribers join an already-flowing stream. It
// deliberately survives publisher disconnects; entries are only dropped by
// the TTL sweeper, and only while the publisher is offline.
type PublicationCache struct {
	mu      sync.RWMutex
	entries map[domain.ClientID]*Publication
	ttl     time.Duration
	clock   Clock
}

// NewPublicationCache builds a cache. ttl <= 0 disables eviction entirely.
func NewPublicationCache(ttl time.Duration, clock Clock) *PublicationCache {
	if clock == nil {
		clock = systemClock{}
	}
	return &PublicationCache{
		entries: make(map[domain.ClientID]*Publication),
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *PublicationCache) SetOffer(id domain.ClientID, sdp string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.entries[id]
	if p == nil {
		p = &Publication{}
		c.entries[id] = p
	}
	p.OfferSDP = sdp
	p.UpdatedAt = c.clock.Now()
}

func (c *PublicationCache) SetSource(id domain.ClientID, src core.TrackSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.entries[id]
	if p == nil {
		p = &Publication{}
		c.entries[id] = p
	}
	p.Source = src
	p.UpdatedAt = c.clock.Now()
}

// Get returns a copy of the publication for id.
func (c *PublicationCache) Get(id domain.ClientID) (Publication, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[id]
	if !ok {
		return Publication{}, false
	}
	return *p, true
}

func (c *PublicationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep drops entries older than the TTL whose publisher is not live.
// Returns the number of evicted entries; 0 when eviction is disabled.
func (c *PublicationCache) Sweep(live func(domain.ClientID) bool) int {
	if c.ttl <= 0 {
		return 0
	}
	cutoff := c.clock.Now().Add(-c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for id, p := range c.entries {
		if p.UpdatedAt.After(cutoff) {
			continue
		}
		if live != nil && live(id) {
			continue
		}
		delete(c.entries, id)
		evicted++
		log.Info().Str("module", "app.cache").Str("id", string(id)).Msg("evicted stale publication")
	}
	return evicted
}

// StartSweeper runs Sweep on a fixed interval until ctx is done. No-op when
// eviction is disabled.
func (c *PublicationCache) StartSweeper(ctx context.Context, interval time.Duration, live func(domain.ClientID) bool) {
	if c.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Sweep(live)
			}
		}
	}()
}
