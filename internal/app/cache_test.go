package app

import (
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Vision/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestPublicationCache_SetAndGet(t *testing.T) {
	c := NewPublicationCache(0, nil)

	if _, ok := c.Get("camera1"); ok {
		t.Fatal("empty cache should miss")
	}

	c.SetOffer("camera1", "v=0 first")
	c.SetOffer("camera1", "v=0 second")

	pub, ok := c.Get("camera1")
	if !ok {
		t.Fatal("expected hit")
	}
	if pub.OfferSDP != "v=0 second" {
		t.Fatalf("offer=%q, want the overwrite", pub.OfferSDP)
	}
	if pub.Source != nil {
		t.Fatal("no source was cached")
	}
}

func TestPublicationCache_SweepDisabledWithoutTTL(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := NewPublicationCache(0, clk)
	c.SetOffer("camera1", "v=0")

	clk.Advance(24 * time.Hour)
	if got := c.Sweep(func(domain.ClientID) bool { return false }); got != 0 {
		t.Fatalf("Sweep evicted %d with ttl=0, want 0", got)
	}
	if c.Len() != 1 {
		t.Fatal("entry should survive")
	}
}

func TestPublicationCache_SweepEvictsStaleOfflinePublishers(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := NewPublicationCache(time.Minute, clk)

	c.SetOffer("camera1", "v=0")
	c.SetOffer("camera2", "v=0")
	clk.Advance(2 * time.Minute)
	c.SetOffer("camera3", "v=0") // fresh

	live := func(id domain.ClientID) bool { return id == "camera2" }
	if got := c.Sweep(live); got != 1 {
		t.Fatalf("Sweep evicted %d, want 1", got)
	}

	if _, ok := c.Get("camera1"); ok {
		t.Fatal("stale offline camera1 should be evicted")
	}
	if _, ok := c.Get("camera2"); !ok {
		t.Fatal("live camera2 should survive")
	}
	if _, ok := c.Get("camera3"); !ok {
		t.Fatal("fresh camera3 should survive")
	}
}
