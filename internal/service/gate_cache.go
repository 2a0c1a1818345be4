package service

import (
	"sync"
	"time"

	"ielts_exam_backend/internal/model"
)

// Clock is injected so expiry can be tested without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock used outside tests.
var SystemClock Clock = systemClock{}

type gateEntry struct {
	role      model.UserRole
	hasRole   bool
	record    *model.StudentTest
	hasRecord bool
	expires   time.Time
}

// GateCache holds per-user role and attempt lookups for a few seconds so
// a burst of navigations costs one round of queries. Entries are small
// and expire fast, so a plain map under a mutex is enough.
type GateCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries map[uint]*gateEntry
}

func NewGateCache(ttl time.Duration, clock Clock) *GateCache {
	if clock == nil {
		clock = SystemClock
	}
	return &GateCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[uint]*gateEntry),
	}
}

func (c *GateCache) live(userID uint) *gateEntry {
	e, ok := c.entries[userID]
	if !ok {
		return nil
	}
	if c.clock.Now().After(e.expires) {
		delete(c.entries, userID)
		return nil
	}
	return e
}

func (c *GateCache) ensure(userID uint) *gateEntry {
	e := c.live(userID)
	if e == nil {
		e = &gateEntry{expires: c.clock.Now().Add(c.ttl)}
		c.entries[userID] = e
	}
	return e
}

func (c *GateCache) Role(userID uint) (model.UserRole, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.live(userID)
	if e == nil || !e.hasRole {
		return "", false
	}
	return e.role, true
}

func (c *GateCache) SetRole(userID uint, role model.UserRole) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.ensure(userID)
	e.role = role
	e.hasRole = true
}

// Record returns the cached attempt; a cached nil (no attempt yet) is a
// valid hit, distinct from a miss.
func (c *GateCache) Record(userID uint) (*model.StudentTest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.live(userID)
	if e == nil || !e.hasRecord {
		return nil, false
	}
	return e.record, true
}

func (c *GateCache) SetRecord(userID uint, record *model.StudentTest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.ensure(userID)
	e.record = record
	e.hasRecord = true
}

// Invalidate drops a user's entry; stage mutations call this so the next
// navigation sees fresh state immediately.
func (c *GateCache) Invalidate(userID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
