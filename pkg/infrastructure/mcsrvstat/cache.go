package mcsrvstat

import (
	"context"
	"sync"
	"time"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/craftwatch/statusbot/pkg/domain/minecraft"
	"golang.org/x/sync/singleflight"
)

// Lookup fetches a server status
type Lookup interface {
	Status(ctx context.Context, address string) (minecraft.Status, error)
}

// CachedClient serves repeated lookups of the same address from memory for
// ttl and collapses concurrent lookups into one upstream call. Errors are
// not cached.
type CachedClient struct {
	next  Lookup
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	status    minecraft.Status
	expiresAt time.Time
}

// NewCachedClient wraps next. A non-positive ttl disables caching but keeps
// request collapsing.
func NewCachedClient(next Lookup, ttl time.Duration) *CachedClient {
	return &CachedClient{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Status implements Lookup. The shared upstream call is detached from the
// caller's cancellation and bounded by the wrapped client's own timeout; each
// caller stops waiting when its ctx is done.
func (c *CachedClient) Status(ctx context.Context, address string) (minecraft.Status, error) {
	if s, ok := c.get(address); ok {
		return s, nil
	}

	upstream := context.WithoutCancel(ctx)
	ch := c.group.DoChan(address, func() (interface{}, error) {
		s, err := c.next.Status(upstream, address)
		if err != nil {
			return nil, err
		}
		c.set(address, s)
		return s, nil
	})

	select {
	case <-ctx.Done():
		return minecraft.Status{}, errors.New(errors.CodeNetworkTimeout, errDomain,
			"status lookup for "+address+" cancelled", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return minecraft.Status{}, res.Err
		}
		return res.Val.(minecraft.Status), nil
	}
}

// Stats returns cache hit and miss counts
func (c *CachedClient) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *CachedClient) get(address string) (minecraft.Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[address]
	if !ok || !c.now().Before(entry.expiresAt) {
		if ok {
			delete(c.entries, address)
		}
		c.misses++
		return minecraft.Status{}, false
	}
	c.hits++
	return entry.status, true
}

func (c *CachedClient) set(address string, s minecraft.Status) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[address] = cacheEntry{status: s, expiresAt: c.now().Add(c.ttl)}
}
