package inmemory

import (
	"context"
	"sync"
	"time"
)

// RevocationSet is a process-local revocation store. Expired ids are dropped
// lazily on lookup and in bulk by Sweep.
type RevocationSet struct {
	mu    sync.RWMutex
	items map[string]time.Time
	now   func() time.Time
}

func NewRevocationSet() *RevocationSet {
	return &RevocationSet{
		items: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (c *RevocationSet) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" || !expiresAt.After(c.now()) {
		return nil
	}

	c.mu.Lock()
	if current, ok := c.items[tokenID]; !ok || expiresAt.After(current) {
		c.items[tokenID] = expiresAt
	}
	c.mu.Unlock()
	return nil
}

func (c *RevocationSet) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	now := c.now()

	c.mu.RLock()
	expiresAt, ok := c.items[tokenID]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if !expiresAt.After(now) {
		c.mu.Lock()
		expiresAt, ok = c.items[tokenID]
		if ok && !expiresAt.After(now) {
			delete(c.items, tokenID)
		}
		c.mu.Unlock()
		return false, nil
	}

	return true, nil
}

func (c *RevocationSet) Sweep(_ context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, expiresAt := range c.items {
		if !expiresAt.After(now) {
			delete(c.items, id)
			removed++
		}
	}
	return removed, nil
}

func (c *RevocationSet) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
