// Package buyers counts distinct buying wallets per asset over a sliding
// window. The detector records buys, the risk gate and momentum watcher
// query the counts.
package buyers

import (
	"sync"
	"time"
)

type buy struct {
	wallet string
	at     time.Time
}

type Counter struct {
	mu        sync.Mutex
	retention time.Duration
	buys      map[string][]buy // keyed by mint
}

// NewCounter keeps buys for at most retention, which bounds the largest
// window Count can answer.
func NewCounter(retention time.Duration) *Counter {
	return &Counter{retention: retention, buys: map[string][]buy{}}
}

// Record notes a buy. Repeat buys from the same wallet are kept so the
// prune can use plain chronological order.
func (c *Counter) Record(mint, wallet string) {
	c.recordAt(mint, wallet, time.Now())
}

func (c *Counter) recordAt(mint, wallet string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buys[mint] = append(c.buys[mint], buy{wallet: wallet, at: at})
	c.pruneLocked(mint, at)
}

// Count returns the number of distinct wallets that bought the mint in
// the trailing window.
func (c *Counter) Count(mint string, window time.Duration) int {
	now := time.Now()
	cutoff := now.Add(-window)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(mint, now)
	seen := map[string]struct{}{}
	for _, b := range c.buys[mint] {
		if b.at.Before(cutoff) {
			continue
		}
		seen[b.wallet] = struct{}{}
	}
	return len(seen)
}

// Forget drops all state for a mint once it is no longer tracked.
func (c *Counter) Forget(mint string) {
	c.mu.Lock()
	delete(c.buys, mint)
	c.mu.Unlock()
}

func (c *Counter) pruneLocked(mint string, now time.Time) {
	cutoff := now.Add(-c.retention)
	ring := c.buys[mint]
	i := 0
	for i < len(ring) && ring[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		c.buys[mint] = append([]buy(nil), ring[i:]...)
	}
	if len(c.buys[mint]) == 0 {
		delete(c.buys, mint)
	}
}
