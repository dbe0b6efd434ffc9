// Package cache provides an LRU response cache with TTL for LLM generations.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Stats holds cumulative cache hit/miss counters.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Size    int
	MaxSize int
}

// HitRate returns the hit percentage over all lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Cache stores LLM responses keyed by (model, prompt).
type Cache interface {
	Get(model, prompt string) (string, bool)
	Set(model, prompt, response string)
	Stats() Stats
}

// Key returns the cache key for a (model, prompt) pair.
func Key(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + ":" + prompt))
	return hex.EncodeToString(sum[:])
}

// LRU is a bounded least-recently-used cache with per-entry TTL. A lookup of
// an expired entry counts as a miss and evicts the entry; a hit promotes the
// entry to most-recently-used.
type LRU struct {
	entries *expirable.LRU[string, string]
	maxSize int
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewLRU creates an LRU cache. ttl <= 0 disables expiry.
func NewLRU(maxSize int, ttl time.Duration) *LRU {
	return &LRU{
		entries: expirable.NewLRU[string, string](maxSize, nil, ttl),
		maxSize: maxSize,
	}
}

// Get returns the cached response for (model, prompt), if present and fresh.
func (c *LRU) Get(model, prompt string) (string, bool) {
	resp, ok := c.entries.Get(Key(model, prompt))
	if !ok {
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return resp, true
}

// Set stores a response, evicting the least-recently-used entry at capacity.
func (c *LRU) Set(model, prompt, response string) {
	c.entries.Add(Key(model, prompt), response)
}

// Stats returns cumulative hit/miss counters and current size.
func (c *LRU) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Size:    c.entries.Len(),
		MaxSize: c.maxSize,
	}
}

// Nop is a disabled cache: every lookup misses and nothing is stored.
type Nop struct{}

// Get always misses.
func (Nop) Get(_, _ string) (string, bool) { return "", false }

// Set discards the response.
func (Nop) Set(_, _, _ string) {}

// Stats returns zero counters.
func (Nop) Stats() Stats { return Stats{} }
