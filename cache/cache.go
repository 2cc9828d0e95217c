// Package cache holds assembled preference views keyed by owner id. The
// cache is aggregate-only: views live and die whole, so an invalidation is
// one key delete and a hit never needs reassembly.
//
// Cached views are derived state. Losing one costs a storage read, nothing
// more, so implementations may evict freely and callers must treat every
// failure as a miss.
package cache

import (
	"context"
	"time"

	"github.com/jacentio/lattice/aggregate"
)

// Cache is the owner-view cache contract. The in-process implementation
// never returns an error; the signatures carry ctx and error so a
// networked implementation can satisfy the same interface.
type Cache interface {
	// Get returns the cached view for the owner and whether it was present.
	Get(ctx context.Context, ownerID string) (aggregate.View, bool, error)

	// Put stores the view under the owner id with the configured TTL.
	Put(ctx context.Context, ownerID string, view aggregate.View) error

	// Invalidate drops the owner's cached view. Invalidating an absent key
	// is a no-op.
	Invalidate(ctx context.Context, ownerID string) error
}

// Config holds configuration for the in-memory cache.
type Config struct {
	// TTL bounds how stale a cached view can get.
	// Default: 5m
	TTL time.Duration

	// MaxEntries caps how many owners are cached at once; older entries
	// are evicted beyond it.
	// Default: 10000
	MaxEntries int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TTL:        5 * time.Minute,
		MaxEntries: 10000,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.MaxEntries < 1 {
		c.MaxEntries = 10000
	}
}
