package cache

import (
	"context"

	"github.com/jellydator/ttlcache/v3"

	"github.com/jacentio/lattice/aggregate"
)

// Memory is the in-process Cache. TTLs are absolute: a hit does not extend
// an entry's life, so staleness stays bounded by Config.TTL no matter how
// hot a key is.
type Memory struct {
	views *ttlcache.Cache[string, aggregate.View]
}

var _ Cache = (*Memory)(nil)

// NewMemory creates a Memory cache and starts its expiry loop. Call Close
// when done with it.
func NewMemory(config Config) *Memory {
	config.validate()

	views := ttlcache.New(
		ttlcache.WithTTL[string, aggregate.View](config.TTL),
		ttlcache.WithDisableTouchOnHit[string, aggregate.View](),
		ttlcache.WithCapacity[string, aggregate.View](uint64(config.MaxEntries)),
	)
	go views.Start()

	return &Memory{views: views}
}

// Get returns a copy of the cached view, so callers can mutate the result
// without racing other readers.
func (m *Memory) Get(ctx context.Context, ownerID string) (aggregate.View, bool, error) {
	item := m.views.Get(ownerID)
	if item == nil {
		return aggregate.View{}, false, nil
	}
	return item.Value().Clone(), true, nil
}

// Put stores a copy of the view, so later caller mutations don't reach the
// cached state.
func (m *Memory) Put(ctx context.Context, ownerID string, view aggregate.View) error {
	m.views.Set(ownerID, view.Clone(), ttlcache.DefaultTTL)
	return nil
}

// Invalidate drops the owner's cached view.
func (m *Memory) Invalidate(ctx context.Context, ownerID string) error {
	m.views.Delete(ownerID)
	return nil
}

// Close stops the expiry loop.
func (m *Memory) Close() {
	m.views.Stop()
}
