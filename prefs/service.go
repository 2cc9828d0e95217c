package prefs

import (
	"context"
	"log/slog"
	"time"

	"github.com/jacentio/lattice/aggregate"
	"github.com/jacentio/lattice/cache"
	"github.com/jacentio/lattice/entry"
	"github.com/jacentio/lattice/store"
)

// Config holds configuration for the Service.
type Config struct {
	// Logger receives structured diagnostics. nil means slog.Default().
	Logger *slog.Logger

	// IdempotencyTTL is how long a recorded write outcome stays replayable.
	// Default: 24h
	IdempotencyTTL time.Duration

	// IdempotencyCapacity caps how many outcomes the ledger holds.
	// Default: 100000
	IdempotencyCapacity int
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = 24 * time.Hour
	}
	if c.IdempotencyCapacity < 1 {
		c.IdempotencyCapacity = 100000
	}
}

// Service is the preference facade: reads assemble entries into views
// through the cache, writes go to storage and invalidate the owner's
// cached view on the way out. A Service holds no per-request state and is
// safe for concurrent use.
type Service struct {
	engine store.Engine
	cache  cache.Cache
	ledger *ledger
	logger *slog.Logger
}

// New creates a Service over the given engine. A nil cache sends every
// read to storage. Call Close when done with it.
func New(engine store.Engine, c cache.Cache, config Config) *Service {
	config.validate()
	return &Service{
		engine: engine,
		cache:  c,
		ledger: newLedger(config.IdempotencyTTL, config.IdempotencyCapacity),
		logger: config.Logger,
	}
}

// Close stops the idempotency ledger's expiry loop.
func (s *Service) Close() {
	s.ledger.close()
}

// GetAll returns the owner's assembled preference view, serving from the
// cache when it can. Cache failures degrade to a storage read; they never
// surface to the caller.
func (s *Service) GetAll(ctx context.Context, ownerID string) (aggregate.View, error) {
	if s.cache != nil {
		view, hit, err := s.cache.Get(ctx, ownerID)
		switch {
		case err != nil:
			s.logger.Warn("cache read failed", "ownerID", ownerID, "error", err)
		case hit:
			s.logger.Debug("cache hit", "ownerID", ownerID)
			return view, nil
		}
	}

	entries, err := s.engine.GetAll(ctx, ownerID)
	if err != nil {
		return aggregate.View{}, err
	}
	view := aggregate.Assemble(entries)

	if s.cache != nil {
		if err := s.cache.Put(ctx, ownerID, view); err != nil {
			s.logger.Warn("cache write failed", "ownerID", ownerID, "error", err)
		}
	}
	return view, nil
}

// GetCategory returns one category's entries straight from storage,
// ordered by (position, key). Per-category reads bypass the aggregate
// cache; its granularity is whole owners.
func (s *Service) GetCategory(ctx context.Context, ownerID string, cat entry.Category) ([]entry.Entry, error) {
	return s.engine.GetCategory(ctx, ownerID, cat)
}

// write runs one mutation under the idempotency ledger and invalidates the
// owner's cached view afterward.
func (s *Service) write(ctx context.Context, ownerID string, opts []WriteOption, fn func(writeConfig) (int64, error)) (int64, error) {
	wc := applyOptions(opts)
	if out, ok := s.ledger.lookup(ownerID, wc.token); ok {
		s.logger.Debug("replaying recorded write outcome", "ownerID", ownerID)
		return out.result, out.err
	}

	result, err := fn(wc)
	s.ledger.record(ownerID, wc.token, result, err)
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, ownerID)
	return result, nil
}

// upsert dispatches to the conditional or unconditional engine write.
func (s *Service) upsert(ctx context.Context, e entry.Entry, wc writeConfig) (int64, error) {
	if wc.expectedVersion != nil {
		return s.engine.UpsertConditional(ctx, e, *wc.expectedVersion)
	}
	return s.engine.UpsertUnconditional(ctx, e)
}

// invalidate drops the owner's cached view. Failures are logged and
// swallowed: the write already landed, and the TTL bounds how long the
// stale view can live.
func (s *Service) invalidate(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ownerID); err != nil {
		s.logger.Warn("cache invalidation failed", "ownerID", ownerID, "error", err)
	}
}
