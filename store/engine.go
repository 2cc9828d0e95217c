package store

import (
	"context"

	"github.com/jacentio/lattice/entry"
)

// VersionNotExists is the expectedVersion sentinel asserting that the entry
// must not exist yet. Stored versions start at 1, so 0 is never a real
// version.
const VersionNotExists int64 = 0

// Engine is the storage contract: durable, partition-local CRUD over
// entries with per-entry compare-and-set. It is implementable over any
// backing store with a conditional-write primitive; this package provides
// the DynamoDB implementation and package memstore a mutex-guarded map.
type Engine interface {
	// GetAll returns every entry for the owner, ordered by
	// (category, position, key).
	GetAll(ctx context.Context, ownerID string) ([]entry.Entry, error)

	// GetCategory returns the owner's entries in one category, ordered by
	// (position, key). An absent category yields an empty slice, not an
	// error.
	GetCategory(ctx context.Context, ownerID string, cat entry.Category) ([]entry.Entry, error)

	// UpsertUnconditional inserts or overwrites the entry, setting version
	// to 1 when new and incrementing it otherwise. Returns the new version.
	UpsertUnconditional(ctx context.Context, e entry.Entry) (int64, error)

	// UpsertConditional is the compare-and-set write: it applies only when
	// the stored version equals expectedVersion, or when the entry is
	// absent and expectedVersion is VersionNotExists. On success it
	// increments the version and returns it; on mismatch it returns
	// ErrVersionConflict without mutating anything.
	UpsertConditional(ctx context.Context, e entry.Entry, expectedVersion int64) (int64, error)

	// ReplaceCategory deletes every entry in (ownerID, cat) and inserts the
	// given entries with version 1 and fresh timestamps. The delete+insert
	// boundary is not atomic: a concurrent reader may observe an empty or
	// partial category while the replace is in flight.
	ReplaceCategory(ctx context.Context, ownerID string, cat entry.Category, entries []entry.Entry) error

	// Delete removes one entry. Deleting a non-existent entry is a no-op.
	Delete(ctx context.Context, ownerID string, cat entry.Category, position int64, key string) error

	// Reposition moves a sortable entry from oldPosition to e.Position in
	// one atomic step, conditioned on expectedVersion. Position is part of
	// the row identity, so a move writes the new row and removes the old
	// one together; the new row carries expectedVersion+1, which is
	// returned. A concurrent writer surfaces as ErrVersionConflict.
	Reposition(ctx context.Context, e entry.Entry, oldPosition, expectedVersion int64) (int64, error)
}
