// Package memstore provides an in-memory store.Engine backed by a
// mutex-guarded map. It exists so the facade, cache, and aggregation layers
// are testable without AWS, and so embedders get an engine with no
// infrastructure behind it. Semantics match the DynamoDB implementation,
// except that ReplaceCategory happens to be atomic here; the Engine
// contract does not promise that.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jacentio/lattice/entry"
	"github.com/jacentio/lattice/internal/recordkey"
	"github.com/jacentio/lattice/store"
)

// Store is an in-memory store.Engine. The zero value is not usable; call
// New.
type Store struct {
	mu     sync.RWMutex
	owners map[string]map[string]entry.Entry
}

var _ store.Engine = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		owners: make(map[string]map[string]entry.Entry),
	}
}

// GetAll returns every entry for the owner, ordered by
// (category, position, key).
func (s *Store) GetAll(ctx context.Context, ownerID string) ([]entry.Entry, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: empty owner id", entry.ErrInvalidEntry)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []entry.Entry
	for _, e := range s.owners[ownerID] {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, entry.Compare)
	return entries, nil
}

// GetCategory returns the owner's entries in one category, ordered by
// (position, key).
func (s *Store) GetCategory(ctx context.Context, ownerID string, cat entry.Category) ([]entry.Entry, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: empty owner id", entry.ErrInvalidEntry)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := recordkey.CategoryPrefix(cat)
	var entries []entry.Entry
	for sk, e := range s.owners[ownerID] {
		if strings.HasPrefix(sk, prefix) {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, entry.Compare)
	return entries, nil
}

// UpsertUnconditional inserts or overwrites the entry, setting version to 1
// when new and incrementing it otherwise.
func (s *Store) UpsertUnconditional(ctx context.Context, e entry.Entry) (int64, error) {
	return s.upsert(ctx, e, nil)
}

// UpsertConditional applies the entry only when the stored version equals
// expectedVersion, or when the entry is absent and expectedVersion is
// store.VersionNotExists.
func (s *Store) UpsertConditional(ctx context.Context, e entry.Entry, expectedVersion int64) (int64, error) {
	if expectedVersion < 0 {
		return 0, fmt.Errorf("lattice: negative expected version %d", expectedVersion)
	}
	return s.upsert(ctx, e, &expectedVersion)
}

func (s *Store) upsert(ctx context.Context, e entry.Entry, expectedVersion *int64) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	sk := recordkey.SK(e.Category, e.Position, e.Key)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.owners[e.OwnerID][sk]
	if expectedVersion != nil {
		if *expectedVersion == store.VersionNotExists {
			if exists {
				return 0, store.ErrVersionConflict
			}
		} else if !exists || existing.Version != *expectedVersion {
			return 0, store.ErrVersionConflict
		}
	}

	if exists {
		e.Version = existing.Version + 1
		e.CreatedAt = existing.CreatedAt
	} else {
		e.Version = 1
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	s.put(e.OwnerID, sk, e)
	return e.Version, nil
}

// ReplaceCategory deletes every entry in (ownerID, cat) and inserts the
// given entries with version 1 and fresh timestamps.
func (s *Store) ReplaceCategory(ctx context.Context, ownerID string, cat entry.Category, entries []entry.Entry) error {
	if ownerID == "" {
		return fmt.Errorf("%w: empty owner id", entry.ErrInvalidEntry)
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		if e.OwnerID != ownerID || e.Category != cat {
			return fmt.Errorf("%w: entry %q does not belong to owner %q category %q",
				entry.ErrInvalidEntry, e.Key, ownerID, cat)
		}
		sk := recordkey.SK(e.Category, e.Position, e.Key)
		if _, dup := seen[sk]; dup {
			return fmt.Errorf("%w: duplicate entry %q", entry.ErrInvalidEntry, sk)
		}
		seen[sk] = struct{}{}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := recordkey.CategoryPrefix(cat)
	for sk := range s.owners[ownerID] {
		if strings.HasPrefix(sk, prefix) {
			delete(s.owners[ownerID], sk)
		}
	}
	for _, e := range entries {
		e.Version = 1
		e.CreatedAt = now
		e.UpdatedAt = now
		s.put(ownerID, recordkey.SK(e.Category, e.Position, e.Key), e)
	}
	return nil
}

// Delete removes one entry. Deleting a non-existent entry is a no-op.
func (s *Store) Delete(ctx context.Context, ownerID string, cat entry.Category, position int64, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.owners[ownerID], recordkey.SK(cat, position, key))
	return nil
}

// Reposition moves a sortable entry to e.Position, conditioned on
// expectedVersion, removing the old row in the same step.
func (s *Store) Reposition(ctx context.Context, e entry.Entry, oldPosition, expectedVersion int64) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if !e.Category.Ordered() {
		return 0, fmt.Errorf("%w: category %q does not order entries", entry.ErrInvalidEntry, e.Category)
	}
	if expectedVersion < 1 {
		return 0, fmt.Errorf("lattice: reposition requires the current version, got %d", expectedVersion)
	}
	if oldPosition == e.Position {
		return 0, fmt.Errorf("lattice: reposition to the same position %d", e.Position)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	oldSK := recordkey.SK(e.Category, oldPosition, e.Key)
	newSK := recordkey.SK(e.Category, e.Position, e.Key)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.owners[e.OwnerID][oldSK]
	if !exists || existing.Version != expectedVersion {
		return 0, store.ErrVersionConflict
	}
	if _, occupied := s.owners[e.OwnerID][newSK]; occupied {
		return 0, store.ErrVersionConflict
	}

	e.Version = expectedVersion + 1
	e.UpdatedAt = now
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}

	delete(s.owners[e.OwnerID], oldSK)
	s.put(e.OwnerID, newSK, e)
	return e.Version, nil
}

// put stores under the owner's map, creating it on first write. Callers
// hold the write lock.
func (s *Store) put(ownerID, sk string, e entry.Entry) {
	if s.owners[ownerID] == nil {
		s.owners[ownerID] = make(map[string]entry.Entry)
	}
	s.owners[ownerID][sk] = e
}
