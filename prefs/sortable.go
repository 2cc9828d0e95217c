package prefs

import (
	"context"
	"fmt"
	"slices"

	"github.com/jacentio/lattice/aggregate"
	"github.com/jacentio/lattice/entry"
	"github.com/jacentio/lattice/order"
	"github.com/jacentio/lattice/store"
)

// ReplaceSortable replaces the domain's whole list with items, assigning
// fresh stride positions in input order (item positions in the input are
// ignored). The replace is last-writer-wins: versions restart at 1, so
// WithExpectedVersion does not apply here; WithIdempotencyToken works as
// usual. Duplicate keys in the input are rejected.
func (s *Service) ReplaceSortable(ctx context.Context, ownerID, domain string, items []aggregate.SortableItem, opts ...WriteOption) error {
	cat := entry.Sortable(domain)

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.Key]; dup {
			return fmt.Errorf("%w: duplicate key %q", entry.ErrInvalidEntry, item.Key)
		}
		seen[item.Key] = struct{}{}
	}

	positions := order.Seed(len(items))
	entries := make([]entry.Entry, len(items))
	for i, item := range items {
		entries[i] = entry.Entry{
			OwnerID:  ownerID,
			Category: cat,
			Position: positions[i],
			Key:      item.Key,
			Value:    entry.StringValue(item.Value),
		}
	}

	_, err := s.write(ctx, ownerID, opts, func(writeConfig) (int64, error) {
		return 0, s.engine.ReplaceCategory(ctx, ownerID, cat, entries)
	})
	return err
}

// MoveSortableItem moves key into the slot after afterKey and returns its
// new position. An empty afterKey moves it to the front. When the item
// already occupies the requested slot, the move is a no-op returning the
// current position. An exhausted gap returns order.ErrRenumberRequired;
// call RenumberSortable and retry. Unknown key or afterKey return
// store.ErrNotFound.
func (s *Service) MoveSortableItem(ctx context.Context, ownerID, domain, key, afterKey string, opts ...WriteOption) (int64, error) {
	cat := entry.Sortable(domain)
	return s.write(ctx, ownerID, opts, func(wc writeConfig) (int64, error) {
		entries, err := s.engine.GetCategory(ctx, ownerID, cat)
		if err != nil {
			return 0, err
		}

		mover, others := splitMover(entries, key)
		if mover == nil {
			return 0, fmt.Errorf("item %q: %w", key, store.ErrNotFound)
		}
		if afterKey == key {
			return mover.Position, nil
		}

		// The target slot is the gap (lo, hi) between afterKey and its
		// successor, the moving item itself excluded.
		var lo, hi int64
		var bounded bool
		if afterKey == "" {
			if len(others) > 0 {
				hi = others[0].Position
				bounded = true
			}
		} else {
			idx := slices.IndexFunc(others, func(e entry.Entry) bool { return e.Key == afterKey })
			if idx < 0 {
				return 0, fmt.Errorf("anchor %q: %w", afterKey, store.ErrNotFound)
			}
			lo = others[idx].Position
			if idx+1 < len(others) {
				hi = others[idx+1].Position
				bounded = true
			}
		}

		// Already strictly inside the gap means the item holds the slot.
		if mover.Position > lo && (!bounded || mover.Position < hi) {
			return mover.Position, nil
		}

		var newPosition int64
		switch {
		case !bounded:
			newPosition = order.Next(lo)
		case hi <= lo:
			// Tied neighbor positions leave no gap to split.
			return 0, fmt.Errorf("no gap after %q: %w", afterKey, order.ErrRenumberRequired)
		default:
			newPosition, err = order.Between(lo, hi)
			if err != nil {
				return 0, err
			}
		}

		expected := mover.Version
		if wc.expectedVersion != nil {
			expected = *wc.expectedVersion
		}

		moved := *mover
		moved.Position = newPosition
		if _, err := s.engine.Reposition(ctx, moved, mover.Position, expected); err != nil {
			return 0, err
		}
		return newPosition, nil
	})
}

// RenumberSortable rewrites the domain's positions to a fresh stride,
// preserving the current order. It is the recovery path for
// order.ErrRenumberRequired. Like any category replace, versions restart
// at 1.
func (s *Service) RenumberSortable(ctx context.Context, ownerID, domain string) error {
	cat := entry.Sortable(domain)
	entries, err := s.engine.GetCategory(ctx, ownerID, cat)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	if err := s.engine.ReplaceCategory(ctx, ownerID, cat, order.Renumber(entries)); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

// splitMover pulls the moving entry out of the list, preserving the order
// of the rest.
func splitMover(entries []entry.Entry, key string) (*entry.Entry, []entry.Entry) {
	var mover *entry.Entry
	others := make([]entry.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Key == key && mover == nil {
			m := e
			mover = &m
			continue
		}
		others = append(others, e)
	}
	return mover, others
}
