package prefs

import (
	"context"

	"github.com/jacentio/lattice/entry"
	"github.com/jacentio/lattice/store"
)

// SetToggle sets a boolean toggle and returns the entry's new version.
func (s *Service) SetToggle(ctx context.Context, ownerID, key string, value bool, opts ...WriteOption) (int64, error) {
	e := entry.Entry{
		OwnerID:  ownerID,
		Category: entry.Toggleable(),
		Key:      key,
		Value:    entry.BoolValue(value),
	}
	return s.write(ctx, ownerID, opts, func(wc writeConfig) (int64, error) {
		return s.upsert(ctx, e, wc)
	})
}

// SetPreference sets a string preference and returns the entry's new
// version.
func (s *Service) SetPreference(ctx context.Context, ownerID, key, value string, opts ...WriteOption) (int64, error) {
	e := entry.Entry{
		OwnerID:  ownerID,
		Category: entry.Preference(),
		Key:      key,
		Value:    entry.StringValue(value),
	}
	return s.write(ctx, ownerID, opts, func(wc writeConfig) (int64, error) {
		return s.upsert(ctx, e, wc)
	})
}

// UpdateFavorites applies add then remove to the domain's favorite set and
// writes the result back under CAS on the version it read, or on the
// caller's WithExpectedVersion. An absent set starts empty and the write
// then requires that it still not exist. The result may be an empty set;
// it persists as one so the version chain survives, and aggregation omits
// empty domains from views.
func (s *Service) UpdateFavorites(ctx context.Context, ownerID, domain string, add, remove []string, opts ...WriteOption) (int64, error) {
	cat := entry.Favorites(domain)
	return s.write(ctx, ownerID, opts, func(wc writeConfig) (int64, error) {
		entries, err := s.engine.GetCategory(ctx, ownerID, cat)
		if err != nil {
			return 0, err
		}

		var members []string
		current := store.VersionNotExists
		for _, e := range entries {
			if e.Key != entry.FavoritesKey {
				continue
			}
			members, _ = e.Value.StringSet()
			current = e.Version
			break
		}

		set := make(map[string]struct{}, len(members)+len(add))
		for _, m := range members {
			set[m] = struct{}{}
		}
		for _, m := range add {
			set[m] = struct{}{}
		}
		for _, m := range remove {
			delete(set, m)
		}
		updated := make([]string, 0, len(set))
		for m := range set {
			updated = append(updated, m)
		}

		expected := current
		if wc.expectedVersion != nil {
			expected = *wc.expectedVersion
		}

		e := entry.Entry{
			OwnerID:  ownerID,
			Category: cat,
			Key:      entry.FavoritesKey,
			Value:    entry.SetValue(updated...),
		}
		return s.engine.UpsertConditional(ctx, e, expected)
	})
}

// RemoveToggle deletes a toggle and invalidates the owner's cached view.
// Deleting an absent toggle is a no-op.
func (s *Service) RemoveToggle(ctx context.Context, ownerID, key string) error {
	return s.remove(ctx, ownerID, entry.Toggleable(), key)
}

// RemovePreference deletes a preference and invalidates the owner's cached
// view. Deleting an absent preference is a no-op.
func (s *Service) RemovePreference(ctx context.Context, ownerID, key string) error {
	return s.remove(ctx, ownerID, entry.Preference(), key)
}

func (s *Service) remove(ctx context.Context, ownerID string, cat entry.Category, key string) error {
	if err := s.engine.Delete(ctx, ownerID, cat, entry.PositionUnordered, key); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}
