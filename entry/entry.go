// Package entry defines the polymorphic preference record: its identity,
// value variants, canonical ordering, and validation rules.
package entry

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PositionUnordered is the position sentinel for entries whose category does
// not order its members. Valid sortable positions start at 1.
const PositionUnordered int64 = 0

// FavoritesKey is the fixed key under which a domain's favorites set is stored.
const FavoritesKey = "members"

var (
	// ErrInvalidEntry is returned when an entry violates a model invariant.
	ErrInvalidEntry = errors.New("lattice: invalid entry")

	// ErrInvalidValueKind is returned when the populated value variant
	// disagrees with what the entry's category requires.
	ErrInvalidValueKind = errors.New("lattice: value kind mismatch")
)

// Entry is the atomic stored unit. Its stable identity is
// (OwnerID, Category, Position, Key); everything else is payload.
type Entry struct {
	// OwnerID is the partition key; all entries for one owner are
	// co-located and retrieved together in one lookup.
	OwnerID string

	// Category groups the entry for per-resource queries.
	Category Category

	// Position orders entries within a sortable category.
	// PositionUnordered for every other category.
	Position int64

	// Key identifies the entry within (owner, category, position):
	// a toggle name, a sortable item id, or FavoritesKey.
	Key string

	// Value is the entry payload.
	Value Value

	// Version is the optimistic lock counter. 1 on creation, incremented
	// on every successful write; resets only on delete and recreate.
	Version int64

	// CreatedAt is set once on first write.
	CreatedAt time.Time

	// UpdatedAt changes on every successful write.
	UpdatedAt time.Time
}

// Validate reports whether the entry satisfies the model invariants.
// Violations wrap ErrInvalidEntry, or ErrInvalidValueKind when the value
// variant is missing or disagrees with the category.
func (e Entry) Validate() error {
	if e.OwnerID == "" {
		return fmt.Errorf("%w: empty owner id", ErrInvalidEntry)
	}
	if e.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidEntry)
	}
	if strings.Contains(e.Key, keySeparator) {
		return fmt.Errorf("%w: key %q contains %q", ErrInvalidEntry, e.Key, keySeparator)
	}
	cat := e.Category.String()
	if cat == "" {
		return fmt.Errorf("%w: empty category", ErrInvalidEntry)
	}
	if strings.Contains(cat, keySeparator) {
		return fmt.Errorf("%w: category %q contains %q", ErrInvalidEntry, cat, keySeparator)
	}
	if e.Category.Ordered() {
		if e.Position < 1 {
			return fmt.Errorf("%w: sortable entry %q needs a position >= 1", ErrInvalidEntry, e.Key)
		}
	} else if e.Position != PositionUnordered {
		return fmt.Errorf("%w: category %q does not order entries", ErrInvalidEntry, cat)
	}
	if e.Version < 0 {
		return fmt.Errorf("%w: negative version %d", ErrInvalidEntry, e.Version)
	}
	got := e.Value.Kind()
	if got == ValueInvalid {
		return fmt.Errorf("%w: no value populated", ErrInvalidValueKind)
	}
	if want := e.Category.valueKind(); want != ValueInvalid && got != want {
		return fmt.Errorf("%w: category %q requires %s, got %s", ErrInvalidValueKind, cat, want, got)
	}
	return nil
}

// Compare orders two entries of one owner canonically: by category, then
// position, then key. Key order is the defined tie-break for entries
// sharing a position.
func Compare(a, b Entry) int {
	if c := cmp.Compare(a.Category.String(), b.Category.String()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Position, b.Position); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}
