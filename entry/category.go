package entry

import "strings"

// keySeparator splits the segments of a persisted sort key. Keys, domains,
// and category names must not contain it.
const keySeparator = "#"

// Kind identifies the category family an entry belongs to.
type Kind int

const (
	// KindUnknown marks category strings this version does not recognize.
	// Unknown categories round-trip through storage and aggregation so new
	// preference types can be introduced without a contract break.
	KindUnknown Kind = iota

	// KindToggleable groups boolean feature toggles.
	KindToggleable

	// KindPreference groups free-form string preferences.
	KindPreference

	// KindFavorites groups set-valued favorites, one set per domain.
	KindFavorites

	// KindSortable groups ordered lists, one list per domain.
	KindSortable
)

const (
	categoryToggleable = "toggleable"
	categoryPreference = "preference"
	prefixFavorites    = "favorites:"
	prefixSortable     = "sortable:"
)

// Category discriminates entries into resource types. Favorites and
// sortable categories carry the domain they apply to (e.g., "artists",
// "queue"); the other kinds leave Domain empty.
type Category struct {
	Kind   Kind
	Domain string

	// raw preserves the original string for unknown categories.
	raw string
}

// Toggleable returns the boolean toggle category.
func Toggleable() Category { return Category{Kind: KindToggleable} }

// Preference returns the string preference category.
func Preference() Category { return Category{Kind: KindPreference} }

// Favorites returns the favorites category for a domain.
func Favorites(domain string) Category {
	return Category{Kind: KindFavorites, Domain: domain}
}

// Sortable returns the ordered-list category for a domain.
func Sortable(domain string) Category {
	return Category{Kind: KindSortable, Domain: domain}
}

// ParseCategory maps a stored category string to a Category. Strings that
// do not match a known form parse as KindUnknown and round-trip unchanged
// through String.
func ParseCategory(s string) Category {
	switch {
	case s == categoryToggleable:
		return Toggleable()
	case s == categoryPreference:
		return Preference()
	case strings.HasPrefix(s, prefixFavorites) && len(s) > len(prefixFavorites):
		return Favorites(strings.TrimPrefix(s, prefixFavorites))
	case strings.HasPrefix(s, prefixSortable) && len(s) > len(prefixSortable):
		return Sortable(strings.TrimPrefix(s, prefixSortable))
	default:
		return Category{Kind: KindUnknown, raw: s}
	}
}

// String returns the canonical wire form: "toggleable", "preference",
// "favorites:<domain>", "sortable:<domain>", or the preserved raw string
// for unknown categories.
func (c Category) String() string {
	switch c.Kind {
	case KindToggleable:
		return categoryToggleable
	case KindPreference:
		return categoryPreference
	case KindFavorites:
		return prefixFavorites + c.Domain
	case KindSortable:
		return prefixSortable + c.Domain
	default:
		return c.raw
	}
}

// Ordered reports whether entries of this category are totally ordered
// by position.
func (c Category) Ordered() bool { return c.Kind == KindSortable }

// valueKind returns the value variant a category requires, or ValueInvalid
// when any variant is acceptable (unknown categories).
func (c Category) valueKind() ValueKind {
	switch c.Kind {
	case KindToggleable:
		return ValueBool
	case KindPreference:
		return ValueString
	case KindFavorites:
		return ValueStringSet
	case KindSortable:
		return ValueString
	default:
		return ValueInvalid
	}
}
