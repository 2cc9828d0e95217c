// Package aggregate assembles flat entry lists into the sectioned view the
// bulk read returns: toggles, preferences, favorites, and sortable lists,
// with a spillover bucket for anything a newer writer stored that this
// version does not recognize.
package aggregate

import (
	"slices"

	"github.com/jacentio/lattice/entry"
)

// SortableItem is one element of an ordered list.
type SortableItem struct {
	Key      string
	Value    string
	Position int64
}

// View is the assembled per-owner preference state.
type View struct {
	// Toggles maps toggle key to its boolean value.
	Toggles map[string]bool

	// Preferences maps preference key to its string value.
	Preferences map[string]string

	// Favorites maps domain to the union of its favorite sets, sorted.
	// Domains whose union is empty are omitted.
	Favorites map[string][]string

	// Sortables maps domain to its items in storage order
	// (position ascending, key tie-break).
	Sortables map[string][]SortableItem

	// Other holds entries whose category is unrecognized or whose value
	// disagrees with its category. They are carried, not dropped, so an
	// older reader never loses a newer writer's data.
	Other []entry.Entry
}

// Assemble builds a View from entries in one pass. It never fails: every
// entry lands in exactly one section. Sortable items keep the input order,
// which storage guarantees is position order.
func Assemble(entries []entry.Entry) View {
	v := View{
		Toggles:     make(map[string]bool),
		Preferences: make(map[string]string),
		Favorites:   make(map[string][]string),
		Sortables:   make(map[string][]SortableItem),
	}

	for _, e := range entries {
		switch e.Category.Kind {
		case entry.KindToggleable:
			val, ok := e.Value.Bool()
			if !ok {
				v.Other = append(v.Other, e)
				continue
			}
			v.Toggles[e.Key] = val
		case entry.KindPreference:
			val, ok := e.Value.String()
			if !ok {
				v.Other = append(v.Other, e)
				continue
			}
			v.Preferences[e.Key] = val
		case entry.KindFavorites:
			members, ok := e.Value.StringSet()
			if !ok {
				v.Other = append(v.Other, e)
				continue
			}
			if len(members) > 0 {
				v.Favorites[e.Category.Domain] = append(v.Favorites[e.Category.Domain], members...)
			}
		case entry.KindSortable:
			val, ok := e.Value.String()
			if !ok {
				v.Other = append(v.Other, e)
				continue
			}
			v.Sortables[e.Category.Domain] = append(v.Sortables[e.Category.Domain], SortableItem{
				Key:      e.Key,
				Value:    val,
				Position: e.Position,
			})
		default:
			v.Other = append(v.Other, e)
		}
	}

	// Multiple set entries in one domain union together.
	for domain, members := range v.Favorites {
		slices.Sort(members)
		v.Favorites[domain] = slices.Compact(members)
	}

	return v
}

// Clone returns a deep copy. Entries in Other are immutable values, so a
// slice copy suffices for them.
func (v View) Clone() View {
	out := View{
		Toggles:     make(map[string]bool, len(v.Toggles)),
		Preferences: make(map[string]string, len(v.Preferences)),
		Favorites:   make(map[string][]string, len(v.Favorites)),
		Sortables:   make(map[string][]SortableItem, len(v.Sortables)),
		Other:       slices.Clone(v.Other),
	}
	for k, val := range v.Toggles {
		out.Toggles[k] = val
	}
	for k, val := range v.Preferences {
		out.Preferences[k] = val
	}
	for k, members := range v.Favorites {
		out.Favorites[k] = slices.Clone(members)
	}
	for k, items := range v.Sortables {
		out.Sortables[k] = slices.Clone(items)
	}
	return out
}
