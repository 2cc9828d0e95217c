// Package recordkey builds range keys for the preference table.
package recordkey

import (
	"fmt"

	"github.com/jacentio/lattice/entry"
)

// Separator splits the segments of a range key. Category strings and entry
// keys are validated upstream to never contain it.
const Separator = "#"

// SK builds the range key for an entry. Sortable categories embed the
// position, zero-padded so lexicographic key order equals numeric position
// order, with the key as the final segment breaking position ties:
//
//	toggleable#autoplay
//	favorites:artists#members
//	sortable:queue#0000000000000001000#track-9
func SK(cat entry.Category, position int64, key string) string {
	if cat.Ordered() {
		return fmt.Sprintf("%s%s%019d%s%s", cat, Separator, position, Separator, key)
	}
	return cat.String() + Separator + key
}

// CategoryPrefix returns the range-key prefix selecting every entry of one
// category, for use with begins_with.
func CategoryPrefix(cat entry.Category) string {
	return cat.String() + Separator
}
