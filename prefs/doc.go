// Package prefs is the user-preferences facade: one bulk read returning an
// owner's full preference state, and fine-grained writes over the same
// records with optimistic concurrency and idempotent retries.
//
// Lattice models preferences as typed entries in four category families:
// boolean toggles, string preferences, set-valued favorites per domain, and
// ordered sortable lists per domain. [Service.GetAll] assembles them into an
// [aggregate.View]; the per-kind setters write them back one at a time.
//
// # Reads
//
// GetAll is read-through cached: a hit returns the cached view, a miss
// reads storage, assembles, and populates the cache. Every write
// invalidates the owner's cached view before returning, so a reader that
// just wrote sees its write. Cache failures of any sort degrade to storage
// reads; they never surface.
//
// # Writes
//
// Writes are unconditional by default. [WithExpectedVersion] turns a write
// into a compare-and-set on the entry's version counter:
//
//	entries, _ := svc.GetCategory(ctx, owner, entry.Preference())
//	// ... caller picks out the entry and decides on a new value ...
//	_, err := svc.SetPreference(ctx, owner, "theme", "dark",
//		prefs.WithExpectedVersion(entries[0].Version))
//	if errors.Is(err, store.ErrVersionConflict) {
//		// re-read and retry
//	}
//
// [WithIdempotencyToken] makes a write safely retryable end-to-end: the
// first execution records its outcome under the token, and a repeat with
// the same token replays that outcome without mutating anything.
//
// # Ordered lists
//
// Sortable items carry sparse integer positions (1000, 2000, ...) so a
// move rewrites one item, not the list. [Service.MoveSortableItem] places
// an item after another and returns its new position; when repeated moves
// squeeze a gap down to nothing it returns [order.ErrRenumberRequired],
// and [Service.RenumberSortable] restores the spacing.
// [Service.ReplaceSortable] swaps an entire list at once; it is
// deliberately last-writer-wins rather than CAS-guarded.
//
// # Errors
//
// Callers branch on the sentinel errors:
//
//   - [store.ErrNotFound] - move target or anchor doesn't exist
//   - [store.ErrVersionConflict] - CAS failed, re-read and retry
//   - [store.ErrUnavailable] - storage failure, retry with backoff
//   - [order.ErrRenumberRequired] - gap exhausted, renumber and retry
//   - [entry.ErrInvalidEntry] - input rejected, don't retry
package prefs
