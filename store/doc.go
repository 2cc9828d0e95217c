// Package store provides the DynamoDB persistence layer for preference
// entries.
//
// Lattice keeps every entry an owner has in a single table partition so
// that one query returns the owner's full preference state. The range key
// embeds the category, and for sortable categories a zero-padded position,
// so range queries come back in display order without a sort step.
//
// # Table Layout
//
// Each entry maps to one item:
//
//	pk           S  owner id
//	sk           S  category "#" key, or category "#" padded position "#" key
//	category     S  canonical category name
//	position     N  fractional ordering position, 0 for unordered entries
//	key          S  entry key
//	value_kind   S  "bool", "string", or "string_set"
//	bool_value   BOOL  present when value_kind is "bool"
//	string_value S     present when value_kind is "string"
//	set_value    SS    present when value_kind is "string_set" and non-empty
//	version      N  optimistic lock counter, starts at 1
//	created_at   N  unix seconds
//	updated_at   N  unix seconds
//
// # Writes
//
// Upserts are a single UpdateItem with an if_not_exists version increment,
// so the first write of a key lands at version 1 without a prior read.
// [Store.UpsertConditional] adds a version condition on top and returns
// [ErrVersionConflict] when the stored version moved.
//
// [Store.ReplaceCategory] swaps a whole category using batch writes. The
// swap is not atomic; see the method comment for what readers may observe.
//
// [Store.Reposition] moves a sortable entry between range keys in one
// transaction, so no reader sees the entry twice or not at all.
//
// # Configuration
//
// Use [DefaultConfig] for strongly consistent reads and moderate batch
// fan-out:
//
//	cfg := store.DefaultConfig()
//	cfg.TableName = "my_preferences"
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrNotFound] - entry doesn't exist
//   - [ErrVersionConflict] - optimistic lock failed
//   - [ErrUnavailable] - storage failure, retryable with backoff
package store
