package store

import "errors"

var (
	// ErrNotFound is returned when an operation references an entry that
	// doesn't exist. Reads of an absent category return an empty slice,
	// and deletes of absent entries are no-ops; neither is an error.
	ErrNotFound = errors.New("lattice: entry not found")

	// ErrVersionConflict is returned when optimistic lock fails: the stored
	// version no longer matches the expected one, or a not-exists condition
	// hit an existing entry. The caller must re-read and retry.
	ErrVersionConflict = errors.New("lattice: entry was modified concurrently")

	// ErrUnavailable wraps storage failures that are worth retrying with
	// backoff. A write that fails with ErrUnavailable may or may not have
	// been applied; conditional writes are safe to retry, unconditional
	// writes should re-verify state first.
	ErrUnavailable = errors.New("lattice: storage unavailable")
)
