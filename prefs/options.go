package prefs

// WriteOption adjusts a single write.
type WriteOption func(*writeConfig)

// writeConfig collects the options applied to one write.
type writeConfig struct {
	expectedVersion *int64
	token           string
}

func applyOptions(opts []WriteOption) writeConfig {
	var wc writeConfig
	for _, opt := range opts {
		opt(&wc)
	}
	return wc
}

// WithExpectedVersion makes the write conditional: it applies only when
// the stored version still matches, and returns store.ErrVersionConflict
// otherwise. Pass store.VersionNotExists to require that the entry does
// not exist yet. Without this option writes are last-writer-wins.
func WithExpectedVersion(version int64) WriteOption {
	return func(c *writeConfig) {
		v := version
		c.expectedVersion = &v
	}
}

// WithIdempotencyToken attaches a client-chosen token to the write. A
// repeated write carrying the same token replays the recorded outcome
// instead of executing again. Tokens are scoped to the owner and recorded
// outcomes expire after Config.IdempotencyTTL.
func WithIdempotencyToken(token string) WriteOption {
	return func(c *writeConfig) {
		c.token = token
	}
}
