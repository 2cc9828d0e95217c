package store

// Config holds configuration for the Store.
type Config struct {
	// TableName is the preference table.
	// Default: "lattice_preferences"
	TableName string

	// EventuallyConsistent allows eventually consistent queries. By default
	// reads are strongly consistent so a caller always observes its own
	// acknowledged writes within an owner partition; eventual consistency
	// halves read cost at the price of that guarantee.
	EventuallyConsistent bool

	// WriteConcurrency is the number of batch-write chunks dispatched in
	// parallel during a category replace.
	// Default: 4
	// Max: 32
	WriteConcurrency int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TableName:        "lattice_preferences",
		WriteConcurrency: 4,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.TableName == "" {
		c.TableName = "lattice_preferences"
	}
	if c.WriteConcurrency < 1 {
		c.WriteConcurrency = 4
	}
	if c.WriteConcurrency > 32 {
		c.WriteConcurrency = 32
	}
}
