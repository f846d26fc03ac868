package edgevec

import "fmt"

// Option configures a Config during New. Grounded on libravdb/options.go's
// functional-options pattern (WithDimension, WithMetric, WithHNSW, ...),
// generalized to a flat Config field set.
type Option func(*Config) error

// WithDimensions sets the required vector dimensionality.
func WithDimensions(dims int) Option {
	return func(c *Config) error {
		if dims <= 0 {
			return fmt.Errorf("dimensions must be positive, got %d", dims)
		}
		c.Dimensions = dims
		return nil
	}
}

// WithMetric selects the distance function.
func WithMetric(m Metric) Option {
	return func(c *Config) error {
		c.Metric = m
		return nil
	}
}

// WithHNSW configures the graph's construction/search parameters.
func WithHNSW(m, m0, efConstruction, efSearch int) Option {
	return func(c *Config) error {
		if m <= 0 || m0 <= 0 || efConstruction <= 0 || efSearch <= 0 {
			return fmt.Errorf("HNSW parameters must be positive")
		}
		c.M, c.M0, c.EfConstruction, c.EfSearch = m, m0, efConstruction, efSearch
		return nil
	}
}

// WithSQ8 enables scalar quantization.
func WithSQ8(enabled bool) Option {
	return func(c *Config) error {
		c.EnableSQ8 = enabled
		return nil
	}
}

// WithBQ enables binary quantization. Requires dimensions % 8 == 0; this
// is validated in Config.validate once all options have applied, since
// WithDimensions and WithBQ may arrive in either order.
func WithBQ(enabled bool) Option {
	return func(c *Config) error {
		c.EnableBQ = enabled
		return nil
	}
}

// WithMetadataBudgetBytes caps metadata storage; 0 means unlimited.
func WithMetadataBudgetBytes(budget uint64) Option {
	return func(c *Config) error {
		c.MetadataBudgetBytes = budget
		return nil
	}
}

// WithMemoryBudgetBytes sets the budget the memory monitor computes
// pressure levels against; 0 means unlimited (pressure always OK).
func WithMemoryBudgetBytes(budget uint64) Option {
	return func(c *Config) error {
		c.MemoryBudgetBytes = budget
		return nil
	}
}

// WithSeed fixes the HNSW level-generation RNG seed for deterministic
// graph construction across runs with identical insert order.
func WithSeed(seed int64) Option {
	return func(c *Config) error {
		c.Seed = seed
		return nil
	}
}

// WithSnowflakeNode sets the node id snowflake.Node uses to allocate
// VectorIds; distinct instances sharing a persistence target should use
// distinct node ids to keep VectorIds globally unique.
func WithSnowflakeNode(node int64) Option {
	return func(c *Config) error {
		c.SnowflakeNode = node
		return nil
	}
}

// WithStoragePath turns on durable persistence: New opens (or creates) a
// write-ahead log under path and every mutating call appends to it. Save
// and Load read and write snapshots under the same path.
func WithStoragePath(path string) Option {
	return func(c *Config) error {
		c.StoragePath = path
		return nil
	}
}
