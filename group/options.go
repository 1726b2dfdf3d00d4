package group

import "github.com/kestrelpool/kestrel"

// ErrorMode defines how the Group handles errors from goroutines
type ErrorMode int

const (
	// FailFast cancels the group on first error and returns it
	FailFast ErrorMode = iota
	// CollectAll collects all errors and returns them as an aggregate
	CollectAll
	// IgnoreErrors ignores all errors from goroutines
	IgnoreErrors
)

// Config holds configuration for a Group
type Config struct {
	errorMode ErrorMode
	pool      *kestrel.Pool
}

// Option configures a Group
type Option func(*Config)

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		errorMode: CollectAll,
	}
}

// BuildConfig applies opts over DefaultConfig and returns the result
func BuildConfig(opts []Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithErrorMode sets how errors are handled
func WithErrorMode(mode ErrorMode) Option {
	return func(c *Config) {
		c.errorMode = mode
	}
}

// WithPool directs the Group to run its goroutines on pool instead of the
// process-wide CPU pool.
func WithPool(pool *kestrel.Pool) Option {
	return func(c *Config) {
		c.pool = pool
	}
}
