package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// EntityTTL bounds how long orphaned runtime state may linger if the
	// server dies without cleaning up. Sessions are not durable across
	// restarts; this is garbage collection, not persistence.
	EntityTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		EntityTTL:    24 * time.Hour,
	}
}
