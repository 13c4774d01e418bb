package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// KeyPrefix namespaces every key written by this store
	KeyPrefix string

	// InvitationRetention is how long an invitation record is kept after creation.
	// Matches and moves are never expired.
	InvitationRetention time.Duration

	// LogCapacity bounds the event log list
	LogCapacity int64
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:                 "redis://localhost:6379",
		PoolSize:            10,
		MinIdleConns:        2,
		KeyPrefix:           "ttt",
		InvitationRetention: 24 * time.Hour,
		LogCapacity:         1000,
	}
}
