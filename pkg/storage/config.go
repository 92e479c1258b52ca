package storage

import "time"

// Config for the backing key-value store
type Config struct {
	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// Connection timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration

	// KeyPrefix namespaces every key this service writes, so a shared
	// redis instance can host more than one deployment.
	KeyPrefix string
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		RedisURL:        "redis://localhost:6379",
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		PoolTimeout:     4 * time.Second,
		KeyPrefix:       "audit",
	}
}
