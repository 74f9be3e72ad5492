package redis

import (
	"context"
	"time"
)

// Config represents Redis configuration
type Config struct {
	Addresses              []string      // Redis server addresses (host:port)
	Host                   string        // Redis host (for single instance)
	Port                   int           // Redis port (for single instance)
	Password               string        // Redis password
	DB                     int           // Redis database
	PoolSize               int           // Connection pool size
	MinIdleConns           int           // Minimum number of idle connections
	DialTimeout            time.Duration // Dial timeout
	ReadTimeout            time.Duration // Read timeout
	WriteTimeout           time.Duration // Write timeout
	PoolTimeout            time.Duration // Pool timeout
	IdleTimeout            time.Duration // Idle timeout
	IdleCheckFrequency     time.Duration // Idle check frequency
	MaxRetries             int           // Maximum number of retries
	MinRetryBackoff        time.Duration // Minimum retry backoff
	MaxRetryBackoff        time.Duration // Maximum retry backoff
	EnableCluster          bool          // Whether to use Redis cluster
	RouteByLatency         bool          // Whether to route by latency
	RouteRandomly          bool          // Whether to route randomly
	EnableReadFromReplicas bool          // Whether to enable read from replicas
}

// Client is the audit cache's view of Redis: just enough to mint a
// monotonic sequence number and stash the resulting event under a TTL.
// Opportunities and pool state never pass through this interface.
type Client interface {
	// Incr increments a key in Redis
	Incr(ctx context.Context, key string) (int64, error)

	// Set sets a value in Redis
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Close closes the Redis client
	Close() error

	// Ping checks the Redis connection
	Ping(ctx context.Context) error
}
