package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/lowlatency-labs/arb-core/pkg/config"
	"github.com/go-redis/redis/v8"
)

// redisClient implements the Client interface
type redisClient struct {
	client redis.UniversalClient
	config *Config
}

// NewClient creates a new Redis client
func NewClient(config *Config) (Client, error) {
	// Set default addresses if not provided
	if len(config.Addresses) == 0 && config.Host != "" {
		config.Addresses = []string{fmt.Sprintf("%s:%d", config.Host, config.Port)}
	}
	if len(config.Addresses) == 0 {
		config.Addresses = []string{"localhost:6379"}
	}
	var client redis.UniversalClient

	if config.EnableCluster {
		// Create a Redis cluster client
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:              config.Addresses,
			Password:           config.Password,
			PoolSize:           config.PoolSize,
			MinIdleConns:       config.MinIdleConns,
			DialTimeout:        config.DialTimeout,
			ReadTimeout:        config.ReadTimeout,
			WriteTimeout:       config.WriteTimeout,
			PoolTimeout:        config.PoolTimeout,
			IdleTimeout:        config.IdleTimeout,
			IdleCheckFrequency: config.IdleCheckFrequency,
			MaxRetries:         config.MaxRetries,
			MinRetryBackoff:    config.MinRetryBackoff,
			MaxRetryBackoff:    config.MaxRetryBackoff,
			RouteByLatency:     config.RouteByLatency,
			RouteRandomly:      config.RouteRandomly,
		})
	} else {
		// Create a Redis client
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:              config.Addresses,
			DB:                 config.DB,
			Password:           config.Password,
			PoolSize:           config.PoolSize,
			MinIdleConns:       config.MinIdleConns,
			DialTimeout:        config.DialTimeout,
			ReadTimeout:        config.ReadTimeout,
			WriteTimeout:       config.WriteTimeout,
			PoolTimeout:        config.PoolTimeout,
			IdleTimeout:        config.IdleTimeout,
			IdleCheckFrequency: config.IdleCheckFrequency,
			MaxRetries:         config.MaxRetries,
			MinRetryBackoff:    config.MinRetryBackoff,
			MaxRetryBackoff:    config.MaxRetryBackoff,
			ReadOnly:           config.EnableReadFromReplicas,
		})
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisClient{
		client: client,
		config: config,
	}, nil
}

// Incr increments a key in Redis
func (c *redisClient) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

// Set sets a value in Redis
func (c *redisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Close closes the Redis client
func (c *redisClient) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *redisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// NewClientFromConfig creates a new Redis client from config.RedisConfig
func NewClientFromConfig(cfg *config.RedisConfig) (Client, error) {
	redisConfig := &Config{
		Host:                   cfg.Host,
		Port:                   cfg.Port,
		Password:               cfg.Password,
		DB:                     cfg.DB,
		PoolSize:               cfg.PoolSize,
		MinIdleConns:           cfg.MinIdleConns,
		DialTimeout:            cfg.DialTimeout,
		ReadTimeout:            cfg.ReadTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		PoolTimeout:            cfg.PoolTimeout,
		IdleTimeout:            cfg.IdleTimeout,
		IdleCheckFrequency:     cfg.IdleCheckFrequency,
		MaxRetries:             cfg.MaxRetries,
		MinRetryBackoff:        cfg.MinRetryBackoff,
		MaxRetryBackoff:        cfg.MaxRetryBackoff,
		EnableCluster:          cfg.EnableCluster,
		RouteByLatency:         cfg.RouteByLatency,
		RouteRandomly:          cfg.RouteRandomly,
		EnableReadFromReplicas: cfg.EnableReadFromReplicas,
	}

	// Copy addresses if provided
	if len(cfg.Addresses) > 0 {
		redisConfig.Addresses = make([]string, len(cfg.Addresses))
		copy(redisConfig.Addresses, cfg.Addresses)
	}

	return NewClient(redisConfig)
}
