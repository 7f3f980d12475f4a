package store

import "time"

// RedisOption configures the Redis store.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis store configuration.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string

	// Transient failures are retried with exponential backoff before
	// surfacing to the caller.
	MaxRetries    int
	RetryBackoff  time.Duration
	BackoffFactor float64
}

// WithHost sets Redis host.
func WithHost(host string) RedisOption {
	return func(c *RedisConfig) {
		c.Host = host
	}
}

// WithPort sets Redis port.
func WithPort(port int) RedisOption {
	return func(c *RedisConfig) {
		c.Port = port
	}
}

// WithPassword sets Redis password.
func WithPassword(password string) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
	}
}

// WithDB sets Redis database number.
func WithDB(db int) RedisOption {
	return func(c *RedisConfig) {
		c.DB = db
	}
}

// WithPool sets connection pool settings.
func WithPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// WithRetry bounds transient-failure retries.
func WithRetry(maxRetries int, backoff time.Duration, factor float64) RedisOption {
	return func(c *RedisConfig) {
		c.MaxRetries = maxRetries
		c.RetryBackoff = backoff
		c.BackoffFactor = factor
	}
}
