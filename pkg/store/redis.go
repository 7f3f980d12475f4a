package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis. Multi-key operations run
// in a MULTI/EXEC pipeline so readers never observe a writer
// mid-update.
type RedisStore struct {
	client *redis.Client
	prefix string

	maxRetries    int
	retryBackoff  time.Duration
	backoffFactor float64
}

// NewRedisStore creates and pings a Redis-backed store.
func NewRedisStore(opts ...RedisOption) (*RedisStore, error) {
	cfg := &RedisConfig{
		Host:          "localhost",
		Port:          6379,
		DB:            0,
		PoolSize:      10,
		PoolTimeout:   30 * time.Second,
		MinIdleConns:  5,
		Prefix:        "biasguard",
		MaxRetries:    3,
		RetryBackoff:  100 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
		MinIdleConns: cfg.MinIdleConns,
		// go-redis has its own retry loop; ours wraps whole operations.
		MaxRetries: -1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	initStoreMetricsOnce()

	return &RedisStore{
		client:        client,
		prefix:        cfg.Prefix,
		maxRetries:    cfg.MaxRetries,
		retryBackoff:  cfg.RetryBackoff,
		backoffFactor: cfg.BackoffFactor,
	}, nil
}

// Client returns the underlying redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) GetJSON(ctx context.Context, key string, dest interface{}) error {
	var data []byte
	err := s.withRetry(ctx, "get", func() error {
		b, err := s.client.Get(ctx, s.wrapKey(key)).Bytes()
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *RedisStore) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.withRetry(ctx, "set", func() error {
		return s.client.Set(ctx, s.wrapKey(key), data, ttl).Err()
	})
}

func (s *RedisStore) Push(ctx context.Context, key string, value interface{}, maxLen int64, ttl time.Duration) error {
	return s.Tx(ctx, PushOp{Key: key, Value: value, MaxLen: maxLen, TTL: ttl})
}

func (s *RedisStore) Range(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	var items []string
	err := s.withRetry(ctx, "range", func() error {
		res, err := s.client.LRange(ctx, s.wrapKey(key), start, stop).Result()
		if err != nil {
			return err
		}
		items = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(items))
	for i, item := range items {
		out[i] = []byte(item)
	}
	return out, nil
}

// Delete unlinks each key in one pipeline and sums the per-key delete
// counts. Command errors are joined so a reset can report partial
// outcomes instead of swallowing them.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	var deleted int64
	var errs []error
	err := s.withRetry(ctx, "delete", func() error {
		pipe := s.client.TxPipeline()
		cmds := make([]*redis.IntCmd, len(keys))
		for i, key := range keys {
			cmds[i] = pipe.Unlink(ctx, s.wrapKey(key))
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		deleted = 0
		errs = errs[:0]
		for i, cmd := range cmds {
			n, err := cmd.Result()
			if err != nil {
				errs = append(errs, fmt.Errorf("delete %s: %w", keys[i], err))
				continue
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return deleted, err
	}
	return deleted, errors.Join(errs...)
}

func (s *RedisStore) Exists(ctx context.Context, keys ...string) (bool, error) {
	var n int64
	err := s.withRetry(ctx, "exists", func() error {
		res, err := s.client.Exists(ctx, s.wrapKeys(keys...)...).Result()
		if err != nil {
			return err
		}
		n = res
		return nil
	})
	return n > 0, err
}

func (s *RedisStore) Tx(ctx context.Context, ops ...Op) error {
	if len(ops) == 0 {
		return nil
	}
	// Marshal before queueing so a bad value cannot half-apply a tx.
	type queued struct {
		op   Op
		data []byte
	}
	prepared := make([]queued, 0, len(ops))
	for _, op := range ops {
		q := queued{op: op}
		switch o := op.(type) {
		case SetOp:
			b, err := json.Marshal(o.Value)
			if err != nil {
				return err
			}
			q.data = b
		case PushOp:
			b, err := json.Marshal(o.Value)
			if err != nil {
				return err
			}
			q.data = b
		}
		prepared = append(prepared, q)
	}

	return s.withRetry(ctx, "tx", func() error {
		pipe := s.client.TxPipeline()
		for _, q := range prepared {
			switch o := q.op.(type) {
			case SetOp:
				pipe.Set(ctx, s.wrapKey(o.Key), q.data, o.TTL)
			case PushOp:
				key := s.wrapKey(o.Key)
				pipe.LPush(ctx, key, q.data)
				if o.MaxLen > 0 {
					pipe.LTrim(ctx, key, 0, o.MaxLen-1)
				}
				if o.TTL > 0 {
					pipe.Expire(ctx, key, o.TTL)
				}
			case DelOp:
				pipe.Unlink(ctx, s.wrapKey(o.Key))
			}
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

func (s *RedisStore) View(ctx context.Context, valueKeys, listKeys []string) (*Snapshot, error) {
	snap := &Snapshot{
		Values: make(map[string][]byte, len(valueKeys)),
		Lists:  make(map[string][][]byte, len(listKeys)),
	}

	err := s.withRetry(ctx, "view", func() error {
		pipe := s.client.TxPipeline()
		valueCmds := make([]*redis.StringCmd, len(valueKeys))
		for i, key := range valueKeys {
			valueCmds[i] = pipe.Get(ctx, s.wrapKey(key))
		}
		listCmds := make([]*redis.StringSliceCmd, len(listKeys))
		for i, key := range listKeys {
			listCmds[i] = pipe.LRange(ctx, s.wrapKey(key), 0, -1)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		snap.Values = make(map[string][]byte, len(valueKeys))
		snap.Lists = make(map[string][][]byte, len(listKeys))
		for i, cmd := range valueCmds {
			b, err := cmd.Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return err
			}
			snap.Values[valueKeys[i]] = b
		}
		for i, cmd := range listCmds {
			items, err := cmd.Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if len(items) == 0 {
				continue
			}
			list := make([][]byte, len(items))
			for j, item := range items {
				list[j] = []byte(item)
			}
			snap.Lists[listKeys[i]] = list
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// withRetry retries transient failures with exponential backoff.
// Logical results (redis.Nil) and context cancellation surface
// immediately.
func (s *RedisStore) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	backoff := s.retryBackoff
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			observeStoreRetry(op)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * s.backoffFactor)
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, s.maxRetries+1, lastErr)
}

func isTransient(err error) bool {
	if errors.Is(err, redis.Nil) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func (s *RedisStore) wrapKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

func (s *RedisStore) wrapKeys(keys ...string) []string {
	wrapped := make([]string, len(keys))
	for i, key := range keys {
		wrapped[i] = s.wrapKey(key)
	}
	return wrapped
}
