package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerSettings controls when the redis breaker opens.
type BreakerSettings struct {
	FailureThreshold uint32        // Consecutive failures before opening (default: 5)
	Timeout          time.Duration // How long the breaker stays open (default: 30s)
}

// Redis is a cache shared between instances. Calls go through a circuit
// breaker; while it is open reads miss and writes are dropped, so a redis
// outage degrades to recomputation instead of failing requests.
type Redis struct {
	client  redis.UniversalClient
	breaker *gobreaker.CircuitBreaker[[]byte]
	prefix  string
	logger  *slog.Logger
}

// NewRedis wraps client. Keys are namespaced with prefix.
func NewRedis(client redis.UniversalClient, prefix string, bs BreakerSettings, logger *slog.Logger) *Redis {
	if bs.FailureThreshold == 0 {
		bs.FailureThreshold = 5
	}
	if bs.Timeout == 0 {
		bs.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Redis{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		prefix:  prefix,
		logger:  logger,
	}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (r *Redis) State() string {
	return r.breaker.State().String()
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var miss bool
	val, err := r.breaker.Execute(func() ([]byte, error) {
		b, err := r.client.Get(ctx, r.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			miss = true
			return nil, nil
		}
		return b, err
	})
	if err != nil {
		r.logger.Debug("redis cache get failed", "key", key, "error", err)
		return nil, false, nil
	}
	if miss {
		return nil, false, nil
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	_, err := r.breaker.Execute(func() ([]byte, error) {
		return nil, r.client.Set(ctx, r.key(key), val, ttl).Err()
	})
	if err != nil {
		r.logger.Debug("redis cache set failed", "key", key, "error", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	_, err := r.breaker.Execute(func() ([]byte, error) {
		return nil, r.client.Del(ctx, full...).Err()
	})
	if err != nil {
		// A stale entry expires on its own.
		r.logger.Warn("redis cache delete failed", "keys", keys, "error", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
