package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/udplog/udplogd/internal/event"
	"github.com/udplog/udplogd/internal/metrics"
)

// RedisConfig holds settings for the Redis list sink.
type RedisConfig struct {
	Addr string
	Key  string
}

// RedisSink pushes JSON-encoded events onto the head of a Redis list, where
// an indexer can pop them off the tail.
type RedisSink struct {
	*runner
}

func NewRedisSink(cfg RedisConfig, rc RunnerConfig, m *metrics.Metrics) *RedisSink {
	if cfg.Key == "" {
		cfg.Key = "udplog"
	}
	return &RedisSink{runner: newRunner("redis", &redisBackend{cfg: cfg}, rc, m)}
}

type redisBackend struct {
	cfg    RedisConfig
	client *redis.Client
}

func (r *redisBackend) connect(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{Addr: r.cfg.Addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping %s: %w", r.cfg.Addr, err)
	}
	r.client = client
	return nil
}

func (r *redisBackend) send(ctx context.Context, batch []*event.Event) error {
	values := make([]interface{}, len(batch))
	for i, e := range batch {
		value, err := event.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		values[i] = value
	}
	if err := r.client.LPush(ctx, r.cfg.Key, values...).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", r.cfg.Key, err)
	}
	return nil
}

func (r *redisBackend) disconnect() error {
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
