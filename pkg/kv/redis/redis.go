// Package redis implements kv.Client against Redis, following
// insiderfyr-ShopMindAI's chat-service redis_cache.go's go-redis/v9 usage
// (lazy client wrapper, redis.Nil miss handling) and grounded on
// _examples/original_source/backend/trip_planner/memory/connections/
// redis.py for the connect/ping shape and scripts/embedding_worker.py +
// scripts/pref_worker.py + scripts/embedding_control.py for the stream
// semantics (XADD/XGROUP CREATE/XREADGROUP/XACK/XAUTOCLAIM/XPENDING).
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/kv"
)

// Config holds configuration for the Redis client.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Client implements kv.Client using go-redis/v9.
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient dials Redis and pings it once to surface connection failures at
// construction time, matching redis.py's ConnectionManager.get_client.
func NewClient(c Config, logger *zap.Logger) (*Client, error) {
	if c.Host == "" {
		return nil, errors.New("redis host is required")
	}

	timeout := 5 * time.Second
	if c.DialTimeout <= 0 {
		c.DialTimeout = timeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = timeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = timeout
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.Host, c.Port),
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), c.DialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s:%d: %w", c.Host, c.Port, err)
	}

	logger.Info("connected to redis", zap.String("host", c.Host), zap.Int("port", c.Port))

	return &Client{rdb: rdb, logger: logger}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) RPush(ctx context.Context, key string, value string, ttl time.Duration) error {
	pipe := c.rdb.TxPipeline()
	pipe.RPush(ctx, key, value)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("rpush %q: %w", key, err)
	}
	return nil
}

func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := c.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %q: %w", key, err)
	}
	return vals, nil
}

func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("expire %q: %w", key, err)
	}
	return ok, nil
}

func (c *Client) Del(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %q: %w", key, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return val, true, nil
}

func (c *Client) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (c *Client) XAdd(ctx context.Context, stream string, values map[string]string) (string, error) {
	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}

	id, err := c.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: stream,
		Values: fields,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %q: %w", stream, err)
	}
	return id, nil
}

// EnsureGroup creates group on stream starting from "0" (the beginning of
// the stream), ignoring the BUSYGROUP "already exists" error, per spec.md
// §4.6 step 1. Starting at "0" rather than "$" matters because the group is
// only created lazily on first worker/controller boot, while XAdd may have
// already enqueued entries before that — grounded on embedding_worker.py:38,
// pref_worker.py:33, and embedding_control.py:36, which all create the group
// at id "0"/"0-0" so pre-existing entries are still delivered.
func (c *Client) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating group %q on %q: %w", group, stream, err)
	}
	return nil
}

func (c *Client) ReadGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]kv.StreamEntry, error) {
	res, err := c.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %q/%q: %w", stream, group, err)
	}

	var entries []kv.StreamEntry
	for _, s := range res {
		for _, msg := range s.Messages {
			entries = append(entries, toStreamEntry(msg))
		}
	}
	return entries, nil
}

func (c *Client) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.rdb.XAck(ctx, stream, group, ids...).Err(); err != nil {
		return fmt.Errorf("xack %q/%q: %w", stream, group, err)
	}
	return nil
}

func (c *Client) AutoClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int64) ([]kv.StreamEntry, error) {
	messages, _, err := c.rdb.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		MinIdle:  minIdle,
		Start:    "0-0",
		Consumer: consumer,
		Count:    count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xautoclaim %q/%q: %w", stream, group, err)
	}

	entries := make([]kv.StreamEntry, len(messages))
	for i, msg := range messages {
		entries[i] = toStreamEntry(msg)
	}
	return entries, nil
}

func (c *Client) Pending(ctx context.Context, stream, group string) (kv.PendingSummary, error) {
	res, err := c.rdb.XPending(ctx, stream, group).Result()
	if err != nil {
		return kv.PendingSummary{}, fmt.Errorf("xpending %q/%q: %w", stream, group, err)
	}

	return kv.PendingSummary{
		Count:     res.Count,
		Consumers: res.Consumers,
	}, nil
}

func toStreamEntry(msg goredis.XMessage) kv.StreamEntry {
	values := make(map[string]string, len(msg.Values))
	for k, v := range msg.Values {
		if s, ok := v.(string); ok {
			values[k] = s
		}
	}
	return kv.StreamEntry{ID: msg.ID, Values: values}
}
