// Package cache is a small Redis-backed cache for JSON values and binary
// blobs. A nil *Cache is valid and behaves as an always-empty cache, so
// callers run unchanged when Redis is not configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
	prefix string
}

// Connect parses a redis:// URL and verifies the server answers. An empty
// URL returns a nil cache and no error.
func Connect(ctx context.Context, rawURL, password string) (*Cache, error) {
	if rawURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return New(rdb), nil
}

// New wraps an existing client. Keys are namespaced under "mangawatch:".
func New(client *redis.Client) *Cache {
	return &Cache{client: client, prefix: "mangawatch:"}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// GetJSON decodes the value at key into dst. It reports false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// Blob is a cached binary payload with its content type.
type Blob struct {
	Data        []byte
	ContentType string
	StoredAt    time.Time
}

// GetBlob reads a blob stored with SetBlob.
func (c *Cache) GetBlob(ctx context.Context, key string) (*Blob, error) {
	if !c.enabled() {
		return nil, nil
	}

	fields, err := c.client.HGetAll(ctx, c.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, nil // Not found
	}

	b := &Blob{
		Data:        []byte(fields["data"]),
		ContentType: fields["content_type"],
	}
	if ts, err := strconv.ParseInt(fields["stored_at"], 10, 64); err == nil {
		b.StoredAt = time.Unix(ts, 0)
	}
	return b, nil
}

// SetBlob stores data and its content type as one hash with a TTL.
func (c *Cache) SetBlob(ctx context.Context, key string, b Blob, ttl time.Duration) error {
	if !c.enabled() {
		return nil
	}
	full := c.key(key)

	fields := map[string]any{
		"data":         b.Data,
		"content_type": b.ContentType,
		"stored_at":    time.Now().Unix(),
	}

	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, full, fields)
		// Set the expiration on the whole key
		p.Expire(ctx, full, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.client.Close()
}

// Ping reports whether the server answers. A disabled cache is healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
