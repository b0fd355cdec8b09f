package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a crashed agent can hold a job's apply lock.
// After expiry the job becomes re-claimable by a new CreateRun attempt.
const DefaultLockTTL = 300 * time.Second

// Classifier maps a job's free-text title and department to a set of
// interest tags. It is a pure function supplied by the caller; the store
// invokes it exactly once per job, at creation.
type Classifier func(title, department string) []string

// Config carries the non-connection settings for a Client.
type Config struct {
	// Namespace isolates this deployment's keys on a shared Redis server.
	// Must not be empty.
	Namespace string

	// LockTTL is the apply-lock expiry. Zero means DefaultLockTTL.
	LockTTL time.Duration

	// Classify computes a job's interest tags at creation time. Nil means
	// jobs get no tags.
	Classify Classifier
}

// Client provides namespace-scoped Redis operations for the coordination
// engine. All keys are automatically namespaced. The client is thread-safe
// and holds no entity state between calls: every operation reads fresh state
// from Redis, mutates, and writes back.
type Client struct {
	rdb       *redis.Client
	namespace string
	lockTTL   time.Duration
	classify  Classifier
}

// NewClient creates a new tracker client.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - cfg: namespace (required), lock TTL, and tag classifier
//
// Returns an error if the namespace is empty.
func NewClient(redisOpts *redis.Options, cfg Config) (*Client, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	classify := cfg.Classify
	if classify == nil {
		classify = func(string, string) []string { return nil }
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: cfg.Namespace,
		lockTTL:   ttl,
		classify:  classify,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Namespace returns the key namespace this client operates in.
func (c *Client) Namespace() string {
	return c.namespace
}

// RedisClient exposes the underlying connection for callers that need raw
// access (scans, diagnostics). Entity mutations must go through the typed
// operations so index maintenance cannot be skipped.
func (c *Client) RedisClient() *redis.Client {
	return c.rdb
}

// getHash reads a full hash, reporting absence as ok=false.
// HGetAll returns an empty map for non-existent keys.
func (c *Client) getHash(ctx context.Context, key string) (map[string]string, bool, error) {
	hash, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read hash %s: %w", key, err)
	}
	if len(hash) == 0 {
		return nil, false, nil
	}
	return hash, true, nil
}

// batch executes fn against a transaction pipeline and sends all queued
// operations to Redis together. Any individual operation failure surfaces as
// a single error; this is all-or-nothing submission, not cross-key isolation,
// so two batches touching overlapping keys can still interleave at the store.
func (c *Client) batch(ctx context.Context, fn func(pipe redis.Pipeliner)) error {
	pipe := c.rdb.TxPipeline()
	fn(pipe)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("batch write failed: %w", err)
	}
	return nil
}
